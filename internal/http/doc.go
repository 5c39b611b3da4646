// Package httpapp serves the federation surface of a single-account
// ActivityPub server.
//
// Endpoints:
//
//	GET  /.well-known/webfinger?resource=acct:user@domain
//	GET  /.well-known/host-meta
//	GET  /activitypub/actor
//	GET  /activitypub/outbox[?page=true]
//	POST /activitypub/inbox
//	GET  /activitypub/followers
//	GET  /activitypub/following
//	GET  /activitypub/featured
//	GET  /activitypub/posts/{id}
//
// All ActivityPub responses use application/activity+json; WebFinger uses
// application/jrd+json and host-meta application/xrd+xml. Errors are JSON
// objects with a single "error" field. Responses are publicly cacheable,
// with identity documents cached longer than feeds.
package httpapp
