package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solopub/solopub/internal/actor"
	"github.com/solopub/solopub/internal/config"
	"github.com/solopub/solopub/internal/discovery"
	httpapp "github.com/solopub/solopub/internal/http"
	"github.com/solopub/solopub/internal/httpsig"
	"github.com/solopub/solopub/internal/inbox"
	"github.com/solopub/solopub/internal/keys"
	"github.com/solopub/solopub/internal/model"
	"github.com/solopub/solopub/internal/outbox"
	"github.com/solopub/solopub/internal/rate"
	"github.com/solopub/solopub/internal/store"
	"github.com/solopub/solopub/internal/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		runServer()
		return
	}

	switch cmd := os.Args[1]; cmd {
	case "server", "serve":
		runServer()
	case "provision":
		cmdProvision()
	case "seed":
		cmdSeed()
	case "version", "-v", "--version":
		fmt.Println("solopub v0.1.0")
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`solopub - single-account ActivityPub server

Usage: solopub <command>

Commands:
  server              Start the server (default if no command)
  provision           Generate and store the account keypair (run once)
  seed                Insert demo posts into the local post store
  version             Print version

Environment Variables:
  SOLOPUB_ADDR              Listen address (default: :8080)
  SOLOPUB_DB                Database path (default: solopub.db)
  SOLOPUB_USERNAME          Account username (default: admin)
  SOLOPUB_DOMAIN            Primary domain (default: localhost:8080)
  SOLOPUB_DOMAIN_ALIASES    Comma-separated historical domains
  SOLOPUB_BASE_URL          Public base URL (default: https://<domain>)
  SOLOPUB_FEATURED_COUNT    Pinned-post count (default: 4)
  SOLOPUB_DELIVERY_TIMEOUT  Outbound call timeout (default: 10s)
  SOLOPUB_RL_INBOX_PER_MIN  Inbox rate limit per IP (default: 60)`)
}

func runServer() {
	cfg := config.Load()
	log := newLogger()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		fatal(log, "failed to open db", err)
	}
	defer st.Close()

	km := keys.NewManager(st)
	signer := httpsig.New()
	resolver := discovery.NewResolver(cfg)
	directory := actor.NewDirectory(cfg, km)
	publisher := outbox.NewPublisher(cfg, st)
	processor := inbox.NewProcessor(cfg, km, signer, log)
	limiter := rate.NewMemory(cfg.RateLimits.InboxPerMinute, time.Minute)

	server := httpapp.NewServer(cfg, resolver, directory, publisher, processor, limiter, log)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("solopub listening", "addr", cfg.Addr, "actor", cfg.ActorURL())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}

func cmdProvision() {
	cfg := config.Load()
	log := newLogger()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		fatal(log, "failed to open db", err)
	}
	defer st.Close()

	km := keys.NewManager(st)
	if err := km.GenerateAndStore(context.Background(), cfg.Username); err != nil {
		if errors.Is(err, store.ErrKeyExists) {
			fmt.Fprintf(os.Stderr, "Account %q is already provisioned; refusing to overwrite its key.\n", cfg.Username)
			os.Exit(1)
		}
		fatal(log, "provisioning failed", err)
	}

	fmt.Printf("Provisioned account %q in %s\n", cfg.Username, cfg.DBPath)
}

var seedPosts = []model.Post{
	{Content: "Hello fediverse!\nThis account is now federating.", CreatedAt: "2025-11-02 09:14:05"},
	{Content: "Wrote up some notes on running a single-user server.", CreatedAt: "2025-11-20 18:30:41"},
	{Content: "Weekend photo from the coast.", CreatedAt: "2025-12-01 11:02:17", ImageURL: "https://example.com/media/coast.jpg"},
	{Content: "Reminder: webfinger handles work across all my old domains.", CreatedAt: "2025-12-02 16:42:15"},
}

func cmdSeed() {
	cfg := config.Load()
	log := newLogger()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		fatal(log, "failed to open db", err)
	}
	defer st.Close()

	for i := range seedPosts {
		id, err := st.CreatePost(context.Background(), &seedPosts[i])
		if err != nil {
			fatal(log, "seed failed", err)
		}
		fmt.Printf("Seeded post %d\n", id)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}
