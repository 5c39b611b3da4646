package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr            string
	DBPath          string
	Username        string
	Domain          string
	DomainAliases   []string
	BaseURL         string
	FeaturedCount   int
	DeliveryTimeout time.Duration
	RateLimits      RateLimits
}

type RateLimits struct {
	InboxPerMinute int
}

func Load() Config {
	addr := envString("SOLOPUB_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	domain := envString("SOLOPUB_DOMAIN", "localhost:8080")
	cfg := Config{
		Addr:            addr,
		DBPath:          envString("SOLOPUB_DB", "solopub.db"),
		Username:        envString("SOLOPUB_USERNAME", "admin"),
		Domain:          domain,
		DomainAliases:   envList("SOLOPUB_DOMAIN_ALIASES"),
		BaseURL:         envString("SOLOPUB_BASE_URL", "https://"+domain),
		FeaturedCount:   envInt("SOLOPUB_FEATURED_COUNT", 4),
		DeliveryTimeout: envDuration("SOLOPUB_DELIVERY_TIMEOUT", 10*time.Second),
		RateLimits: RateLimits{
			InboxPerMinute: envInt("SOLOPUB_RL_INBOX_PER_MIN", 60),
		},
	}

	return cfg
}

// Domains returns the primary domain followed by all historical aliases.
func (c Config) Domains() []string {
	return append([]string{c.Domain}, c.DomainAliases...)
}

func (c Config) ActorURL() string     { return c.BaseURL + "/activitypub/actor" }
func (c Config) KeyID() string        { return c.ActorURL() + "#main-key" }
func (c Config) InboxURL() string     { return c.BaseURL + "/activitypub/inbox" }
func (c Config) OutboxURL() string    { return c.BaseURL + "/activitypub/outbox" }
func (c Config) FollowersURL() string { return c.BaseURL + "/activitypub/followers" }
func (c Config) FollowingURL() string { return c.BaseURL + "/activitypub/following" }
func (c Config) FeaturedURL() string  { return c.BaseURL + "/activitypub/featured" }

func (c Config) PostURL(id int64) string {
	return c.BaseURL + "/activitypub/posts/" + strconv.FormatInt(id, 10)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(v, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
