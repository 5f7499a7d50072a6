package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Remote commerce platform
	Shop                 string
	StorefrontToken      string
	StorefrontAPIVersion string
	RemoteTimeout        time.Duration

	// Durable storage; empty DSN keeps the cart in process memory.
	DatabaseDSN string

	// Cross-session ping fan-out; empty URL keeps pings in-process.
	RabbitURL string

	BadgeInterval time.Duration
	ProductsPath  string

	CORSAllowOrigins []string
}

func Load() Config {
	return Config{
		Port: getenv("PORT", "8080"),

		Shop:                 getenv("SHOPIFY_SHOP", "tacticaloffroad.myshopify.com"),
		StorefrontToken:      getenv("STOREFRONT_TOKEN", ""),
		StorefrontAPIVersion: getenv("STOREFRONT_API_VERSION", "2025-01"),
		RemoteTimeout:        parseDuration(getenv("REMOTE_TIMEOUT", "5s"), 5*time.Second),

		DatabaseDSN: getenv("STOREFRONT_DB_DSN", ""),
		RabbitURL:   getenv("RABBITMQ_URL", ""),

		BadgeInterval: parseDuration(getenv("BADGE_INTERVAL", "15s"), 15*time.Second),
		ProductsPath:  getenv("PRODUCTS_PATH", "assets/products.json"),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
