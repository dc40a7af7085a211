// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/isitdownchecker/internal/config"
	"github.com/hamed0406/isitdownchecker/internal/sample"
	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load()
	if err != nil {
		fail(".env could not be read: " + err.Error())
		os.Exit(1)
	}

	ok("ADDR=" + cfg.Addr)

	switch {
	case cfg.DatabaseURL != "":
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres://") && !strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
			fail("DATABASE_URL must be a postgres:// URL")
		} else {
			ok("DATABASE_URL present (postgres)")
		}
		if cfg.SQLitePath != "" {
			warn("SQLITE_PATH is ignored because DATABASE_URL is set")
		}
	case cfg.SQLitePath != "":
		ok("SQLITE_PATH=" + cfg.SQLitePath)
	default:
		warn("no DATABASE_URL or SQLITE_PATH: fallback mode, sample data served from memory")
	}

	if cfg.SeedFile != "" {
		if _, err := sample.OpenFile(cfg.SeedFile); err != nil {
			fail("SEED_FILE: " + err.Error())
		} else {
			ok("SEED_FILE parses")
		}
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty: admin routes are open (dev only)")
	} else {
		ok(fmt.Sprintf("ADMIN_API_KEYS: %d key(s)", len(cfg.AdminAPIKeys)))
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty: /api routes are open")
	} else {
		ok(fmt.Sprintf("PUBLIC_API_KEYS: %d key(s)", len(cfg.PublicAPIKeys)))
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty: CORS allows every origin")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if cfg.ProbeProxyURL != "" && !urlnorm.IsValidHTTPURL(cfg.ProbeProxyURL) {
		fail("PROBE_PROXY_URL is not an http(s) URL")
	}
	if cfg.RedisURL == "" {
		warn("REDIS_URL empty: change events stay in-process")
	} else {
		ok("REDIS_URL present")
	}

	channels := 0
	if cfg.SlackWebhookURL != "" {
		channels++
	}
	if cfg.TelegramBotToken != "" {
		channels++
		if cfg.TelegramChatID == 0 {
			fail("TELEGRAM_BOT_TOKEN set but TELEGRAM_CHAT_ID is missing")
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		ok("KAFKA_BROKERS=" + strings.Join(cfg.KafkaBrokers, ",") + " topic=" + cfg.KafkaTopic)
	}
	if channels == 0 {
		warn("no Slack or Telegram configured: alerts go to the log only")
	}

	if cfg.RetentionDays <= 0 {
		warn("RETENTION_DAYS <= 0: old incidents and reports are never pruned")
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}

