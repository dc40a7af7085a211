package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string // bind address, ":5000" unless ADDR or PORT say otherwise
	LogDir   string // logs directory
	LogLevel string // debug, info, warn, error

	// Storage: DATABASE_URL wins, then SQLITE_PATH; neither means fallback
	// mode with an in-memory store seeded from sample data.
	DatabaseURL string
	SQLitePath  string
	SeedFile    string
	RedisURL    string

	ProbeTimeout     time.Duration
	ProbeProxyURL    string // when set, probes go through a remote /check endpoint
	MonitorInterval  time.Duration
	MonitorAutostart bool
	RefreshEvery     int
	ReportWindow     time.Duration
	RetentionDays    int
	NotifyCooldown   time.Duration
	AlertOnRecovery  bool
	SlackWebhookURL  string
	TelegramBotToken string
	TelegramChatID   int64
	KafkaBrokers     []string
	KafkaTopic       string
	PublicAPIKeys    []string
	AdminAPIKeys     []string
	PublicRPM        int
	PublicBurst      int
	ReportRPM        int
	ReportBurst      int
	AllowedOrigins   []string
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment take precedence over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":" + port
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	kafkaTopic := os.Getenv("KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "isitdown.status"
	}

	return Config{
		Addr:     addr,
		LogDir:   logDir,
		LogLevel: logLevel,

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		SeedFile:    os.Getenv("SEED_FILE"),
		RedisURL:    os.Getenv("REDIS_URL"),

		ProbeTimeout:     envMillis("PROBE_TIMEOUT_MS", 10*time.Second),
		ProbeProxyURL:    os.Getenv("PROBE_PROXY_URL"),
		MonitorInterval:  envMillis("MONITOR_INTERVAL_MS", 5*time.Minute),
		MonitorAutostart: envBool("MONITOR_AUTOSTART", true),
		RefreshEvery:     envInt("REFRESH_EVERY", 10),
		ReportWindow:     time.Duration(envInt("REPORT_WINDOW_HOURS", 24)) * time.Hour,
		RetentionDays:    envIntAllowZero("RETENTION_DAYS", 30),
		NotifyCooldown:   envMillis("NOTIFY_COOLDOWN_MS", 0),
		AlertOnRecovery:  envBool("ALERT_ON_RECOVERY", true),
		SlackWebhookURL:  os.Getenv("SLACK_WEBHOOK_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   envInt64("TELEGRAM_CHAT_ID", 0),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       kafkaTopic,
		PublicAPIKeys:    splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:     splitList(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:        envInt("PUBLIC_RPM", 120),
		PublicBurst:      envInt("PUBLIC_BURST", 60),
		ReportRPM:        envInt("REPORT_RPM", 10),
		ReportBurst:      envInt("REPORT_BURST", 5),
		AllowedOrigins:   splitList(os.Getenv("ALLOWED_ORIGINS")),
	}
}

// FallbackMode reports whether no database is configured.
func (c Config) FallbackMode() bool {
	return c.DatabaseURL == "" && c.SQLitePath == ""
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envIntAllowZero accepts 0 and negative values (used to disable a feature).
func envIntAllowZero(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
