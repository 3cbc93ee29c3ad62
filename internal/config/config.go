// Package config resolves server settings from config files and the
// environment. Values already present in the environment always win.
package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Files are loaded in order; a missing file is skipped.
var Files = []string{"bridge.env", ".env"}

type Config struct {
	Host string
	Port int

	StoreEngine     string
	DataFile        string
	RedisAddr       string
	StoreQuotaBytes int64

	GeminiAPIKey  string
	GeminiBaseURL string
	TextModel     string
	ImageModel    string
	TextTimeout   time.Duration
	ImageTimeout  time.Duration

	JWTSecret  string
	SessionTTL time.Duration

	NATSURL     string
	NATSSubject string

	RefreshSpec  string
	ReminderSpec string
}

// LoadFiles applies each config file that exists without overriding the
// environment.
func LoadFiles(paths ...string) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			log.Printf("load %s failed: %v", path, err)
		}
	}
}

// FromEnv builds a Config from BRIDGE_* variables.
func FromEnv() Config {
	host, port := parseListenAddr(envOrDefault("BRIDGE_ADDR", ":8080"))
	if port <= 0 {
		port = 8080
	}
	engine := strings.ToLower(envOrDefault("BRIDGE_STORE", "sqlite"))

	return Config{
		Host: strings.TrimSpace(envOrDefault("BRIDGE_HOST", host)),
		Port: parseEnvInt("BRIDGE_PORT", port),

		StoreEngine:     engine,
		DataFile:        envOrDefault("BRIDGE_DATA_FILE", defaultDataFile(engine)),
		RedisAddr:       envOrDefault("BRIDGE_REDIS_ADDR", "localhost:6379"),
		StoreQuotaBytes: int64(parseEnvInt("BRIDGE_STORE_QUOTA_BYTES", 0)),

		GeminiAPIKey:  strings.TrimSpace(os.Getenv("BRIDGE_GEMINI_API_KEY")),
		GeminiBaseURL: os.Getenv("BRIDGE_GEMINI_BASE_URL"),
		TextModel:     os.Getenv("BRIDGE_TEXT_MODEL"),
		ImageModel:    os.Getenv("BRIDGE_IMAGE_MODEL"),
		TextTimeout:   time.Duration(parseEnvInt("BRIDGE_TEXT_TIMEOUT_SECONDS", 15)) * time.Second,
		ImageTimeout:  time.Duration(parseEnvInt("BRIDGE_IMAGE_TIMEOUT_SECONDS", 25)) * time.Second,

		JWTSecret:  os.Getenv("BRIDGE_JWT_SECRET"),
		SessionTTL: time.Duration(parseEnvInt("BRIDGE_SESSION_TTL_HOURS", 168)) * time.Hour,

		NATSURL:     os.Getenv("BRIDGE_NATS_URL"),
		NATSSubject: envOrDefault("BRIDGE_NATS_SUBJECT", "bridge.notifications"),

		RefreshSpec:  envOrDefault("BRIDGE_REFRESH_SPEC", "@every 60s"),
		ReminderSpec: envOrDefault("BRIDGE_REMINDER_SPEC", "@every 1h"),
	}
}

func (c Config) ListenAddr() string {
	port := c.Port
	if port <= 0 {
		port = 8080
	}
	if c.Host == "" {
		return fmt.Sprintf(":%d", port)
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func defaultDataFile(engine string) string {
	switch engine {
	case "json":
		return "data/bridge.json"
	default:
		return "data/bridge.db"
	}
}

func parseListenAddr(addr string) (string, int) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0
	}
	if strings.HasPrefix(addr, ":") {
		return "", parseIntValue(strings.TrimPrefix(addr, ":"), 0)
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		return host, parseIntValue(port, 0)
	}
	if portOnly := parseIntValue(addr, 0); portOnly > 0 {
		return "", portOnly
	}
	return addr, 0
}

func envOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return parseIntValue(raw, fallback)
}

func parseIntValue(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

// SafeKeyMeta describes an API key for logs without revealing it.
func SafeKeyMeta(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "empty=true"
	}
	hasQuotes := (strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"")) ||
		(strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'"))
	return fmt.Sprintf(
		"empty=false,len=%d,starts_with_aiza=%t,has_quotes=%t,has_whitespace=%t",
		len(trimmed),
		strings.HasPrefix(trimmed, "AIza"),
		hasQuotes,
		strings.Contains(trimmed, " "),
	)
}
