package config

import (
	"os"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret string

	// Redis notification sink. Empty addr disables publishing.
	RedisAddr    string
	RedisChannel string

	// Upper bound for the assessment cascade-delete transaction.
	CascadeTimeout time.Duration

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           addr,
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		AuthHMACSecret:     envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisChannel:       envOr("REDIS_CHANNEL", "submissions"),
		CascadeTimeout:     envDuration("CASCADE_TIMEOUT", 15*time.Second),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://app.brightclass.io"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
