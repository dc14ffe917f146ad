package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/court-scheduler/internal/slots"
)

// Config is the process configuration. The reservation plan itself lives
// in the file read by FileSource.
type Config struct {
	ListenAddr  string
	DatabaseURL string
	ConfigPath  string
	SiteBaseURL string

	// browser
	ChromeURL      string
	Headless       bool
	PageRatePerSec float64

	Env      string
	LogLevel string

	CookieHashKey  []byte
	CookieBlockKey []byte

	OperatorUser           string
	OperatorPasswordBcrypt string

	ProbeInterval time.Duration
}

func (c Config) JournalEnabled() bool { return c.DatabaseURL != "" }

func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:             Getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		ConfigPath:             Getenv("COURTSCHED_CONFIG", "config.yaml"),
		SiteBaseURL:            os.Getenv("SITE_BASE_URL"),
		ChromeURL:              os.Getenv("CHROME_URL"),
		Env:                    Getenv("APP_ENV", "development"),
		LogLevel:               Getenv("LOG_LEVEL", "info"),
		OperatorUser:           Getenv("OPERATOR_USER", "admin"),
		OperatorPasswordBcrypt: os.Getenv("OPERATOR_PASSWORD_BCRYPT"),
	}

	headless, err := strconv.ParseBool(Getenv("HEADLESS", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HEADLESS")
	}
	cfg.Headless = headless

	rps, err := strconv.ParseFloat(Getenv("PAGE_RATE_PER_SEC", "2"), 64)
	if err != nil || rps <= 0 {
		return Config{}, fmt.Errorf("invalid PAGE_RATE_PER_SEC")
	}
	cfg.PageRatePerSec = rps

	cfg.ProbeInterval, err = time.ParseDuration(Getenv("PROBE_INTERVAL", slots.DefaultProbeInterval.String()))
	if err != nil || cfg.ProbeInterval <= 0 || cfg.ProbeInterval >= slots.TTL {
		return Config{}, fmt.Errorf("invalid PROBE_INTERVAL (must be between 0 and %s)", slots.TTL)
	}

	hashKey := os.Getenv("COOKIE_HASH_KEY")
	blockKey := os.Getenv("COOKIE_BLOCK_KEY")
	if hashKey == "" || blockKey == "" {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (32 and 32/16/24/32 bytes base64)")
	}
	var derr error
	cfg.CookieHashKey, derr = decodeB64(hashKey)
	if derr != nil {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY: %w", derr)
	}
	cfg.CookieBlockKey, derr = decodeB64(blockKey)
	if derr != nil {
		return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY: %w", derr)
	}

	return cfg, nil
}

func decodeB64(s string) ([]byte, error) {
	b, err := os.ReadFile(s)
	if err == nil {
		// allow pointing to file path for secret mounts
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// Getenv returns the environment value for k, or def when it is unset or
// empty.
func Getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
