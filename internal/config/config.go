package config

import (
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/goware/urlx"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/hkdf"
	"gopkg.in/yaml.v3"
)

// PlaceholderServerURL is shown by /api/config when no upstream is configured.
const PlaceholderServerURL = "https://your-headscale-server.com"

// ErrNoUpstream is returned when HEADSCALE_API_URL is not set anywhere.
var ErrNoUpstream = errors.New("HEADSCALE_API_URL environment variable is required but not set. " +
	"Please set it when running the container.")

type Config struct {
	Bind     string
	Port     int
	LogLevel zerolog.Level
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Only set it behind a
	// reverse proxy that overwrites those headers.
	TrustProxy bool

	HeadscaleURL        string
	HeadscaleAPIKey     string
	HeadscaleMetricsURL string

	SessionHashKey  []byte
	SessionBlockKey []byte
	SecureCookies   bool
	CORSOrigin      string

	DefaultLocale string

	RateLoginPer15m    int
	RateLoginWindowSec int

	CacheStaleTime time.Duration
	PollInterval   time.Duration
	MetricsEnabled bool
}

type fileConfig struct {
	HTTP struct {
		Bind       string `yaml:"bind"`
		Port       int    `yaml:"port"`
		TrustProxy *bool  `yaml:"trustProxy"`
	} `yaml:"http"`
	Headscale struct {
		URL        string `yaml:"url"`
		APIKey     string `yaml:"apiKey"`
		MetricsURL string `yaml:"metricsUrl"`
	} `yaml:"headscale"`
	Sessions struct {
		Secret        string `yaml:"secret"`
		SecureCookies *bool  `yaml:"secureCookies"`
	} `yaml:"sessions"`
	CORS struct {
		Origin string `yaml:"origin"`
	} `yaml:"cors"`
	Locale string `yaml:"locale"`
	Rate   struct {
		LoginPer15m    int `yaml:"loginPer15m"`
		LoginWindowSec int `yaml:"loginWindowSec"`
	} `yaml:"rate"`
	Cache struct {
		StaleTime string `yaml:"staleTime"`
	} `yaml:"cache"`
	Poll struct {
		Interval string `yaml:"interval"`
	} `yaml:"poll"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// FromEnv loads the optional YAML file named by DASH_CONFIG, then applies
// environment overrides.
func FromEnv() Config {
	return Load(os.Getenv("DASH_CONFIG"))
}

// Load reads path (when non-empty and present) and overlays the environment.
func Load(path string) Config {
	cfg := Config{
		Bind:               "0.0.0.0",
		Port:               3000,
		LogLevel:           zerolog.InfoLevel,
		DefaultLocale:      "en",
		RateLoginPer15m:    20,
		RateLoginWindowSec: 900,
		CacheStaleTime:     5 * time.Minute,
		PollInterval:       30 * time.Second,
		MetricsEnabled:     true,
	}
	secret := ""

	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			var fc fileConfig
			if yaml.Unmarshal(b, &fc) == nil {
				if fc.HTTP.Bind != "" {
					cfg.Bind = fc.HTTP.Bind
				}
				if fc.HTTP.Port > 0 {
					cfg.Port = fc.HTTP.Port
				}
				if fc.HTTP.TrustProxy != nil {
					cfg.TrustProxy = *fc.HTTP.TrustProxy
				}
				cfg.HeadscaleURL = fc.Headscale.URL
				cfg.HeadscaleAPIKey = fc.Headscale.APIKey
				cfg.HeadscaleMetricsURL = fc.Headscale.MetricsURL
				secret = fc.Sessions.Secret
				if fc.Sessions.SecureCookies != nil {
					cfg.SecureCookies = *fc.Sessions.SecureCookies
				}
				cfg.CORSOrigin = fc.CORS.Origin
				if fc.Locale != "" {
					cfg.DefaultLocale = fc.Locale
				}
				if fc.Rate.LoginPer15m > 0 {
					cfg.RateLoginPer15m = fc.Rate.LoginPer15m
				}
				if fc.Rate.LoginWindowSec > 0 {
					cfg.RateLoginWindowSec = fc.Rate.LoginWindowSec
				}
				if d, err := time.ParseDuration(fc.Cache.StaleTime); err == nil && d > 0 {
					cfg.CacheStaleTime = d
				}
				if d, err := time.ParseDuration(fc.Poll.Interval); err == nil && d > 0 {
					cfg.PollInterval = d
				}
				if l, err := zerolog.ParseLevel(fc.Logging.Level); err == nil && fc.Logging.Level != "" {
					cfg.LogLevel = l
				}
				if fc.Metrics.Enabled != nil {
					cfg.MetricsEnabled = *fc.Metrics.Enabled
				}
			}
		}
	}

	if v := os.Getenv("DASH_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv("DASH_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if v := os.Getenv("DASH_LOG"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			cfg.LogLevel = l
		}
	}
	if v := os.Getenv("HEADSCALE_API_URL"); v != "" {
		cfg.HeadscaleURL = v
	}
	if v := os.Getenv("HEADSCALE_API_KEY"); v != "" {
		cfg.HeadscaleAPIKey = v
	}
	if v := os.Getenv("HEADSCALE_METRICS_URL"); v != "" {
		cfg.HeadscaleMetricsURL = v
	}
	if v := os.Getenv("DASH_SESSION_SECRET"); v != "" {
		secret = v
	}
	if v, ok := envBool("DASH_TRUST_PROXY"); ok {
		cfg.TrustProxy = v
	}
	if v, ok := envBool("DASH_SECURE_COOKIES"); ok {
		cfg.SecureCookies = v
	}
	if v := os.Getenv("DASH_CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}
	if v := os.Getenv("DASH_DEFAULT_LOCALE"); v != "" {
		cfg.DefaultLocale = v
	}
	if v := os.Getenv("DASH_LOGIN_PER_15M"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLoginPer15m = n
		}
	}
	if v := os.Getenv("DASH_LOGIN_WINDOW_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLoginWindowSec = n
		}
	}
	if v := os.Getenv("DASH_CACHE_STALE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheStaleTime = d
		}
	}
	if v := os.Getenv("DASH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	if v, ok := envBool("DASH_METRICS"); ok {
		cfg.MetricsEnabled = v
	}

	cfg.SessionHashKey, cfg.SessionBlockKey = sessionKeys(secret)
	return cfg
}

// Upstream returns the normalised headscale base URL. HEADSCALE_API_URL is
// consulted on every call so a running process follows the environment.
func (c Config) Upstream() (string, error) {
	raw := os.Getenv("HEADSCALE_API_URL")
	if raw == "" {
		raw = c.HeadscaleURL
	}
	if raw == "" {
		return "", ErrNoUpstream
	}
	return NormalizeURL(raw)
}

// APIBase is the REST root of the upstream, "<server>/api/v1".
func (c Config) APIBase() (string, error) {
	u, err := c.Upstream()
	if err != nil {
		return "", err
	}
	return u + "/api/v1", nil
}

// ServerURL is the upstream URL for display, or the placeholder.
func (c Config) ServerURL() string {
	u, err := c.Upstream()
	if err != nil {
		return PlaceholderServerURL
	}
	return u
}

// NormalizeURL defaults the scheme to http and drops trailing slashes.
func NormalizeURL(raw string) (string, error) {
	u, err := urlx.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

// sessionKeys expands secret into cookie hash and block keys. Without a
// secret the keys are random and sessions end with the process.
func sessionKeys(secret string) ([]byte, []byte) {
	if secret == "" {
		return securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("headscale-dashboard session"))
	hashKey := make([]byte, 32)
	blockKey := make([]byte, 32)
	_, _ = io.ReadFull(r, hashKey)
	_, _ = io.ReadFull(r, blockKey)
	return hashKey, blockKey
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
