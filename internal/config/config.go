// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Email
	EmailAPIKey  string // 未設定の場合は送信せずログのみ
	EmailFrom    string
	EmailAPIURL  string
	EmailTimeout time.Duration

	// W-9 request lifecycle
	RequestTTL          time.Duration
	ExpirySweepInterval time.Duration

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitCreate  int
	RateLimitPublic  int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// EmailEnabled はメールAPIキーが設定されているかを返す。
func (c *Config) EmailEnabled() bool {
	return c.EmailAPIKey != ""
}

// Load は環境変数からConfigを読み込む。
// ENV_FILE（既定: .env）が存在する場合は先に読み込む。既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.GoogleClientID = required("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = required("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = required("GOOGLE_REDIRECT_URL")
	cfg.SessionSecret = required("SESSION_SECRET")
	cfg.BaseURL = strings.TrimRight(required("BASE_URL"), "/")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.EmailAPIKey = os.Getenv("EMAIL_API_KEY")
	cfg.EmailFrom = getEnvString("EMAIL_FROM", "Signica <noreply@signica.app>")
	cfg.EmailAPIURL = getEnvString("EMAIL_API_URL", "https://api.resend.com")
	cfg.EmailTimeout = getEnvDuration("EMAIL_TIMEOUT", 10*time.Second)
	cfg.RequestTTL = getEnvDuration("REQUEST_TTL", 30*24*time.Hour)
	cfg.ExpirySweepInterval = getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCreate = getEnvInt("RATE_LIMIT_CREATE", 20)
	cfg.RateLimitPublic = getEnvInt("RATE_LIMIT_PUBLIC", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// loadEnvFile は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// validateBaseURL はBASE_URLがhttp(s)の絶対URLであることを検証する。
// メールのダイレクトリンクはこの値から生成される。
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("BASE_URL must be an absolute http(s) URL: %q", raw)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
