// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultNewsFeedURLs はNEWS_FEED_URLS未設定時のニュースソース。
var DefaultNewsFeedURLs = []string{
	"https://news.yahoo.co.jp/rss/topics/top-picks.xml",
	"https://www3.nhk.or.jp/rss/news/cat0.xml",
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string

	// Storage
	// DatabaseURL が空の場合はインメモリストアで起動する。
	DatabaseURL   string
	StoreMaxBytes int

	// Logging
	LogLevel slog.Level

	// CORS
	CORSAllowedOrigins []string

	// Rate Limit（req/min）
	RateLimitGeneral     int
	RateLimitNewsRefresh int

	// News
	NewsFeedURLs        []string
	NewsRefreshInterval time.Duration
	NewsFetchTimeout    time.Duration
	NewsFetchMaxSize    int64
	NewsMaxConcurrent   int
	NewsRetentionDays   int
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	level, err := ParseLogLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.StoreMaxBytes = getEnvInt("STORE_MAX_BYTES", 5<<20)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGIN", []string{"http://localhost:3000"})
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitNewsRefresh = getEnvInt("RATE_LIMIT_NEWS_REFRESH", 6)
	cfg.NewsFeedURLs = getEnvList("NEWS_FEED_URLS", DefaultNewsFeedURLs)
	cfg.NewsRefreshInterval = getEnvDuration("NEWS_REFRESH_INTERVAL", 15*time.Minute)
	cfg.NewsFetchTimeout = getEnvDuration("NEWS_FETCH_TIMEOUT", 10*time.Second)
	cfg.NewsFetchMaxSize = getEnvInt64("NEWS_FETCH_MAX_SIZE", 5242880)
	cfg.NewsMaxConcurrent = getEnvInt("NEWS_MAX_CONCURRENT", 4)
	cfg.NewsRetentionDays = getEnvInt("NEWS_RETENTION_DAYS", 30)

	var invalid []string
	if cfg.RateLimitGeneral <= 0 {
		invalid = append(invalid, "RATE_LIMIT_GENERAL")
	}
	if cfg.RateLimitNewsRefresh <= 0 {
		invalid = append(invalid, "RATE_LIMIT_NEWS_REFRESH")
	}
	if cfg.NewsRefreshInterval <= 0 {
		invalid = append(invalid, "NEWS_REFRESH_INTERVAL")
	}
	if cfg.NewsMaxConcurrent <= 0 {
		invalid = append(invalid, "NEWS_MAX_CONCURRENT")
	}
	if cfg.NewsRetentionDays <= 0 {
		invalid = append(invalid, "NEWS_RETENTION_DAYS")
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("environment variables must be positive: %v", invalid)
	}

	return cfg, nil
}

// ParseLogLevel はLOG_LEVELの値をslog.Levelに変換する。
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList はカンマ区切りの値を分割する。空要素は除外する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
