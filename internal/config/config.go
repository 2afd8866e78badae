package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// 上游交易API
	TradeAPIURL     string
	UpstreamTimeout time.Duration
	TradeCacheTTL   time.Duration

	// 缓存后端: memory | redis
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ExcludeStationIDs   []string
	ExcludeCommodityIDs []string

	RefdataDir  string
	DatabaseURL string

	RevalidateRate  float64
	RevalidateBurst int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		TradeAPIURL:     getEnv("TRADE_API_URL", "https://dummy.com/trade/"),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		TradeCacheTTL:   getDuration("TRADE_CACHE_TTL", 600*time.Second),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		ExcludeStationIDs:   ParseIDList(getEnvAny([]string{"EXCLUDE_STATION_IDS", "NEXT_PUBLIC_EXCLUDE_STATION_IDS"}, "")),
		ExcludeCommodityIDs: ParseIDList(getEnvAny([]string{"EXCLUDE_COMMODITY_IDS", "NEXT_PUBLIC_EXCLUDE_COMMODITY_IDS"}, "")),

		RefdataDir:  getEnv("REFDATA_DIR", "./public/db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RevalidateRate:  getFloat("REVALIDATE_RATE", 1),
		RevalidateBurst: getInt("REVALIDATE_BURST", 5),
	}
}

// ParseIDList splits a comma separated id list. Newlines are removed before
// splitting so multi-line env values still work; empty entries are dropped.
func ParseIDList(raw string) []string {
	raw = strings.NewReplacer("\r", "", "\n", "").Replace(raw)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
