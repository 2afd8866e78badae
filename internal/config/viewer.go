package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultRefreshInterval = 5 * time.Minute

// Notifier backends. NotifierFile polls the shared storage file, NotifierRedis
// uses pub/sub and NotifierMemory only syncs stores inside one process.
const (
	NotifierFile   = "file"
	NotifierRedis  = "redis"
	NotifierMemory = "memory"
)

// ViewerConfig configures the terminal viewer (cmd/viewer).
type ViewerConfig struct {
	ServerURL       string        `yaml:"server_url"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	StoragePath     string        `yaml:"storage_path"`
	Notifier        string        `yaml:"notifier"`
	WatchInterval   time.Duration `yaml:"watch_interval"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisChannel    string        `yaml:"redis_channel"`
	TradeDBURL      string        `yaml:"trade_db_url"`
	CityDBURL       string        `yaml:"city_db_url"`
}

// LoadViewer reads a YAML file. A missing file yields the defaults.
func LoadViewer(path string) (*ViewerConfig, error) {
	cfg := &ViewerConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("cannot read viewer config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse viewer config: %w", err)
			}
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *ViewerConfig) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.StoragePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.StoragePath = filepath.Join(home, ".trade-viewer", "storage.json")
	}
	c.Notifier = strings.ToLower(strings.TrimSpace(c.Notifier))
	if c.Notifier == "" {
		c.Notifier = NotifierFile
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = time.Second
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.RedisChannel == "" {
		c.RedisChannel = "trade-viewer:storage"
	}
	if c.TradeDBURL == "" {
		c.TradeDBURL = c.ServerURL + "/db/trade_db.json"
	}
	if c.CityDBURL == "" {
		c.CityDBURL = c.ServerURL + "/db/city_db.json"
	}
}
