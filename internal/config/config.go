package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

// Config is the root runtime configuration.
type Config struct {
	Bind     string           `json:"bind" yaml:"bind"`
	APIBind  string           `json:"api_bind" yaml:"api_bind"`
	Lists    []string         `json:"lists" yaml:"lists"`
	Refresh  RefreshConfig    `json:"refresh" yaml:"refresh"`
	Cache    CacheConfig      `json:"cache" yaml:"cache"`
	Bloom    BloomConfig      `json:"bloom" yaml:"bloom"`
	Activity ActivityConfig   `json:"activity" yaml:"activity"`
	Log      logger.LogConfig `json:"log" yaml:"log"`
	Pprof    PprofConfig      `json:"pprof" yaml:"pprof"`
}

// RefreshConfig controls periodic blocklist refetching. Interval is in
// seconds, zero disables the refresh loop.
type RefreshConfig struct {
	Interval   int64 `json:"interval" yaml:"interval"`
	Concurrent int   `json:"concurrent" yaml:"concurrent"`
}

type CacheConfig struct {
	Size int64 `json:"size" yaml:"size"`
}

type BloomConfig struct {
	FalsePositiveRate float64 `json:"false_positive_rate" yaml:"false_positive_rate"`
	ExpectedDomains   int64   `json:"expected_domains" yaml:"expected_domains"`
}

type ActivityConfig struct {
	Size int `json:"size" yaml:"size"`
}

type PprofConfig struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Bind   string `json:"bind" yaml:"bind"`
}

// Load reads the configuration file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefault()
	return cfg, nil
}

func (c *Config) setDefault() {
	if c.Bind == "" {
		c.Bind = ":8118"
	}
	if c.APIBind == "" {
		c.APIBind = ":8119"
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 4096
	}
	if c.Refresh.Concurrent <= 0 {
		c.Refresh.Concurrent = 4
	}
	if c.Activity.Size <= 0 {
		c.Activity.Size = 256
	}
}
