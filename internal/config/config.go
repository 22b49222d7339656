// internal/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const (
	DefaultStoreRoot = ".mgit"
	DefaultLogLevel  = "info"
)

type Config struct {
	StoreRoot string `json:"store_root"`
	LogLevel  string `json:"log_level"` // debug, info, warn, error

	Compression struct {
		Level int `json:"level"` // zstd level, 1 (fastest) to 22
	} `json:"compression"`

	CacheSize int `json:"cache_size"` // known-object LRU entries
	Workers   int `json:"workers"`    // parallel object writes during add
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		StoreRoot: DefaultStoreRoot,
		LogLevel:  DefaultLogLevel,
		CacheSize: 1024,
		Workers:   4,
	}
	cfg.Compression.Level = 3
	return cfg
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.StoreRoot == "" {
		return errors.New("store_root must not be empty")
	}
	if c.Compression.Level < 1 || c.Compression.Level > 22 {
		return fmt.Errorf("compression.level %d out of range 1..22", c.Compression.Level)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}
