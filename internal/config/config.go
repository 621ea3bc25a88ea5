// Package config resolves client settings. The launched server publishes
// its URL in mgapi_config.json in the working directory; environment
// variables prefixed MGAPI_ override file values.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// DefaultServerURL is used when neither the server config file nor the
// environment names a server.
const DefaultServerURL = "http://localhost:8000"

// serverConfigFile is written by the job-control server on startup.
const serverConfigFile = "mgapi_config.json"

// Config holds all client settings.
type Config struct {
	ServerURL    string `json:"mgapi_url"`
	TimeoutSec   int    `json:"timeout"`
	RetryCount   int    `json:"retry_count"`
	RetryDelay   int    `json:"retry_delay"`
	RetryBackoff bool   `json:"retry_backoff"`
	Workers      int    `json:"workers"`
	LogFile      string `json:"log_file"`
	DBPath       string `json:"db_path"`
}

// Default returns the built-in client settings.
func Default() Config {
	return Config{
		ServerURL:    DefaultServerURL,
		TimeoutSec:   30,
		RetryCount:   3,
		RetryDelay:   1,
		RetryBackoff: false,
		Workers:      1,
		LogFile:      "logs/mgapi.log",
		DBPath:       "mgapi.db",
	}
}

// Load resolves the effective configuration: defaults, then the server's
// published config file, then MGAPI_* environment variables.
func Load() Config {
	cfg := Default()

	if data, err := os.ReadFile(serverConfigFile); err == nil {
		var fileCfg Config
		if json.Unmarshal(data, &fileCfg) == nil {
			if fileCfg.ServerURL != "" {
				cfg.ServerURL = fileCfg.ServerURL
			}
			if fileCfg.TimeoutSec > 0 {
				cfg.TimeoutSec = fileCfg.TimeoutSec
			}
			if fileCfg.RetryCount > 0 {
				cfg.RetryCount = fileCfg.RetryCount
			}
			if fileCfg.RetryDelay > 0 {
				cfg.RetryDelay = fileCfg.RetryDelay
			}
			if fileCfg.RetryBackoff {
				cfg.RetryBackoff = true
			}
			if fileCfg.Workers > 0 {
				cfg.Workers = fileCfg.Workers
			}
			if fileCfg.LogFile != "" {
				cfg.LogFile = fileCfg.LogFile
			}
			if fileCfg.DBPath != "" {
				cfg.DBPath = fileCfg.DBPath
			}
		}
	}

	if v := os.Getenv("MGAPI_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v, ok := envInt("MGAPI_TIMEOUT"); ok {
		cfg.TimeoutSec = v
	}
	if v, ok := envInt("MGAPI_RETRY_COUNT"); ok {
		cfg.RetryCount = v
	}
	if v, ok := envInt("MGAPI_RETRY_DELAY"); ok {
		cfg.RetryDelay = v
	}
	if v := os.Getenv("MGAPI_RETRY_BACKOFF"); v == "1" || v == "true" {
		cfg.RetryBackoff = true
	}
	if v, ok := envInt("MGAPI_WORKERS"); ok {
		cfg.Workers = v
	}
	if v := os.Getenv("MGAPI_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("MGAPI_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	return cfg
}

// Timeout returns the per-call dispatch timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// RetryInterval returns the base delay between dispatch attempts.
func (c Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
