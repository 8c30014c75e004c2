package config

import (
	"matatu-server/internal/util"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config provides configuration for the Matatu server
type Config struct {
	loaded         bool
	PGDSN          string `yaml:"pgDsn" envconfig:"pg_dsn"`
	MigrationsPath string `yaml:"migrationsPath" envconfig:"migrations_path"`
	JWT            struct {
		PublicKey  string `yaml:"publicKey" envconfig:"public_key"`
		PrivateKey string `yaml:"privateKey" envconfig:"private_key"`
	}
	Log struct {
		Level             string `yaml:"level"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" envconfig:"disable_access_logs"`
	}
	Game struct {
		// StartDelaySeconds is the countdown once a waiting room has enough players
		StartDelaySeconds int `yaml:"startDelaySeconds" envconfig:"start_delay_seconds"`
		// DisconnectGraceSeconds is how long a disconnected player keeps their seat
		DisconnectGraceSeconds int `yaml:"disconnectGraceSeconds" envconfig:"disconnect_grace_seconds"`
		// RetentionSeconds is how long a completed room sticks around before disposal
		RetentionSeconds int `yaml:"retentionSeconds" envconfig:"retention_seconds"`
		// MatchTimeoutSeconds is how long a quick-match request may wait in a bucket
		MatchTimeoutSeconds int `yaml:"matchTimeoutSeconds" envconfig:"match_timeout_seconds"`
		// MaxStakeLoss caps how many points a single player can lose in one game
		MaxStakeLoss int `yaml:"maxStakeLoss" envconfig:"max_stake_loss"`
	}
}

var config Config

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration
func Load() error {
	configFile := util.Getenv("MATATU_CONFIG_FILE", "config.yaml")

	config = Config{}
	file, err := os.Open(configFile)
	if err == nil {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		// a missing file is fine; the environment takes over
		return err
	}

	if err := envconfig.Process("matatu", &config); err != nil {
		return err
	}

	setDefaults(&config)
	config.loaded = true
	return nil
}

func setDefaults(c *Config) {
	if c.Game.StartDelaySeconds <= 0 {
		c.Game.StartDelaySeconds = 3
	}

	if c.Game.DisconnectGraceSeconds <= 0 {
		c.Game.DisconnectGraceSeconds = 30
	}

	if c.Game.RetentionSeconds <= 0 {
		c.Game.RetentionSeconds = 30
	}

	if c.Game.MatchTimeoutSeconds <= 0 {
		c.Game.MatchTimeoutSeconds = 60
	}

	if c.Game.MaxStakeLoss <= 0 {
		c.Game.MaxStakeLoss = 500
	}
}

// StartDelay returns the auto-start countdown as a duration
func (c Config) StartDelay() time.Duration {
	return time.Duration(c.Game.StartDelaySeconds) * time.Second
}

// DisconnectGrace returns the reconnect window as a duration
func (c Config) DisconnectGrace() time.Duration {
	return time.Duration(c.Game.DisconnectGraceSeconds) * time.Second
}

// Retention returns the completed-room retention window as a duration
func (c Config) Retention() time.Duration {
	return time.Duration(c.Game.RetentionSeconds) * time.Second
}

// MatchTimeout returns the quick-match expiry as a duration
func (c Config) MatchTimeout() time.Duration {
	return time.Duration(c.Game.MatchTimeoutSeconds) * time.Second
}
