// Package config loads the ledger configuration from TOML.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Duration is a time.Duration that decodes from strings like "5s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the ledger configuration
type Config struct {
	Actor   ActorConfig   `toml:"actor"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// ActorConfig configures the actor system
type ActorConfig struct {
	MailboxSize     int      `toml:"mailbox_size"`
	RequestTimeout  Duration `toml:"request_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// StorageConfig selects where contract snapshots are kept
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Actor: ActorConfig{
			MailboxSize:     1000,
			RequestTimeout:  Duration{5 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decode config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.Actor.MailboxSize <= 0 {
		return errors.Errorf("actor.mailbox_size must be positive, got %d", c.Actor.MailboxSize)
	}
	if c.Actor.RequestTimeout.Duration <= 0 {
		return errors.New("actor.request_timeout must be positive")
	}
	if c.Actor.ShutdownTimeout.Duration <= 0 {
		return errors.New("actor.shutdown_timeout must be positive")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the badger backend")
		}
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "disabled":
	default:
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
