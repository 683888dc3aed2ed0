package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents ~/.ordertalk/config.toml.
type Config struct {
	// DataDir overrides the default ~/.ordertalk data directory.
	DataDir string `toml:"data_dir"`

	// UserID is the identity-provider-resolved current user. Empty means
	// unauthenticated: the daemon still starts but cannot open a live
	// connection or send messages.
	UserID string `toml:"user_id"`

	// IdentityTTLSeconds bounds sender identity cache staleness.
	// Zero means the default of five minutes.
	IdentityTTLSeconds int `toml:"identity_ttl_seconds"`

	Storage Storage `toml:"storage"`
}

// Storage configures the attachment blob store.
type Storage struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`

	// PublicBaseURL is the externally resolvable base for uploaded objects.
	// Empty means URLs are derived from Endpoint and Bucket.
	PublicBaseURL string `toml:"public_base_url"`

	// KeyPrefix namespaces uploads; chat attachments land under
	// "<KeyPrefix>/<conversation-id>/...". Other upload flows reuse the
	// store with their own prefix.
	KeyPrefix string `toml:"key_prefix"`
}

// Load reads config from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// DefaultPath returns ~/.ordertalk/config.toml.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// IdentityTTL returns the configured cache TTL or the default.
func (c *Config) IdentityTTL() time.Duration {
	if c.IdentityTTLSeconds > 0 {
		return time.Duration(c.IdentityTTLSeconds) * time.Second
	}
	return 5 * time.Minute
}

// Dir returns the resolved data directory.
func (c *Config) Dir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return defaultDataDir()
}

// DBPath returns the sqlite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir(), "ordertalk.db")
}

// LogPath returns the daemon log file path inside the data directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir(), "logs", "ordertalkd.log")
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ordertalk")
}
