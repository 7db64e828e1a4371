// Package config loads the TOML configuration recognized by both the
// server and client binaries: a flat struct-per-section unmarshalled
// from one file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// StorageKind selects the pluggable storage.Backend implementation.
type StorageKind string

const (
	StorageMemory          StorageKind = "memory"
	StorageEmbeddedLog     StorageKind = "embedded-log-store"
	StorageColumnFamily    StorageKind = "column-family-store"
)

// TLSKind selects the securestream.Provider implementation.
type TLSKind string

const (
	TLSCert TLSKind = "cert"
	TLSPSK  TLSKind = "psk"
)

// General holds the general.* options.
type General struct {
	Addr string `toml:"addr"`
}

// Metrics holds the metrics.* options.
type Metrics struct {
	Addr string `toml:"addr"` // empty disables the /metrics endpoint
}

// Storage holds the storage.* options.
type Storage struct {
	Kind StorageKind `toml:"kind"`
	Path string      `toml:"path"`
}

// TLS holds the server.tls / client.tls options.
type TLS struct {
	Kind        TLSKind `toml:"kind"`
	Certificate string  `toml:"certificate"`
	Key         string  `toml:"key"`
	CA          string  `toml:"ca"`
	Domain      string  `toml:"domain"`
	PSK         string  `toml:"psk"`
}

// LogRotation selects the log.rotation option.
type LogRotation string

const (
	RotationHourly LogRotation = "hourly"
	RotationDaily  LogRotation = "daily"
	RotationNever  LogRotation = "never"
)

// Logging holds the log.* options.
type Logging struct {
	Path           string      `toml:"path"`
	Rotation       LogRotation `toml:"rotation"`
	Level          string      `toml:"level"`
	EnableLogFile  bool        `toml:"enable_log_file"`
}

// ServerConfig is the top-level shape of a server's config file.
type ServerConfig struct {
	General General `toml:"general"`
	Storage Storage `toml:"storage"`
	TLS     TLS     `toml:"server"`
	Logging Logging `toml:"log"`
	Metrics Metrics `toml:"metrics"`
}

// ClientConfig is the top-level shape of a client's config file.
type ClientConfig struct {
	General General `toml:"general"`
	TLS     TLS     `toml:"client"`
	Logging Logging `toml:"log"`
}

// LoadServerConfig reads and validates a server config file.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg := new(ServerConfig)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClientConfig reads and validates a client config file.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := new(ClientConfig)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerConfig) defaults() {
	if c.Storage.Kind == "" {
		c.Storage.Kind = StorageMemory
	}
	if c.TLS.Kind == "" {
		c.TLS.Kind = TLSCert
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Rotation == "" {
		c.Logging.Rotation = RotationNever
	}
}

func (c *ClientConfig) defaults() {
	if c.TLS.Kind == "" {
		c.TLS.Kind = TLSCert
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Rotation == "" {
		c.Logging.Rotation = RotationNever
	}
}

// Validate checks the option set for internal consistency, canonicalizing
// key-material paths the way mailproxy.go's generator resolves paths
// relative to a data directory.
func (c *ServerConfig) Validate() error {
	if c.General.Addr == "" {
		return fmt.Errorf("config: general.addr is required")
	}
	switch c.Storage.Kind {
	case StorageMemory:
	case StorageEmbeddedLog, StorageColumnFamily:
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required for %s", c.Storage.Kind)
		}
	default:
		return fmt.Errorf("config: unknown storage kind %q", c.Storage.Kind)
	}
	return validateTLS(&c.TLS)
}

// Validate checks the client option set.
func (c *ClientConfig) Validate() error {
	if c.General.Addr == "" {
		return fmt.Errorf("config: general.addr is required")
	}
	return validateTLS(&c.TLS)
}

func validateTLS(t *TLS) error {
	switch t.Kind {
	case TLSCert:
		if t.Certificate == "" || t.Key == "" {
			return fmt.Errorf("config: tls.certificate and tls.key are required for cert mode")
		}
		var err error
		t.Certificate, err = canonicalize(t.Certificate)
		if err != nil {
			return err
		}
		t.Key, err = canonicalize(t.Key)
		if err != nil {
			return err
		}
		if t.CA != "" {
			t.CA, err = canonicalize(t.CA)
			if err != nil {
				return err
			}
		}
	case TLSPSK:
		if t.PSK == "" {
			return fmt.Errorf("config: tls.psk is required for psk mode")
		}
	default:
		return fmt.Errorf("config: unknown tls kind %q", t.Kind)
	}
	return nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("config: %s: %w", abs, err)
	}
	return abs, nil
}
