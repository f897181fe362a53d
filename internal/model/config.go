// Package model holds the run-wide configuration shared by the CLI layer.
package model

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Scheme values accepted by the config file and the CLI.
const (
	SchemeSSH   = "ssh"
	SchemeHTTPS = "https"
)

// DefaultMaxConnections bounds concurrent git processes when neither the
// config file nor the flag says otherwise.
const DefaultMaxConnections = 8

// Config is the optional githerd.yaml file. Every field has a flag
// counterpart; an explicitly set flag wins over the file.
type Config struct {
	MaxConnections *int   `yaml:"max_connections,omitempty"` // nil => default 8, 0 => unlimited
	Scheme         string `yaml:"scheme,omitempty"`          // "", "ssh" or "https"
	Depth          string `yaml:"depth,omitempty"`           // positive integer or "all"
	Verbose        bool   `yaml:"verbose,omitempty"`
}

func DefaultConfig() Config {
	return Config{Depth: "1"}
}

// LoadConfig reads a YAML config, rejecting unknown fields. An empty file
// yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Depth == "" {
		cfg.Depth = DefaultConfig().Depth
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Scheme {
	case "", SchemeSSH, SchemeHTTPS:
	default:
		return fmt.Errorf("scheme must be %q or %q, got %q", SchemeSSH, SchemeHTTPS, c.Scheme)
	}
	if c.MaxConnections != nil && *c.MaxConnections < 0 {
		return fmt.Errorf("max_connections must be non-negative, got %d", *c.MaxConnections)
	}
	return nil
}

// Jobs resolves the effective concurrency cap, 0 meaning unlimited.
func (c Config) Jobs() int {
	if c.MaxConnections == nil {
		return DefaultMaxConnections
	}
	return *c.MaxConnections
}
