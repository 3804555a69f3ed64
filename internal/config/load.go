package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Env overrides
	if env.BaseURL != "" {
		cfg.API.BaseURL = env.BaseURL
	}

	if env.CredentialStore != "" {
		cfg.Session.CredentialStore = env.CredentialStore
	}

	// 4. CLI overrides
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}

	if cli.CredentialStore != "" {
		cfg.Session.CredentialStore = cli.CredentialStore
	}

	// Overrides bypassed Load's validation, so check the merged result again.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolve(cfg, cfgPath), nil
}

// resolve flattens a validated Config. Durations were checked by Validate,
// so parse errors cannot occur here.
func resolve(cfg *Config, cfgPath string) *Resolved {
	tokenFile := cfg.Session.TokenFile
	if tokenFile == "" {
		tokenFile = DefaultTokenPath()
	}

	database := cfg.Session.Database
	if database == "" {
		database = DefaultDatabasePath()
	}

	connect, _ := time.ParseDuration(cfg.Network.ConnectTimeout)
	data, _ := time.ParseDuration(cfg.Network.DataTimeout)

	return &Resolved{
		API:             cfg.API,
		Federation:      cfg.Federation,
		Logging:         cfg.Logging,
		CredentialStore: cfg.Session.CredentialStore,
		TokenFile:       expandTilde(tokenFile),
		Database:        expandTilde(database),
		CheckExpiry:     cfg.Session.CheckExpiry,
		CacheEnabled:    cfg.Cache.Enabled,
		ConnectTimeout:  connect,
		DataTimeout:     data,
		UserAgent:       cfg.Network.UserAgent,
		MaxRetries:      cfg.Network.MaxRetries,
		ConfigPath:      cfgPath,
	}
}
