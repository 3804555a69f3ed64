// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for ledger-go. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
// Every setting lives in a named section; there are no flat top-level keys.
type Config struct {
	API        APIConfig        `toml:"api"`
	Session    SessionConfig    `toml:"session"`
	Federation FederationConfig `toml:"federation"`
	Cache      CacheConfig      `toml:"cache"`
	Logging    LoggingConfig    `toml:"logging"`
	Network    NetworkConfig    `toml:"network"`
}

// APIConfig locates the finance service and its auth endpoints. Paths are
// relative to BaseURL.
type APIConfig struct {
	BaseURL       string `toml:"base_url"`
	IdentityPath  string `toml:"identity_path"`
	LoginPath     string `toml:"login_path"`
	CallbackPath  string `toml:"callback_path"`
	ResourcesPath string `toml:"resources_path"`
}

// SessionConfig controls where the credential is persisted and whether
// locally expired credentials are discarded before a network round trip.
type SessionConfig struct {
	CredentialStore string `toml:"credential_store"`
	TokenFile       string `toml:"token_file"`
	Database        string `toml:"database"`
	CheckExpiry     bool   `toml:"check_expiry"`
}

// FederationConfig describes the external identity provider used by
// `login --browser`. The authorization code it returns is exchanged by the
// finance service, so no client secret is configured here.
type FederationConfig struct {
	AuthorizeURL string   `toml:"authorize_url"`
	ClientID     string   `toml:"client_id"`
	Scopes       []string `toml:"scopes"`
	RedirectPort int      `toml:"redirect_port"`
}

// CacheConfig controls the persisted query cache used by --offline.
type CacheConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoggingConfig controls log output: level and handler format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
	MaxRetries     int    `toml:"max_retries"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty strings mean "not specified".
type CLIOverrides struct {
	ConfigPath      string // --config
	BaseURL         string // --base-url
	CredentialStore string // --credential-store
}

// Resolved is the effective configuration after the override chain has
// been applied, with durations parsed and storage paths made absolute.
type Resolved struct {
	API        APIConfig
	Federation FederationConfig
	Logging    LoggingConfig

	CredentialStore string
	TokenFile       string
	Database        string
	CheckExpiry     bool
	CacheEnabled    bool

	ConnectTimeout time.Duration
	DataTimeout    time.Duration
	UserAgent      string
	MaxRetries     int

	// ConfigPath is the file the configuration was read from, or the path
	// that would have been read when no file exists.
	ConfigPath string
}
