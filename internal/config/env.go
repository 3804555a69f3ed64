package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig          = "LEDGER_GO_CONFIG"
	EnvBaseURL         = "LEDGER_GO_BASE_URL"
	EnvCredentialStore = "LEDGER_GO_CREDENTIAL_STORE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath      string // LEDGER_GO_CONFIG: override config file path
	BaseURL         string // LEDGER_GO_BASE_URL: service base URL
	CredentialStore string // LEDGER_GO_CREDENTIAL_STORE: file or sqlite
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		BaseURL:         os.Getenv(EnvBaseURL),
		CredentialStore: os.Getenv(EnvCredentialStore),
	}
}
