package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv(EnvConfig, "/custom/config.toml")
	t.Setenv(EnvBaseURL, "https://finance.example.org/api/v1")
	t.Setenv(EnvCredentialStore, "sqlite")

	overrides := ReadEnvOverrides()
	assert.Equal(t, "/custom/config.toml", overrides.ConfigPath)
	assert.Equal(t, "https://finance.example.org/api/v1", overrides.BaseURL)
	assert.Equal(t, "sqlite", overrides.CredentialStore)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvCredentialStore, "")

	overrides := ReadEnvOverrides()
	assert.Empty(t, overrides.ConfigPath)
	assert.Empty(t, overrides.BaseURL)
	assert.Empty(t, overrides.CredentialStore)
}

func TestEnvVarConstants(t *testing.T) {
	assert.Equal(t, "LEDGER_GO_CONFIG", EnvConfig)
	assert.Equal(t, "LEDGER_GO_BASE_URL", EnvBaseURL)
	assert.Equal(t, "LEDGER_GO_CREDENTIAL_STORE", EnvCredentialStore)
}
