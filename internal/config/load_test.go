package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_url = "https://finance.example.org/api/v1"
identity_path = "/auth/me"
login_path = "/auth/login"
callback_path = "/auth/ms-entra/callback"
resources_path = "/v2"

[session]
credential_store = "sqlite"
token_file = "/tmp/ledger/credential.json"
database = "/tmp/ledger/ledger.db"
check_expiry = false

[federation]
authorize_url = "https://login.example.org/oauth2/v2.0/authorize"
client_id = "ledger-cli"
scopes = ["openid", "email"]
redirect_port = 8400

[cache]
enabled = false

[logging]
log_level = "debug"
log_format = "json"

[network]
connect_timeout = "5s"
data_timeout = "30s"
user_agent = "ledger-go/test"
max_retries = 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/auth/me", cfg.API.IdentityPath)
	assert.Equal(t, "/auth/ms-entra/callback", cfg.API.CallbackPath)
	assert.Equal(t, "/v2", cfg.API.ResourcesPath)
	assert.Equal(t, StoreSQLite, cfg.Session.CredentialStore)
	assert.False(t, cfg.Session.CheckExpiry)
	assert.Equal(t, "ledger-cli", cfg.Federation.ClientID)
	assert.Equal(t, []string{"openid", "email"}, cfg.Federation.Scopes)
	assert.Equal(t, 8400, cfg.Federation.RedirectPort)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, 2, cfg.Network.MaxRetries)
}

func TestLoad_InvalidValueFails(t *testing.T) {
	path := writeTestConfig(t, `
[api]
resources_path = "resources"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resources_path")
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_url = "https://finance.example.org/api/v1"

[logging]
log_level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://finance.example.org/api/v1", cfg.API.BaseURL)
	assert.Equal(t, defaultIdentityPath, cfg.API.IdentityPath)
	assert.Equal(t, "warn", cfg.Logging.LogLevel)
	assert.Equal(t, defaultLogFormat, cfg.Logging.LogFormat)
	assert.Equal(t, StoreFile, cfg.Session.CredentialStore)
	assert.True(t, cfg.Session.CheckExpiry)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_ur = "https://finance.example.org"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "base_url"`)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, `[api`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Defaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "none.toml")

	rc, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: cfgPath})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, rc.API.BaseURL)
	assert.Equal(t, StoreFile, rc.CredentialStore)
	assert.Equal(t, DefaultTokenPath(), rc.TokenFile)
	assert.Equal(t, DefaultDatabasePath(), rc.Database)
	assert.Equal(t, 10*time.Second, rc.ConnectTimeout)
	assert.Equal(t, 60*time.Second, rc.DataTimeout)
	assert.Equal(t, defaultMaxRetries, rc.MaxRetries)
	assert.Equal(t, cfgPath, rc.ConfigPath)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_url = "https://file.example.org"

[session]
credential_store = "file"
`)

	env := EnvOverrides{
		ConfigPath:      path,
		BaseURL:         "https://env.example.org",
		CredentialStore: "sqlite",
	}

	rc, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.org", rc.API.BaseURL)
	assert.Equal(t, StoreSQLite, rc.CredentialStore)

	rc, err = Resolve(env, CLIOverrides{BaseURL: "https://cli.example.org", CredentialStore: "file"})
	require.NoError(t, err)
	assert.Equal(t, "https://cli.example.org", rc.API.BaseURL)
	assert.Equal(t, StoreFile, rc.CredentialStore)
}

func TestResolve_InvalidOverrideRejected(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "none.toml")

	_, err := Resolve(EnvOverrides{CredentialStore: "keychain"}, CLIOverrides{ConfigPath: cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential_store")
}

func TestResolve_TildeExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/testuser")

	path := writeTestConfig(t, `
[session]
token_file = "~/ledger/credential.json"
`)

	rc, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "/home/testuser/ledger/credential.json", rc.TokenFile)
}
