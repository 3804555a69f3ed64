package config

// Default values for configuration options. These are "layer 0" of the
// override chain and work against a locally running finance service.
const (
	defaultBaseURL         = "http://localhost:8000/api/v1"
	defaultIdentityPath    = "/identity"
	defaultLoginPath       = "/auth/login"
	defaultCallbackPath    = "/auth/federated-callback"
	defaultResourcesPath   = "/resources"
	defaultCredentialStore = StoreFile
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultConnectTimeout  = "10s"
	defaultDataTimeout     = "60s"
	defaultMaxRetries      = 5
)

// Credential store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

var defaultScopes = []string{"openid", "profile", "email"}

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset fields keep defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       defaultBaseURL,
			IdentityPath:  defaultIdentityPath,
			LoginPath:     defaultLoginPath,
			CallbackPath:  defaultCallbackPath,
			ResourcesPath: defaultResourcesPath,
		},
		Session: SessionConfig{
			CredentialStore: defaultCredentialStore,
			CheckExpiry:     true,
		},
		Federation: FederationConfig{
			Scopes: append([]string(nil), defaultScopes...),
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
			MaxRetries:     defaultMaxRetries,
		},
	}
}
