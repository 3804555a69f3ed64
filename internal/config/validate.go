package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minConnectTimeout = 1 * time.Second
	minDataTimeout    = 5 * time.Second
	maxRetriesLimit   = 10
	maxPort           = 65535
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateFederation(&cfg.Federation)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	if err := validateAbsoluteURL(a.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("base_url: %w", err))
	}

	paths := []struct {
		key, value string
	}{
		{"identity_path", a.IdentityPath},
		{"login_path", a.LoginPath},
		{"callback_path", a.CallbackPath},
		{"resources_path", a.ResourcesPath},
	}

	for _, p := range paths {
		if !strings.HasPrefix(p.value, "/") {
			errs = append(errs, fmt.Errorf("%s: must start with /, got %q", p.key, p.value))
		}
	}

	return errs
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http or https URL, got %q", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}

	return nil
}

var validCredentialStores = map[string]bool{
	StoreFile:   true,
	StoreSQLite: true,
}

func validateSession(s *SessionConfig) []error {
	if !validCredentialStores[s.CredentialStore] {
		return []error{fmt.Errorf("credential_store: must be one of file, sqlite; got %q", s.CredentialStore)}
	}

	return nil
}

func validateFederation(f *FederationConfig) []error {
	var errs []error

	// Federation is optional; an empty authorize_url disables login --browser.
	if f.AuthorizeURL != "" {
		if err := validateAbsoluteURL(f.AuthorizeURL); err != nil {
			errs = append(errs, fmt.Errorf("authorize_url: %w", err))
		}

		if f.ClientID == "" {
			errs = append(errs, errors.New("client_id: required when authorize_url is set"))
		}
	}

	if f.RedirectPort < 0 || f.RedirectPort > maxPort {
		errs = append(errs, fmt.Errorf("redirect_port: must be between 0 and %d, got %d", maxPort, f.RedirectPort))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", n.DataTimeout, minDataTimeout)...)

	if n.MaxRetries < 0 || n.MaxRetries > maxRetriesLimit {
		errs = append(errs, fmt.Errorf("max_retries: must be between 0 and %d, got %d", maxRetriesLimit, n.MaxRetries))
	}

	return errs
}

func validateDurationMin(key, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", key, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be at least %s, got %s", key, minimum, value)}
	}

	return nil
}
