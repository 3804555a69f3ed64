package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command.
func RenderEffective(rc *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (from %s)\n\n", rc.ConfigPath)

	ew.printf("[api]\n")
	ew.printf("  base_url       = %q\n", rc.API.BaseURL)
	ew.printf("  identity_path  = %q\n", rc.API.IdentityPath)
	ew.printf("  login_path     = %q\n", rc.API.LoginPath)
	ew.printf("  callback_path  = %q\n", rc.API.CallbackPath)
	ew.printf("  resources_path = %q\n\n", rc.API.ResourcesPath)

	ew.printf("[session]\n")
	ew.printf("  credential_store = %q\n", rc.CredentialStore)
	ew.printf("  token_file       = %q\n", rc.TokenFile)
	ew.printf("  database         = %q\n", rc.Database)
	ew.printf("  check_expiry     = %t\n\n", rc.CheckExpiry)

	ew.printf("[federation]\n")

	if rc.Federation.AuthorizeURL == "" {
		ew.printf("  # disabled (no authorize_url)\n\n")
	} else {
		ew.printf("  authorize_url = %q\n", rc.Federation.AuthorizeURL)
		ew.printf("  client_id     = %q\n", rc.Federation.ClientID)
		ew.printf("  scopes        = [%s]\n", joinQuoted(rc.Federation.Scopes))
		ew.printf("  redirect_port = %d\n\n", rc.Federation.RedirectPort)
	}

	ew.printf("[cache]\n")
	ew.printf("  enabled = %t\n\n", rc.CacheEnabled)

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", rc.Logging.LogLevel)
	ew.printf("  log_format = %q\n\n", rc.Logging.LogFormat)

	ew.printf("[network]\n")
	ew.printf("  connect_timeout = %q\n", rc.ConnectTimeout)
	ew.printf("  data_timeout    = %q\n", rc.DataTimeout)

	if rc.UserAgent != "" {
		ew.printf("  user_agent      = %q\n", rc.UserAgent)
	}

	ew.printf("  max_retries     = %d\n", rc.MaxRetries)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func joinQuoted(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}

	return strings.Join(quoted, ", ")
}
