package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/churchfinance/ledger-go/internal/config"
	"github.com/churchfinance/ledger-go/internal/session"
)

// Credential state constants for status reporting.
const (
	credentialMissing  = "missing"
	credentialExpired  = "expired"
	credentialRejected = "rejected"
	credentialValid    = "valid"
	credentialUnknown  = "unverified"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session, credential store and service",
		Long: `Resolve the stored credential and report whether it is valid, when it
expires, and who it belongs to. Never fails because the session is
signed out.`,
		RunE: runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Service         string     `json:"service"`
	CredentialStore string     `json:"credential_store"`
	StorePath       string     `json:"store_path"`
	Session         string     `json:"session"`
	Credential      string     `json:"credential"`
	Reason          string     `json:"reason,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	User            string     `json:"user,omitempty"`
	Role            string     `json:"role,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		out := buildStatus(ctx, a)

		if flagJSON {
			return printJSON(os.Stdout, out)
		}

		printStatusText(out)

		return nil
	})
}

func buildStatus(ctx context.Context, a *app) statusOutput {
	out := statusOutput{
		Service:         a.cfg.API.BaseURL,
		CredentialStore: a.cfg.CredentialStore,
		StorePath:       a.storePath(),
	}

	// Read the raw credential before resolving: a rejected one is discarded.
	raw, err := a.creds.Load()
	if err != nil {
		a.logger.Warn("reading credential for status", slog.String("error", err.Error()))
	}

	if exp, ok := session.Expiry(raw); ok {
		out.ExpiresAt = &exp
	}

	st := a.resolve(ctx)
	out.Session = st.Status().String()
	out.Credential = credentialState(raw, st)

	if st.Err != nil && !errors.Is(st.Err, session.ErrNoCredential) {
		out.Reason = st.Err.Error()
	}

	if st.Identity != nil {
		out.User = st.Identity.Email
		out.Role = st.Identity.Role
	}

	return out
}

// credentialState summarizes the stored credential after resolution.
func credentialState(raw string, st session.State) string {
	switch {
	case raw == "":
		return credentialMissing
	case st.Identity != nil:
		return credentialValid
	case errors.Is(st.Err, session.ErrCredentialRejected):
		return credentialRejected
	case st.Expired():
		return credentialExpired
	default:
		return credentialUnknown
	}
}

func (a *app) storePath() string {
	if a.cfg.CredentialStore == config.StoreSQLite {
		return a.cfg.Database
	}

	return a.cfg.TokenFile
}

func printStatusText(out statusOutput) {
	fmt.Printf("Service:    %s\n", out.Service)
	fmt.Printf("Store:      %s (%s)\n", out.CredentialStore, out.StorePath)
	fmt.Printf("Session:    %s\n", out.Session)
	fmt.Printf("Credential: %s\n", out.Credential)

	if out.ExpiresAt != nil {
		fmt.Printf("Expires:    %s\n", formatTime(out.ExpiresAt.Local()))
	}

	if out.User != "" {
		fmt.Printf("User:       %s (%s)\n", out.User, out.Role)
	}

	switch out.Credential {
	case credentialMissing:
		fmt.Println("\nNot signed in. Run 'ledger-go login' to get started.")
	case credentialExpired:
		fmt.Println("\nYour session expired. Run 'ledger-go login' to sign in again.")
	case credentialRejected:
		fmt.Println("\nThe service no longer accepts the saved credential. Run 'ledger-go login'.")
	case credentialUnknown:
		fmt.Printf("\nCould not verify the saved credential: %s\n", out.Reason)
	}
}
