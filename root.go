package main

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/churchfinance/ledger-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath      string
	flagBaseURL         string
	flagCredentialStore string
	flagJSON            bool
	flagOffline         bool
	flagVerbose         bool
	flagDebug           bool
	flagQuiet           bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Resolved

// Fallback timeouts when no configuration has been resolved.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultDataTimeout    = 60 * time.Second
)

// defaultHTTPClient returns an HTTP client with the configured timeouts.
// The dial timeout bounds connection setup; the overall timeout bounds a
// whole request including the body.
func defaultHTTPClient() *http.Client {
	connect, data := defaultConnectTimeout, defaultDataTimeout
	if resolvedCfg != nil {
		connect, data = resolvedCfg.ConnectTimeout, resolvedCfg.DataTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect}).DialContext

	return &http.Client{Timeout: data, Transport: transport}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ledger-go",
		Short:   "Church finance ledger client",
		Long:    "A command-line client for the church finance record-keeping service.",
		Version: version,
		// Errors are printed by exitOnError.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "finance service base URL")
	cmd.PersistentFlags().StringVar(&flagCredentialStore, "credential-store", "", "credential store: file or sqlite")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "show cached responses instead of contacting the service")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable info logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newDashboardCmd())
	cmd.AddCommand(newStatementCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer override
// chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	if cmd.Flags().Changed("base-url") {
		cli.BaseURL = flagBaseURL
	}

	if cmd.Flags().Changed("credential-store") {
		cli.CredentialStore = flagCredentialStore
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. The config-file level is the baseline; --verbose, --debug and
// --quiet override it.
func buildLogger() *slog.Logger {
	return newLogger(os.Stderr)
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.Logging.LogFormat
	}

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useTextLogs(format, w) {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

// useTextLogs resolves the "auto" log format: text for a terminal, JSON for
// anything else.
func useTextLogs(format string, w io.Writer) bool {
	switch format {
	case "text":
		return true
	case "json":
		return false
	}

	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
