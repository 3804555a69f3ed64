package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/churchfinance/ledger-go/internal/session"
)

var (
	flagLoginEmail    string
	flagPasswordStdin bool
	flagLoginBrowser  bool
	flagCallbackURL   string
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the finance service",
		Long: `Sign in with an email and password, or with --browser through the
configured identity provider. --callback-url completes a federated login
from a redirect URL copied out of a browser.`,
		RunE: runLogin,
	}

	cmd.Flags().StringVar(&flagLoginEmail, "email", "", "account email")
	cmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().BoolVar(&flagLoginBrowser, "browser", false, "sign in through the identity provider")
	cmd.Flags().StringVar(&flagCallbackURL, "callback-url", "", "finish a federated login from its redirect URL")
	cmd.MarkFlagsMutuallyExclusive("email", "browser", "callback-url")
	cmd.MarkFlagsMutuallyExclusive("password-stdin", "browser", "callback-url")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved credential",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in user and role",
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withApp(ctx, func(a *app) error {
		var res session.LoginResult

		switch {
		case flagCallbackURL != "":
			return loginFromRedirect(ctx, a, flagCallbackURL)

		case flagLoginBrowser:
			res = a.session.LoginWithBrowser(ctx, a.federation(), openBrowser)

		default:
			email, password, err := readCredentials(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}

			res = a.session.Login(ctx, email, password)
		}

		if !res.Success {
			return fmt.Errorf("login failed: %s", res.Err)
		}

		a.announceChange()
		statusf(flagQuiet, "Signed in as %s (%s).\n", res.Identity.DisplayName, res.Identity.Role)

		return nil
	})
}

// loginFromRedirect completes a federated login from the provider's
// redirect URL. A failed exchange keeps any existing session.
func loginFromRedirect(ctx context.Context, a *app, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing callback URL: %w", err)
	}

	if _, ok := session.CodeFromURL(u); !ok {
		return errors.New("callback URL carries no authorization code")
	}

	res := a.session.LoginWithRedirect(ctx, u)
	if !res.Success {
		return fmt.Errorf("login failed: %s", res.Err)
	}

	a.announceChange()

	statusf(flagQuiet, "Signed in as %s (%s).\n", res.Identity.DisplayName, res.Identity.Role)

	return nil
}

// readCredentials collects the email and password. The password comes from
// stdin with --password-stdin, from a hidden prompt on a terminal, and is
// read as a plain line otherwise.
func readCredentials(in *os.File, prompt io.Writer) (email, password string, err error) {
	reader := bufio.NewReader(in)
	email = flagLoginEmail

	if email == "" {
		if flagPasswordStdin {
			return "", "", errors.New("--password-stdin requires --email")
		}

		fmt.Fprint(prompt, "Email: ")

		if email, err = readLine(reader); err != nil {
			return "", "", err
		}
	}

	switch {
	case flagPasswordStdin:
		password, err = readLine(reader)
	case isatty.IsTerminal(in.Fd()):
		fmt.Fprint(prompt, "Password: ")

		var b []byte
		b, err = term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(prompt)
		password = string(b)
	default:
		password, err = readLine(reader)
	}

	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}

	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}

	return email, password, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// federation returns the identity provider settings from the config.
func (a *app) federation() session.Federation {
	return session.Federation{
		AuthorizeURL: a.cfg.Federation.AuthorizeURL,
		ClientID:     a.cfg.Federation.ClientID,
		Scopes:       a.cfg.Federation.Scopes,
		RedirectPort: a.cfg.Federation.RedirectPort,
	}
}

// openBrowser prints the sign-in URL and tries to open it. The URL is
// always printed so a headless login can be finished from another machine.
func openBrowser(u string) error {
	fmt.Fprintf(os.Stderr, "To sign in, visit: %s\n", u)

	var c *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", u)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		c = exec.Command("xdg-open", u)
	}

	// Failing to launch a browser is not an error; the URL is on screen.
	_ = c.Start()

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.session.Logout(); err != nil {
			return err
		}

		a.announceChange()

		statusf(flagQuiet, "Logged out.\n")

		return nil
	})
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Views       []string `json:"views"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		id, err := a.requireSession(cmd.Context())
		if err != nil {
			return err
		}

		out := whoamiOutput{
			ID:          id.ID,
			DisplayName: id.DisplayName,
			Email:       id.Email,
			Role:        id.Role,
			Views:       []string{},
		}

		for _, v := range visibleViews(id.Role) {
			out.Views = append(out.Views, string(v))
		}

		if flagJSON {
			return printJSON(os.Stdout, out)
		}

		fmt.Printf("User:  %s (%s)\n", out.DisplayName, out.Email)
		fmt.Printf("ID:    %s\n", out.ID)
		fmt.Printf("Role:  %s\n", out.Role)
		fmt.Printf("Views: %s\n", strings.Join(out.Views, ", "))

		return nil
	})
}
