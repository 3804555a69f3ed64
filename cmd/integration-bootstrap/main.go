// Command integration-bootstrap signs in to a disposable finance service and
// saves the credential under .testdata/ for the e2e tests.
//
// Usage: go run ./cmd/integration-bootstrap
//
// Reads LEDGER_GO_TEST_BASE_URL, LEDGER_GO_TEST_EMAIL and
// LEDGER_GO_TEST_PASSWORD from the environment or .env.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/churchfinance/ledger-go/internal/api"
	"github.com/churchfinance/ledger-go/internal/session"
	"github.com/churchfinance/ledger-go/internal/tokenfile"
	"github.com/churchfinance/ledger-go/testutil"
)

func main() {
	root := testutil.FindModuleRoot(".")
	testutil.LoadDotEnv(filepath.Join(root, ".env"))
	baseURL := testutil.ValidateTestService()

	email := os.Getenv(testutil.EnvTestEmail)
	password := os.Getenv(testutil.EnvTestPassword)

	if email == "" || password == "" {
		fmt.Fprintf(os.Stderr, "%s and %s must be set\n", testutil.EnvTestEmail, testutil.EnvTestPassword)
		os.Exit(1)
	}

	logger := slog.Default()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	path := filepath.Join(root, ".testdata", testutil.CredentialFileName)
	client := api.NewClient(baseURL, &http.Client{Timeout: 30 * time.Second}, nil, logger, "ledger-go-bootstrap")
	mgr := session.NewManager(client, tokenfile.NewStore(path, logger), session.WithLogger(logger))

	res := mgr.Login(ctx, email, password)
	if !res.Success {
		fmt.Fprintf(os.Stderr, "login failed: %s\n", res.Err)
		os.Exit(1)
	}

	fmt.Printf("Signed in as %s (%s). Credential saved to %s\n", res.Identity.Email, res.Identity.Role, path)
}
