//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/churchfinance/ledger-go/testutil"
)

// validateCredential checks the bootstrapped credential file before tests
// start. E2E tests can't import internal packages, so validation uses
// stdlib JSON.
func validateCredential(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read credential file %s: %v\n", path, err)
		fmt.Fprintln(os.Stderr, "Run 'go run ./cmd/integration-bootstrap' to create test credentials.")
		os.Exit(1)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: credential file %s is not valid JSON: %v\n", path, err)
		os.Exit(1)
	}

	if _, ok := parsed["token"]; !ok {
		fmt.Fprintf(os.Stderr, "FATAL: credential file %s missing \"token\" key\n", path)
		os.Exit(1)
	}
}

// setupIsolation points HOME and the XDG directories at a temp root and
// copies the bootstrapped credential into it, so the binary never touches
// the developer's own session. Returns a cleanup function.
func setupIsolation() func() {
	moduleRoot := findModuleRoot()
	testutil.LoadDotEnv(filepath.Join(moduleRoot, ".env"))
	baseURL = testutil.ValidateTestService()

	credDir := testutil.FindTestCredentialDir(moduleRoot)
	credPath := filepath.Join(credDir, testutil.CredentialFileName)
	validateCredential(credPath)

	os.Unsetenv("LEDGER_GO_CONFIG")
	os.Unsetenv("LEDGER_GO_CREDENTIAL_STORE")

	tempRoot, err := os.MkdirTemp("", "ledger-e2e-isolation-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: creating isolation temp dir: %v\n", err)
		os.Exit(1)
	}

	tempHome := filepath.Join(tempRoot, "home")
	tempConfig := filepath.Join(tempRoot, "config")
	tempData := filepath.Join(tempRoot, "data")

	for _, d := range []string{tempHome, tempConfig, tempData} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: creating dir %s: %v\n", d, err)
			os.Exit(1)
		}
	}

	os.Setenv("HOME", tempHome)
	os.Setenv("XDG_CONFIG_HOME", tempConfig)
	os.Setenv("XDG_DATA_HOME", tempData)
	os.Setenv("LEDGER_GO_BASE_URL", baseURL)

	testutil.CopyFile(credPath, filepath.Join(tempData, "ledger-go", testutil.CredentialFileName), 0o600)

	return func() {
		os.RemoveAll(tempRoot)
	}
}
