// Package testutil provides shared test environment helpers for E2E and
// integration tests. It depends only on stdlib so that E2E tests (which
// cannot import internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the live-service tests.
const (
	EnvTestBaseURL         = "LEDGER_GO_TEST_BASE_URL"
	EnvAllowedTestServices = "LEDGER_GO_ALLOWED_TEST_SERVICES"
	EnvTestEmail           = "LEDGER_GO_TEST_EMAIL"
	EnvTestPassword        = "LEDGER_GO_TEST_PASSWORD"
)

// CredentialFileName is the bootstrapped credential inside .testdata/.
const CredentialFileName = "credential.json"

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ValidateTestService exits the process unless LEDGER_GO_TEST_BASE_URL is
// set and listed in LEDGER_GO_ALLOWED_TEST_SERVICES. Live tests create and
// delete records, so they must never reach a ledger that is not explicitly
// marked as disposable. Returns the base URL.
func ValidateTestService() string {
	allowlist := os.Getenv(EnvAllowedTestServices)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvAllowedTestServices)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintf(os.Stderr, "Example: %s=http://localhost:8000/api/v1\n", EnvAllowedTestServices)
		os.Exit(1)
	}

	baseURL := os.Getenv(EnvTestBaseURL)
	if baseURL == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvTestBaseURL)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(baseURL, "/") {
			return baseURL
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n",
		EnvTestBaseURL, baseURL, EnvAllowedTestServices, allowlist)
	os.Exit(1)

	return ""
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// FindTestCredentialDir locates .testdata/ relative to the module root.
// Crashes if the directory does not exist.
func FindTestCredentialDir(moduleRoot string) string {
	dir := filepath.Join(moduleRoot, ".testdata")

	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: .testdata/ directory not found at "+dir)
		fmt.Fprintln(os.Stderr, "Run 'go run ./cmd/integration-bootstrap' to create test credentials.")
		os.Exit(1)
	}

	return dir
}

// CopyFile copies a file from src to dst with the given permissions.
// Crashes on failure because tests cannot proceed without the file.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read %s: %v\n", src, err)
		fmt.Fprintln(os.Stderr, "Run 'go run ./cmd/integration-bootstrap' to create test credentials.")
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: creating %s: %v\n", filepath.Dir(dst), err)
		os.Exit(1)
	}

	if err := os.WriteFile(dst, data, perm); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing %s: %v\n", dst, err)
		os.Exit(1)
	}
}
