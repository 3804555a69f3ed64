// Package tokenfile persists the session credential as a small JSON file at a
// fixed path. The file's absence means "logged out".
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// File is the on-disk format for the credential file. The bearer credential
// is stored as an oauth2.Token so the token type travels with it.
type File struct {
	Token *oauth2.Token `json:"token"`
}

// Load reads a saved token file from disk.
// Returns (nil, nil) if the file does not exist.
func Load(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if tf.Token == nil || tf.Token.AccessToken == "" {
		return nil, fmt.Errorf("tokenfile: %s missing token field (re-login required)", path)
	}

	return tf.Token, nil
}

// Save writes a token file to disk atomically (write-to-temp + rename)
// with 0600 permissions. Never logs token values.
func Save(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(File{Token: tok}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	// Flush before rename so a power loss cannot leave a partial file.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the token file. A missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return nil
}
