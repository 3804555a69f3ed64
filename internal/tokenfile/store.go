package tokenfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/oauth2"
)

// Store adapts a token file to the session credential store contract:
// one opaque credential string at a fixed location.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted credential, or "" when none is stored.
func (s *Store) Load() (string, error) {
	tok, err := Load(s.path)
	if err != nil {
		return "", err
	}

	if tok == nil {
		return "", nil
	}

	return tok.AccessToken, nil
}

// Save persists credential, replacing any previous one.
func (s *Store) Save(credential string) error {
	if err := Save(s.path, &oauth2.Token{AccessToken: credential, TokenType: "Bearer"}); err != nil {
		return err
	}

	s.logger.Debug("credential saved", slog.String("path", s.path))

	return nil
}

// Clear removes the persisted credential.
func (s *Store) Clear() error {
	if err := Remove(s.path); err != nil {
		return err
	}

	s.logger.Debug("credential cleared", slog.String("path", s.path))

	return nil
}

// Watch calls onChange whenever the credential file is created, rewritten,
// renamed over, or removed by any process. It blocks until ctx is canceled.
// The parent directory is watched rather than the file itself because Save
// replaces the file by rename, which would orphan a file-level watch.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(s.path)
	name := filepath.Base(s.path)

	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tokenfile: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("tokenfile: watching %s: %w", dir, err)
	}

	s.logger.Info("watching credential file", slog.String("path", s.path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(ev.Name) != name || (ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write)) {
				continue
			}

			s.logger.Debug("credential file changed",
				slog.String("path", s.path),
				slog.String("op", ev.Op.String()),
			)

			onChange()

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			s.logger.Warn("credential watcher error", slog.String("error", werr.Error()))
		}
	}
}
