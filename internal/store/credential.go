package store

import (
	"context"
	"log/slog"
)

// CredentialKey is the fixed key the session credential is stored under.
const CredentialKey = "credential"

// Credentials adapts the key/value table to the session's credential store.
// An empty or absent value means logged out.
type Credentials struct {
	db *DB
}

// Credentials returns the credential store backed by d.
func (d *DB) Credentials() *Credentials {
	return &Credentials{db: d}
}

// Load returns the persisted credential, or "" if there is none.
func (c *Credentials) Load() (string, error) {
	v, _, err := c.db.Get(context.Background(), CredentialKey)

	return v, err
}

// Save persists credential.
func (c *Credentials) Save(credential string) error {
	if err := c.db.Put(context.Background(), CredentialKey, credential); err != nil {
		return err
	}

	c.db.logger.Debug("credential saved", slog.String("db_path", c.db.path))

	return nil
}

// Clear removes the persisted credential.
func (c *Credentials) Clear() error {
	return c.db.Delete(context.Background(), CredentialKey)
}
