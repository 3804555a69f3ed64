package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchfinance/ledger-go/internal/session"
)

func TestPrintSessionChange(t *testing.T) {
	oldNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = oldNoColor })

	id := &session.Identity{Email: "treasurer@x.org", Role: roleTreasurer}

	out := captureStdout(t, func() {
		printSessionChange(session.State{Identity: id})
		printSessionChange(session.State{Err: session.ErrCredentialExpired})
		printSessionChange(session.State{Err: session.ErrLoggedOut})
		printSessionChange(session.State{Err: session.ErrNoCredential})
	})

	assert.Contains(t, out, "authenticated treasurer@x.org (Treasurer)")
	assert.Contains(t, out, "unauthenticated session expired")
	assert.Contains(t, out, "unauthenticated logged out")
}

func TestRevalidateLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		revalidateLoop(ctx, session.NewManager(nil, nil), time.Hour)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("revalidateLoop did not return after cancel")
	}
}

func TestNewWatchCmd_RejectsNonPositiveInterval(t *testing.T) {
	clearLedgerEnv(t)

	oldCfg := resolvedCfg
	t.Cleanup(func() { resolvedCfg = oldCfg })

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.toml"), "watch", "--interval", "0s"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--interval must be positive")
}
