package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/churchfinance/ledger-go/internal/session"
)

var flagWatchInterval time.Duration

const defaultRevalidateInterval = 5 * time.Minute

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the session as it changes",
		Long: `Print a line whenever the session changes: a login or logout in
another terminal, or the service rejecting the credential. The credential
is re-checked every --interval. Runs until interrupted.`,
		RunE: runWatch,
	}

	cmd.Flags().DurationVar(&flagWatchInterval, "interval", defaultRevalidateInterval, "how often to re-check the credential")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if flagWatchInterval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", flagWatchInterval)
	}

	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	return withApp(ctx, func(a *app) error {
		// Once the PID file exists other processes may send SIGHUP, which
		// must not kill us before Follow starts listening for it.
		signal.Ignore(syscall.SIGHUP)

		cleanup, err := writePIDFile(a.watchPIDPath())
		if err != nil {
			return err
		}
		defer cleanup()

		printSessionChange(a.resolve(ctx))

		unsubscribe := a.session.OnChange(printSessionChange)
		defer unsubscribe()

		go func() {
			if err := a.session.Follow(ctx, a.watcher()); err != nil {
				logger.Warn("credential watch stopped", slog.String("error", err.Error()))
			}
		}()

		revalidateLoop(ctx, a.session, flagWatchInterval)

		return nil
	})
}

// revalidateLoop re-checks the session every interval until ctx ends.
func revalidateLoop(ctx context.Context, m *session.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Revalidate(ctx)
		}
	}
}

func printSessionChange(st session.State) {
	stamp := time.Now().Format(time.TimeOnly)

	switch {
	case st.Identity != nil:
		fmt.Fprintf(os.Stdout, "%s %s %s (%s)\n", stamp, formatStatus(st.Status()),
			st.Identity.Email, st.Identity.Role)
	case st.Expired():
		fmt.Fprintf(os.Stdout, "%s %s session expired\n", stamp, formatStatus(st.Status()))
	case errors.Is(st.Err, session.ErrLoggedOut):
		fmt.Fprintf(os.Stdout, "%s %s logged out\n", stamp, formatStatus(st.Status()))
	default:
		fmt.Fprintf(os.Stdout, "%s %s\n", stamp, formatStatus(st.Status()))
	}
}
