package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// exitCodeInterrupted is the conventional status for a second Ctrl-C.
const exitCodeInterrupted = 130

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second. The first signal lets watch release its PID
// file and close the local database; the second is for when that hangs.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("stopping", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("second signal, exiting immediately", slog.String("signal", sig.String()))
			os.Exit(exitCodeInterrupted)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
