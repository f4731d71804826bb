package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// forceExitCode is the exit status after a second interrupt.
const forceExitCode = 130

// shutdownContext returns a context canceled by the first SIGINT/SIGTERM so
// a device-code poll or a watch can stop cleanly. A second signal exits
// immediately. The returned stop releases the signal handler.
func shutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, stopping", slog.String("signal", sig.String()))
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, exiting now", slog.String("signal", sig.String()))
			os.Exit(forceExitCode)
		case <-done:
		}
	}()

	var once sync.Once

	stop := func() {
		cancel()
		once.Do(func() { close(done) })
	}

	return ctx, stop
}
