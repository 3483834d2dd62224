// Package watch implements the watch command runtime: a live log view
// kept current from the snapshot endpoint and the STOMP stream, served
// to the dashboard over HTTP.
package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otterscale/logwatch/internal/core"
	"github.com/otterscale/logwatch/internal/transport"
	"github.com/otterscale/logwatch/internal/transport/http"
)

// Config holds the runtime parameters for a Runner.
type Config struct {
	Address        string
	AllowedOrigins []string
}

// Runner runs the log watch and the dashboard API side by side.
type Runner struct {
	handler *Handler
	watch   *core.WatchUseCase
}

// NewRunner returns a Runner for the given handler and use case.
func NewRunner(handler *Handler, watch *core.WatchUseCase) *Runner {
	return &Runner{handler: handler, watch: watch}
}

// Run blocks until ctx is cancelled or either component fails. On
// return the watch has been stopped.
func (r *Runner) Run(ctx context.Context, cfg Config) error {
	httpSrv, err := http.NewServer(
		http.WithAddress(cfg.Address),
		http.WithAllowedOrigins(cfg.AllowedOrigins),
		http.WithMount(r.handler.Mount),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	return transport.Serve(ctx, &watchListener{watch: r.watch}, httpSrv)
}

// watchListener adapts WatchUseCase to transport.Listener so the watch
// shares the server's lifecycle.
type watchListener struct {
	watch *core.WatchUseCase
}

var _ transport.Listener = (*watchListener)(nil)

func (l *watchListener) Start(ctx context.Context) error {
	w, err := l.watch.Start(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("start watch: %w", err)
	}
	<-w.Done()
	return nil
}

// Stop waits for the watch to stop, giving up when ctx expires. The
// teardown carries on in the background in that case.
func (l *watchListener) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.watch.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.Warn("watch did not stop before the shutdown deadline", "error", ctx.Err())
		return ctx.Err()
	}
}
