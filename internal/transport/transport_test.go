package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeListener struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (l *fakeListener) Start(ctx context.Context) error {
	l.started.Store(true)
	if l.startErr != nil {
		return l.startErr
	}
	<-ctx.Done()
	return nil
}

func (l *fakeListener) Stop(context.Context) error {
	l.stopped.Store(true)
	return nil
}

func TestServe_StopsAllOnCancel(t *testing.T) {
	t.Parallel()

	a, b := &fakeListener{}, &fakeListener{}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, a, b) }()

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	for i, l := range []*fakeListener{a, b} {
		if !l.stopped.Load() {
			t.Errorf("listener %d was not stopped", i)
		}
	}
}

func TestServe_FailingListenerStopsOthers(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := &fakeListener{startErr: boom}
	healthy := &fakeListener{}

	err := Serve(context.Background(), failing, healthy)
	if !errors.Is(err, boom) {
		t.Fatalf("Serve() error = %v, want %v", err, boom)
	}
	if !healthy.stopped.Load() {
		t.Fatal("healthy listener was not stopped")
	}
}
