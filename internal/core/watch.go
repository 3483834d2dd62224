package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WatchConfig holds the runtime parameters of a WatchUseCase.
type WatchConfig struct {
	// Capacity is the maximum number of entries kept in the buffer.
	Capacity int
}

// WatchView is the observable state of a watch: what the dashboard
// renders.
type WatchView struct {
	Session string          `json:"session,omitempty"`
	Entries []LogEntry      `json:"entries"`
	Loading bool            `json:"loading"`
	// Error is the user-visible message for the current failure. A
	// snapshot failure persists for the whole watch; a stream failure
	// is cleared once the subscriber reconnects.
	Error   string          `json:"error,omitempty"`
	State   ConnectionState `json:"state"`
}

// WatchUseCase owns the lifecycle of at most one active Watch. It
// seeds a LogBuffer from the snapshot loader and keeps it current from
// the stream.
type WatchUseCase struct {
	snapshot SnapshotLoader
	stream   StreamSource
	capacity int
	metrics  *watchMetrics
	log      *slog.Logger

	mu     sync.Mutex
	active *Watch

	closeOnce sync.Once
}

// NewWatchUseCase returns a WatchUseCase. It fails if the configured
// capacity is not positive.
func NewWatchUseCase(snapshot SnapshotLoader, stream StreamSource, cfg WatchConfig) (*WatchUseCase, error) {
	if cfg.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	uc := &WatchUseCase{
		snapshot: snapshot,
		stream:   stream,
		capacity: cfg.Capacity,
		log:      slog.Default().With("component", "watch"),
	}

	m, err := newWatchMetrics(func() int { return len(uc.View().Entries) })
	if err != nil {
		return nil, err
	}
	uc.metrics = m

	return uc, nil
}

// Start begins a watch: the snapshot fetch and the stream subscriber
// run concurrently, both feeding a fresh LogBuffer. If a watch is
// already running it is returned unchanged. Cancelling ctx has the
// same effect as calling Stop on the returned Watch.
func (uc *WatchUseCase) Start(ctx context.Context) (*Watch, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.active != nil {
		return uc.active, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.New()
	watchCtx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(watchCtx)

	w := &Watch{
		id:      id.String(),
		buffer:  NewLogBuffer(uc.capacity),
		cancel:  cancel,
		eg:      eg,
		metrics: uc.metrics,
		log:     uc.log.With("session", id.String()),
		loading: true,
		state:   StateDisconnected,
		done:    make(chan struct{}),
		release: uc.release,
	}
	w.sub = uc.stream.NewSubscriber(streamHandler{w: w})

	eg.Go(func() error {
		w.loadSnapshot(egCtx, uc.snapshot)
		return nil
	})
	w.sub.Activate()

	stop := context.AfterFunc(ctx, w.Stop)
	w.mu.Lock()
	w.stopOnCancel = stop
	w.mu.Unlock()

	w.log.Info("watch started", "capacity", uc.capacity)

	uc.active = w
	return w, nil
}

// Stop stops the active watch, if any, and waits for it to release
// its resources.
func (uc *WatchUseCase) Stop() {
	uc.mu.Lock()
	w := uc.active
	uc.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

// View returns the state of the active watch. Without one, it reports
// an empty, disconnected view.
func (uc *WatchUseCase) View() WatchView {
	uc.mu.Lock()
	w := uc.active
	uc.mu.Unlock()

	if w == nil {
		return WatchView{Entries: []LogEntry{}, State: StateDisconnected}
	}
	return w.View()
}

// Close stops the active watch and detaches the use case from the
// metrics pipeline. The use case must not be started again afterwards.
func (uc *WatchUseCase) Close() error {
	var err error
	uc.closeOnce.Do(func() {
		uc.Stop()
		err = uc.metrics.unregister()
	})
	return err
}

// Running reports whether a watch is active.
func (uc *WatchUseCase) Running() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.active != nil
}

func (uc *WatchUseCase) release(w *Watch) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.active == w {
		uc.active = nil
	}
}

// Watch is a handle on one running snapshot+stream session. Its
// buffer and connection state live exactly as long as the watch.
type Watch struct {
	id      string
	buffer  *LogBuffer
	sub     StreamSubscriber
	cancel  context.CancelFunc
	eg      *errgroup.Group
	metrics *watchMetrics
	log     *slog.Logger
	release func(*Watch)

	mu           sync.RWMutex
	stopOnCancel func() bool
	loading      bool
	snapErr      error
	streamErr    error
	state        ConnectionState

	stopOnce sync.Once
	done     chan struct{}
}

// ID returns the session identifier.
func (w *Watch) ID() string {
	return w.id
}

// Done is closed once Stop has completed.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Err returns the snapshot error, if the snapshot fetch failed.
func (w *Watch) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapErr
}

// View returns a consistent copy of the watch state.
func (w *Watch) View() WatchView {
	w.mu.RLock()
	defer w.mu.RUnlock()

	err := w.snapErr
	if err == nil {
		err = w.streamErr
	}

	return WatchView{
		Session: w.id,
		Entries: w.buffer.Entries(),
		Loading: w.loading,
		Error:   ErrorMessage(err),
		State:   w.state,
	}
}

// Stop cancels an in-flight snapshot fetch, deactivates the
// subscriber and waits for both to finish. After Stop returns the
// buffer receives no further mutations. Stop must not be called from
// within a StreamHandler callback.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() {
		// Freeze first so that a message or snapshot response racing
		// the teardown cannot land.
		w.buffer.Close()
		w.cancel()
		w.sub.Deactivate()
		_ = w.eg.Wait()

		w.mu.Lock()
		if w.stopOnCancel != nil {
			w.stopOnCancel()
		}
		w.loading = false
		w.state = StateTerminated
		w.mu.Unlock()

		w.release(w)
		close(w.done)
		w.log.Info("watch stopped")
	})
}

func (w *Watch) loadSnapshot(ctx context.Context, loader SnapshotLoader) {
	entries, err := loader.Fetch(ctx)
	mctx := context.WithoutCancel(ctx)

	if ctx.Err() != nil {
		// Stopped while fetching: nothing to seed or report.
		return
	}

	if err != nil {
		w.metrics.fetched(mctx, "failure")
		w.log.Warn("failed to fetch snapshot", "error", err)

		w.mu.Lock()
		w.snapErr = err
		w.loading = false
		w.mu.Unlock()
		return
	}

	w.metrics.fetched(mctx, "success")
	if w.buffer.Seed(entries) {
		w.log.Debug("seeded buffer from snapshot", "entries", len(entries))
	}

	w.mu.Lock()
	w.loading = false
	w.mu.Unlock()
}

// streamHandler adapts a Watch to StreamHandler without exporting the
// callbacks on Watch itself.
type streamHandler struct {
	w *Watch
}

func (h streamHandler) HandleMessage(entry LogEntry) {
	if !h.w.buffer.Prepend(entry) {
		return
	}
	h.w.metrics.messages.Add(context.Background(), 1)
	h.w.log.Debug("received message", "entry", string(entry))
}

func (h streamHandler) HandleError(err error) {
	h.w.metrics.errors.Add(context.Background(), 1)
	h.w.log.Warn("stream error", "error", err)

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		err = &StreamError{Op: "receive", Err: err}
	}

	h.w.mu.Lock()
	h.w.streamErr = err
	h.w.mu.Unlock()
}

func (h streamHandler) HandleStateChange(state ConnectionState) {
	switch state {
	case StateConnected:
		h.w.log.Info("stream connected")
	case StateReconnecting:
		h.w.metrics.reconnects.Add(context.Background(), 1)
	}

	h.w.mu.Lock()
	defer h.w.mu.Unlock()

	if h.w.state == StateTerminated {
		return
	}
	h.w.state = state
	if state == StateConnected {
		h.w.streamErr = nil
	}
}
