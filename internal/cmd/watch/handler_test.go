package watch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"

	"github.com/otterscale/logwatch/internal/core"
	"github.com/otterscale/logwatch/internal/transport"
)

type stubLoader struct {
	entries []core.LogEntry
	err     error
}

func (l stubLoader) Fetch(context.Context) ([]core.LogEntry, error) {
	return l.entries, l.err
}

// stubSource hands out subscribers that report Connected on Activate
// and let the test push messages.
type stubSource struct {
	mu      sync.Mutex
	handler core.StreamHandler
}

func (s *stubSource) NewSubscriber(h core.StreamHandler) core.StreamSubscriber {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	return &stubSubscriber{h: h}
}

func (s *stubSource) push(e core.LogEntry) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	h.HandleMessage(e)
}

type stubSubscriber struct {
	mu    sync.Mutex
	h     core.StreamHandler
	state core.ConnectionState
}

func (s *stubSubscriber) Activate() {
	s.mu.Lock()
	s.state = core.StateConnected
	s.mu.Unlock()
	s.h.HandleStateChange(core.StateConnected)
}

func (s *stubSubscriber) Deactivate() {
	s.mu.Lock()
	s.state = core.StateTerminated
	s.mu.Unlock()
	s.h.HandleStateChange(core.StateTerminated)
}

func (s *stubSubscriber) State() core.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// blockingSource hands out subscribers whose Deactivate blocks until
// release is closed.
type blockingSource struct {
	release chan struct{}
}

func (s *blockingSource) NewSubscriber(core.StreamHandler) core.StreamSubscriber {
	return &blockingSubscriber{release: s.release}
}

type blockingSubscriber struct {
	release chan struct{}
}

func (s *blockingSubscriber) Activate() {}

func (s *blockingSubscriber) Deactivate() { <-s.release }

func (s *blockingSubscriber) State() core.ConnectionState { return core.StateConnecting }

type viewBody struct {
	Session string   `json:"session"`
	Entries []string `json:"entries"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error"`
	State   string   `json:"state"`
}

func newTestHandler(t *testing.T, loader core.SnapshotLoader, source core.StreamSource) (*core.WatchUseCase, http.Handler) {
	t.Helper()

	uc, err := core.NewWatchUseCase(loader, source, core.WatchConfig{Capacity: core.DefaultBufferCapacity})
	if err != nil {
		t.Fatalf("NewWatchUseCase() error = %v", err)
	}
	t.Cleanup(func() { _ = uc.Close() })

	mux := http.NewServeMux()
	if err := NewHandler(uc).Mount(mux); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return uc, mux
}

func getView(t *testing.T, h http.Handler) viewBody {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, WatchPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d", WatchPath, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var v viewBody
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

func waitForView(t *testing.T, h http.Handler, cond func(viewBody) bool) viewBody {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		v := getView(t, h)
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("view never reached expected state, last = %+v", v)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandler_IdleView(t *testing.T) {
	_, h := newTestHandler(t, stubLoader{}, &stubSource{})

	v := getView(t, h)
	if v.Session != "" || v.Loading || v.Error != "" {
		t.Fatalf("idle view = %+v", v)
	}
	if v.Entries == nil || len(v.Entries) != 0 {
		t.Fatalf("entries = %#v, want empty list", v.Entries)
	}
	if v.State != "disconnected" {
		t.Fatalf("state = %q, want disconnected", v.State)
	}
}

func TestHandler_LiveView(t *testing.T) {
	src := &stubSource{}
	uc, h := newTestHandler(t, stubLoader{entries: []core.LogEntry{"e1", "e2"}}, src)

	w, err := uc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	v := waitForView(t, h, func(v viewBody) bool { return !v.Loading })
	if v.Session != w.ID() {
		t.Fatalf("session = %q, want %q", v.Session, w.ID())
	}
	if !slices.Equal(v.Entries, []string{"e1", "e2"}) {
		t.Fatalf("entries = %v, want [e1 e2]", v.Entries)
	}
	if v.State != "connected" {
		t.Fatalf("state = %q, want connected", v.State)
	}

	src.push("e0")

	v = getView(t, h)
	if !slices.Equal(v.Entries, []string{"e0", "e1", "e2"}) {
		t.Fatalf("entries = %v, want [e0 e1 e2]", v.Entries)
	}
}

func TestHandler_SnapshotErrorMessage(t *testing.T) {
	loader := stubLoader{err: &core.SnapshotError{Kind: core.SnapshotNetwork, Err: errors.New("refused")}}
	uc, h := newTestHandler(t, loader, &stubSource{})

	if _, err := uc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	v := waitForView(t, h, func(v viewBody) bool { return !v.Loading })
	if v.Error != "Failed to fetch logs. Please try again." {
		t.Fatalf("error = %q", v.Error)
	}
	if len(v.Entries) != 0 {
		t.Fatalf("entries = %v, want empty", v.Entries)
	}
}

func TestHandler_RejectsOtherMethods(t *testing.T) {
	_, h := newTestHandler(t, stubLoader{}, &stubSource{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WatchPath, nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}

func TestHealthChecker(t *testing.T) {
	uc, err := core.NewWatchUseCase(stubLoader{}, &stubSource{}, core.WatchConfig{Capacity: 1})
	if err != nil {
		t.Fatalf("NewWatchUseCase() error = %v", err)
	}
	checker := &healthChecker{watch: uc}
	ctx := context.Background()

	check := func(service string) grpchealth.Status {
		t.Helper()
		resp, err := checker.Check(ctx, &grpchealth.CheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) error = %v", service, err)
		}
		return resp.Status
	}

	if got := check(""); got != grpchealth.StatusNotServing {
		t.Fatalf("idle status = %v, want NOT_SERVING", got)
	}

	if _, err := uc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for _, svc := range []string{"", ServiceName} {
		if got := check(svc); got != grpchealth.StatusServing {
			t.Fatalf("running status(%q) = %v, want SERVING", svc, got)
		}
	}

	uc.Stop()
	if got := check(ServiceName); got != grpchealth.StatusNotServing {
		t.Fatalf("stopped status = %v, want NOT_SERVING", got)
	}

	_, err = checker.Check(ctx, &grpchealth.CheckRequest{Service: "other.Service"})
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Fatalf("unknown service error = %v, want NotFound", err)
	}
}

func TestHandler_HealthEndpoint(t *testing.T) {
	uc, h := newTestHandler(t, stubLoader{}, &stubSource{})
	if _, err := uc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/grpc.health.v1.Health/Check", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"SERVING"`) {
		t.Fatalf("health body = %s, want SERVING", rec.Body.String())
	}
}

func TestHandler_Metrics(t *testing.T) {
	_, h := newTestHandler(t, stubLoader{}, &stubSource{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("metrics output is missing go_goroutines")
	}
}

func TestWatchListener_Lifecycle(t *testing.T) {
	uc, err := core.NewWatchUseCase(stubLoader{entries: []core.LogEntry{"e1"}}, &stubSource{}, core.WatchConfig{Capacity: 1})
	if err != nil {
		t.Fatalf("NewWatchUseCase() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- transport.Serve(ctx, &watchListener{watch: uc}) }()

	deadline := time.Now().Add(5 * time.Second)
	for !uc.Running() {
		if time.Now().After(deadline) {
			t.Fatal("watch never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if uc.Running() {
		t.Fatal("watch still running after shutdown")
	}
}

func TestWatchListener_StopHonoursDeadline(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	uc, err := core.NewWatchUseCase(stubLoader{}, src, core.WatchConfig{Capacity: 1})
	if err != nil {
		t.Fatalf("NewWatchUseCase() error = %v", err)
	}
	if _, err := uc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		close(src.release)
		uc.Stop()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- (&watchListener{watch: uc}).Stop(ctx) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Stop() error = %v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop ignored the shutdown deadline")
	}
}
