// Package snapshot implements core.SnapshotLoader over a plain
// HTTP/JSON endpoint.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/otterscale/logwatch/internal/core"
)

// maxBodySize caps how much of the response body is decoded.
const maxBodySize = 4 << 20 // 4 MiB

// Config holds the snapshot endpoint settings.
type Config struct {
	URL     string
	Timeout time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient overrides the HTTP client used for the fetch.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) { l.client = client }
}

// Loader fetches the initial event list with a single GET request.
type Loader struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

var _ core.SnapshotLoader = (*Loader)(nil)

// eventsResponse is the body returned by the events endpoint. A
// missing "events" field decodes to an empty list.
type eventsResponse struct {
	Events []string `json:"events"`
}

// NewLoader returns a Loader for cfg.URL, which must be an absolute
// http or https URL.
func NewLoader(cfg Config, opts ...LoaderOption) (*Loader, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("snapshot url %q: %w", cfg.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("snapshot url %q: scheme must be http or https", cfg.URL)
	}

	l := &Loader{
		url:    u.String(),
		client: &http.Client{Timeout: cfg.Timeout},
		log:    slog.Default().With("component", "snapshot"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Fetch performs the request. Transport failures and non-2xx statuses
// yield a network SnapshotError; an unreadable body yields a decode
// SnapshotError.
func (l *Loader) Fetch(ctx context.Context) ([]core.LogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, &core.SnapshotError{Kind: core.SnapshotNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &core.SnapshotError{Kind: core.SnapshotNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &core.SnapshotError{
			Kind: core.SnapshotNetwork,
			Err:  fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var body eventsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return nil, &core.SnapshotError{Kind: core.SnapshotDecode, Err: err}
	}

	l.log.Debug("fetched snapshot", "url", l.url, "events", len(body.Events))

	out := make([]core.LogEntry, len(body.Events))
	for i, e := range body.Events {
		out[i] = core.LogEntry(e)
	}
	return out, nil
}
