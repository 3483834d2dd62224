package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/otelconnect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otterscale/logwatch/internal/core"
)

// ServiceName is the health-check service name reported for the watch.
const ServiceName = "logwatch.v1.WatchService"

// WatchPath serves the current watch view as JSON.
const WatchPath = "/api/v1/watch"

// Handler exposes the watch view, its health and the process metrics.
type Handler struct {
	watch    *core.WatchUseCase
	registry *promclient.Registry
}

// NewHandler returns a Handler for uc with its own metrics registry.
func NewHandler(uc *core.WatchUseCase) *Handler {
	return &Handler{
		watch:    uc,
		registry: promclient.NewRegistry(),
	}
}

// Mount registers the view, health and metrics endpoints on mux.
func (h *Handler) Mount(mux *http.ServeMux) error {
	otelInterceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		return err
	}

	if err := h.registerOpsHandlers(mux, connect.WithInterceptors(otelInterceptor)); err != nil {
		return err
	}

	mux.HandleFunc("GET "+WatchPath, h.serveView)
	return nil
}

// registerOpsHandlers sets up Health Check and Metrics.
func (h *Handler) registerOpsHandlers(mux *http.ServeMux, opts ...connect.HandlerOption) error {
	mux.Handle(grpchealth.NewHandler(&healthChecker{watch: h.watch}, opts...))

	h.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(h.registry))
	if err != nil {
		return err
	}
	otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(exporter)))
	mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	return nil
}

func (h *Handler) serveView(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	if err := json.NewEncoder(w).Encode(h.watch.View()); err != nil {
		slog.Error("failed to encode watch view", "error", err)
	}
}

// healthChecker reports SERVING while a watch is running. The overall
// server ("") and the watch service share that status.
type healthChecker struct {
	watch *core.WatchUseCase
}

func (c *healthChecker) Check(_ context.Context, req *grpchealth.CheckRequest) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != ServiceName {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("unknown service %q", req.Service))
	}
	if c.watch.Running() {
		return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
}
