package core

import (
	"log/slog"

	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for all domain use-cases.
var ProviderSet = wire.NewSet(
	ProvideWatchUseCase,
)

// ProvideWatchUseCase builds a WatchUseCase whose cleanup stops the
// watch and releases its metrics.
func ProvideWatchUseCase(snapshot SnapshotLoader, stream StreamSource, cfg WatchConfig) (*WatchUseCase, func(), error) {
	uc, err := NewWatchUseCase(snapshot, stream, cfg)
	if err != nil {
		return nil, nil, err
	}
	return uc, func() {
		if err := uc.Close(); err != nil {
			slog.Warn("failed to close watch use case", "error", err)
		}
	}, nil
}
