// Package providers aggregates the infrastructure-layer implementations
// (snapshot endpoint, STOMP broker) into a single Wire provider set.
package providers

import (
	"github.com/google/wire"

	"github.com/otterscale/logwatch/internal/core"
	"github.com/otterscale/logwatch/internal/providers/broker"
	"github.com/otterscale/logwatch/internal/providers/snapshot"
)

// ProviderSet is the Wire provider set for all external adapters.
var ProviderSet = wire.NewSet(
	NewSnapshotLoader,
	NewBrokerSource,
	wire.Bind(new(core.SnapshotLoader), new(*snapshot.Loader)),
	wire.Bind(new(core.StreamSource), new(*broker.Source)),
)

// NewSnapshotLoader builds the HTTP snapshot loader with default options.
func NewSnapshotLoader(cfg snapshot.Config) (*snapshot.Loader, error) {
	return snapshot.NewLoader(cfg)
}

// NewBrokerSource builds the STOMP stream source with the WebSocket
// dialer and the real clock.
func NewBrokerSource(cfg broker.Config) (*broker.Source, error) {
	return broker.NewSource(cfg)
}
