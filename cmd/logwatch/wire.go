//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/otterscale/logwatch/internal/cmd"
	"github.com/otterscale/logwatch/internal/cmd/watch"
	"github.com/otterscale/logwatch/internal/config"
	"github.com/otterscale/logwatch/internal/core"
	"github.com/otterscale/logwatch/internal/providers"
	"github.com/spf13/cobra"
)

func wireCmd() (*cobra.Command, func(), error) {
	panic(wire.Build(
		newCmd,
		config.ProviderSet,
	))
}

func wireWatch(*config.Config) (*watch.Runner, func(), error) {
	panic(wire.Build(
		provideWatchConfig,
		provideSnapshotConfig,
		provideBrokerConfig,
		cmd.ProviderSet,
		core.ProviderSet,
		providers.ProviderSet,
	))
}
