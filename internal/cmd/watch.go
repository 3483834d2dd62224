package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/otterscale/logwatch/internal/cmd/watch"
	"github.com/otterscale/logwatch/internal/config"
)

// WatchInjector builds a Runner once flags have been parsed, so that
// every provider sees the final configuration.
type WatchInjector func() (*watch.Runner, func(), error)

func NewWatchCommand(conf *config.Config, newRunner WatchInjector) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Keep a live view of the most recent events and serve it to the dashboard",
		Example: "logwatch watch --snapshot-url=http://localhost:8080/api/v1/events/ --stream-broker-url=ws://localhost:8080/ws",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if conf.WatchDebug() {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			runner, cleanup, err := newRunner()
			if err != nil {
				return fmt.Errorf("failed to initialize watch: %w", err)
			}
			defer cleanup()

			cfg := watch.Config{
				Address:        conf.WatchAddress(),
				AllowedOrigins: conf.WatchAllowedOrigins(),
			}

			return runner.Run(cmd.Context(), cfg)
		},
	}

	if err := conf.BindFlags(cmd.Flags(), config.WatchOptions); err != nil {
		return nil, err
	}

	return cmd, nil
}
