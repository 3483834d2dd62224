// Package main is the entry point for the logwatch binary. Its watch
// subcommand keeps a bounded, live view of the most recent events by
// merging a one-shot snapshot with a STOMP event stream, and serves
// that view to the dashboard.
//
// Dependencies are assembled via Google Wire; see wire.go.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otterscale/logwatch/internal/cmd"
	"github.com/otterscale/logwatch/internal/cmd/watch"
	"github.com/otterscale/logwatch/internal/config"
	"github.com/otterscale/logwatch/internal/core"
	"github.com/otterscale/logwatch/internal/providers/broker"
	"github.com/otterscale/logwatch/internal/providers/snapshot"
)

// version is injected at build time via -ldflags
// (e.g. -ldflags "-X main.version=v1.2.3").
var version = "devel"

func main() {
	// Cancel on SIGINT (Ctrl+C) or SIGTERM (container runtime).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Cobra is configured with SilenceErrors: true, so we
		// print the error here for consistent formatting.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd, cleanup, err := wireCmd()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	return rootCmd.ExecuteContext(ctx)
}

// newCmd is a Wire provider that constructs the root Cobra command and
// registers the watch subcommand. The watch dependencies are built
// lazily through wireWatch so they see the parsed flags.
func newCmd(conf *config.Config) (*cobra.Command, error) {
	c := &cobra.Command{
		Use:           "logwatch",
		Short:         "logwatch: a live view of the most recent events from a STOMP broker.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	watchCmd, err := cmd.NewWatchCommand(conf, func() (*watch.Runner, func(), error) {
		return wireWatch(conf)
	})
	if err != nil {
		return nil, err
	}

	c.AddCommand(watchCmd)

	return c, nil
}

func provideWatchConfig(conf *config.Config) core.WatchConfig {
	return core.WatchConfig{
		Capacity: conf.WatchBufferCapacity(),
	}
}

func provideSnapshotConfig(conf *config.Config) snapshot.Config {
	return snapshot.Config{
		URL:     conf.WatchSnapshotURL(),
		Timeout: conf.WatchSnapshotTimeout(),
	}
}

func provideBrokerConfig(conf *config.Config) broker.Config {
	return broker.Config{
		BrokerURL:      conf.WatchStreamBrokerURL(),
		Topic:          conf.WatchStreamTopic(),
		ReconnectDelay: conf.WatchStreamReconnectDelay(),
		HeartBeat:      conf.WatchStreamHeartBeat(),
		Protocol:       conf.WatchStreamProtocol(),
	}
}
