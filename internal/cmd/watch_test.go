package cmd

import (
	"errors"
	"testing"

	"github.com/otterscale/logwatch/internal/cmd/watch"
	"github.com/otterscale/logwatch/internal/config"
)

func TestNewWatchCommand_Flags(t *testing.T) {
	conf, err := config.New()
	if err != nil {
		t.Fatalf("config.New() error = %v", err)
	}

	cmd, err := NewWatchCommand(conf, func() (*watch.Runner, func(), error) {
		return nil, nil, errors.New("unused")
	})
	if err != nil {
		t.Fatalf("NewWatchCommand() error = %v", err)
	}

	for _, o := range config.WatchOptions {
		if cmd.Flags().Lookup(o.Flag) == nil {
			t.Errorf("flag --%s is not registered", o.Flag)
		}
	}
}

func TestNewWatchCommand_InjectorError(t *testing.T) {
	conf, err := config.New()
	if err != nil {
		t.Fatalf("config.New() error = %v", err)
	}

	injectErr := errors.New("bad broker url")
	cmd, err := NewWatchCommand(conf, func() (*watch.Runner, func(), error) {
		return nil, nil, injectErr
	})
	if err != nil {
		t.Fatalf("NewWatchCommand() error = %v", err)
	}
	cmd.SetArgs([]string{"--buffer-capacity=5"})

	if err := cmd.Execute(); !errors.Is(err, injectErr) {
		t.Fatalf("Execute() error = %v, want %v", err, injectErr)
	}
	if got := conf.WatchBufferCapacity(); got != 5 {
		t.Fatalf("WatchBufferCapacity() = %d, want flag value 5", got)
	}
}
