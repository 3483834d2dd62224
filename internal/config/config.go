package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config wraps a viper instance with typed accessors.
type Config struct {
	v *viper.Viper
}

// New loads defaults, the optional config file and the environment.
// A missing config file is not an error.
func New() (*Config, error) {
	return newWithPaths(".", "/etc/logwatch/")
}

func newWithPaths(paths ...string) (*Config, error) {
	v := viper.New()

	for _, o := range WatchOptions {
		v.SetDefault(o.Key, o.Default)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LOGWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

// BindFlags registers one flag per option on fs and binds it to the
// option's key so that a flag set on the command line wins.
func (c *Config) BindFlags(fs *pflag.FlagSet, options []Option) error {
	for _, o := range options {
		switch v := o.Default.(type) {
		case string:
			fs.String(o.Flag, v, o.Description)
		case int:
			fs.Int(o.Flag, v, o.Description)
		case bool:
			fs.Bool(o.Flag, v, o.Description)
		case []string:
			fs.StringSlice(o.Flag, v, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, v, o.Description)
		default:
			return fmt.Errorf("unsupported flag type for key: %s", o.Key)
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.Flag, err)
		}
	}

	return nil
}

func (c *Config) WatchAddress() string {
	return c.v.GetString(keyWatchAddress) // LOGWATCH_WATCH_ADDRESS
}

func (c *Config) WatchAllowedOrigins() []string {
	return c.v.GetStringSlice(keyWatchAllowedOrigins) // LOGWATCH_WATCH_ALLOWED_ORIGINS
}

func (c *Config) WatchDebug() bool {
	return c.v.GetBool(keyWatchDebug) // LOGWATCH_WATCH_DEBUG
}

func (c *Config) WatchBufferCapacity() int {
	return c.v.GetInt(keyWatchBufferCapacity) // LOGWATCH_WATCH_BUFFER_CAPACITY
}

func (c *Config) WatchSnapshotURL() string {
	return c.v.GetString(keyWatchSnapshotURL) // LOGWATCH_WATCH_SNAPSHOT_URL
}

func (c *Config) WatchSnapshotTimeout() time.Duration {
	return c.v.GetDuration(keyWatchSnapshotTimeout) // LOGWATCH_WATCH_SNAPSHOT_TIMEOUT
}

func (c *Config) WatchStreamBrokerURL() string {
	return c.v.GetString(keyWatchStreamBrokerURL) // LOGWATCH_WATCH_STREAM_BROKER_URL
}

func (c *Config) WatchStreamTopic() string {
	return c.v.GetString(keyWatchStreamTopic) // LOGWATCH_WATCH_STREAM_TOPIC
}

func (c *Config) WatchStreamReconnectDelay() time.Duration {
	return c.v.GetDuration(keyWatchStreamReconnectDelay) // LOGWATCH_WATCH_STREAM_RECONNECT_DELAY
}

func (c *Config) WatchStreamHeartBeat() time.Duration {
	return c.v.GetDuration(keyWatchStreamHeartBeat) // LOGWATCH_WATCH_STREAM_HEARTBEAT
}

func (c *Config) WatchStreamProtocol() string {
	return c.v.GetString(keyWatchStreamProtocol) // LOGWATCH_WATCH_STREAM_PROTOCOL
}
