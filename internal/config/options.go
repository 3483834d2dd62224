package config

import (
	"strings"
	"time"
)

// Option describes a single configuration entry: its viper key, the
// corresponding CLI flag name, the compiled default, and a
// human-readable description shown in --help output.
type Option struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

// WatchOptions defines the configuration entries of the watch command.
// Each entry is registered as a viper default and a CLI flag.
var WatchOptions = []Option{
	{Key: keyWatchAddress, Flag: toFlag(keyWatchAddress), Default: ":8299", Description: "Dashboard API listen address"},
	{Key: keyWatchAllowedOrigins, Flag: toFlag(keyWatchAllowedOrigins), Default: []string{}, Description: "Dashboard API allowed origins (empty allows all)"},
	{Key: keyWatchDebug, Flag: toFlag(keyWatchDebug), Default: false, Description: "Enable debug logging"},
	{Key: keyWatchBufferCapacity, Flag: toFlag(keyWatchBufferCapacity), Default: 10, Description: "Maximum number of log entries kept"},
	{Key: keyWatchSnapshotURL, Flag: toFlag(keyWatchSnapshotURL), Default: "http://localhost:8080/api/v1/events/", Description: "Snapshot endpoint url"},
	{Key: keyWatchSnapshotTimeout, Flag: toFlag(keyWatchSnapshotTimeout), Default: 10 * time.Second, Description: "Snapshot request timeout"},
	{Key: keyWatchStreamBrokerURL, Flag: toFlag(keyWatchStreamBrokerURL), Default: "ws://localhost:8080/ws", Description: "STOMP broker websocket url"},
	{Key: keyWatchStreamTopic, Flag: toFlag(keyWatchStreamTopic), Default: "/topic/events", Description: "STOMP topic to subscribe to"},
	{Key: keyWatchStreamReconnectDelay, Flag: toFlag(keyWatchStreamReconnectDelay), Default: 5 * time.Second, Description: "Delay before reconnecting after a stream error"},
	{Key: keyWatchStreamHeartBeat, Flag: toFlag(keyWatchStreamHeartBeat), Default: 10 * time.Second, Description: "STOMP heart-beat interval (0 disables)"},
	{Key: keyWatchStreamProtocol, Flag: toFlag(keyWatchStreamProtocol), Default: ">= 1.1", Description: "Accepted STOMP protocol versions (semver constraint)"},
}

// toFlag converts a viper key like "watch.stream.broker_url" into a
// CLI flag like "stream-broker-url" by lower-casing, replacing dots
// and underscores with hyphens, and stripping the "watch-" prefix.
func toFlag(key string) string {
	flag := strings.ToLower(key)
	flag = strings.ReplaceAll(flag, ".", "-")
	flag = strings.ReplaceAll(flag, "_", "-")
	flag = strings.TrimPrefix(flag, "watch-")
	return flag
}
