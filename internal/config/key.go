// Package config provides unified configuration loading from files,
// environment variables, and CLI flags using viper and pflag.
//
// Resolution order (highest wins):
//  1. CLI flags
//  2. Environment variables (prefix LOGWATCH_)
//  3. Config file (config.yaml in . or /etc/logwatch/)
//  4. Compiled defaults
package config

// Viper keys for the watch command.
const (
	keyWatchAddress        = "watch.address"
	keyWatchAllowedOrigins = "watch.allowed_origins"
	keyWatchDebug          = "watch.debug"
	keyWatchBufferCapacity = "watch.buffer.capacity"
)

// Viper keys for the snapshot endpoint.
const (
	keyWatchSnapshotURL     = "watch.snapshot.url"
	keyWatchSnapshotTimeout = "watch.snapshot.timeout"
)

// Viper keys for the STOMP stream.
const (
	keyWatchStreamBrokerURL      = "watch.stream.broker_url"
	keyWatchStreamTopic          = "watch.stream.topic"
	keyWatchStreamReconnectDelay = "watch.stream.reconnect_delay"
	keyWatchStreamHeartBeat      = "watch.stream.heartbeat"
	keyWatchStreamProtocol       = "watch.stream.protocol"
)
