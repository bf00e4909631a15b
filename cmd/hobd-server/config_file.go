package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the TOML shape of the optional --config file. Durations are
// strings in time.ParseDuration format, matching the env layer.
type fileConfig struct {
	Serial             string `toml:"serial"`
	Baud               int    `toml:"baud"`
	Listen             string `toml:"listen"`
	SerialReadTimeout  string `toml:"serial_read_timeout"`
	LogFormat          string `toml:"log_format"`
	LogLevel           string `toml:"log_level"`
	MetricsAddr        string `toml:"metrics_addr"`
	HubBuffer          int    `toml:"hub_buffer"`
	HubPolicy          string `toml:"hub_policy"`
	LogMetricsInterval string `toml:"log_metrics_interval"`
	Backend            string `toml:"backend"`
	Checksum           string `toml:"checksum"`
	PollInterval       string `toml:"poll_interval"`
	MaxClients         int    `toml:"max_clients"`
	HandshakeTimeout   string `toml:"handshake_timeout"`
	ClientReadTimeout  string `toml:"client_read_timeout"`
	MDNSEnable         bool   `toml:"mdns_enable"`
	MDNSName           string `toml:"mdns_name"`
}

// applyFileConfig overlays values from a TOML file onto cfg. Only keys
// present in the file apply, and an explicitly set flag always wins.
func applyFileConfig(c *appConfig, path string, set map[string]struct{}) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	use := func(flagName, key string) bool {
		if _, ok := set[flagName]; ok {
			return false
		}
		return meta.IsDefined(key)
	}
	dur := func(key, val string, min time.Duration) (time.Duration, error) {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("invalid %s in %s: %w", key, path, err)
		}
		if d < min {
			return 0, fmt.Errorf("invalid %s in %s: %v below %v", key, path, d, min)
		}
		return d, nil
	}

	if use("serial", "serial") {
		c.serialDev = raw.Serial
	}
	if use("baud", "baud") {
		c.baud = raw.Baud
	}
	if use("listen", "listen") {
		c.listenAddr = raw.Listen
	}
	if use("serial-read-timeout", "serial_read_timeout") {
		d, err := dur("serial_read_timeout", raw.SerialReadTimeout, time.Nanosecond)
		if err != nil {
			return err
		}
		c.serialReadTO = d
	}
	if use("log-format", "log_format") {
		c.logFormat = raw.LogFormat
	}
	if use("log-level", "log_level") {
		c.logLevel = raw.LogLevel
	}
	if use("metrics-addr", "metrics_addr") {
		c.metricsAddr = raw.MetricsAddr
	}
	if use("hub-buffer", "hub_buffer") {
		c.hubBuffer = raw.HubBuffer
	}
	if use("hub-policy", "hub_policy") {
		c.hubPolicy = raw.HubPolicy
	}
	if use("log-metrics-interval", "log_metrics_interval") {
		d, err := dur("log_metrics_interval", raw.LogMetricsInterval, 0)
		if err != nil {
			return err
		}
		c.logMetricsEvery = d
	}
	if use("backend", "backend") {
		c.backend = raw.Backend
	}
	if use("checksum", "checksum") {
		c.checksum = raw.Checksum
	}
	if use("poll-interval", "poll_interval") {
		d, err := dur("poll_interval", raw.PollInterval, 0)
		if err != nil {
			return err
		}
		c.pollInterval = d
	}
	if use("max-clients", "max_clients") {
		c.maxClients = raw.MaxClients
	}
	if use("handshake-timeout", "handshake_timeout") {
		d, err := dur("handshake_timeout", raw.HandshakeTimeout, time.Nanosecond)
		if err != nil {
			return err
		}
		c.handshakeTO = d
	}
	if use("client-read-timeout", "client_read_timeout") {
		d, err := dur("client_read_timeout", raw.ClientReadTimeout, time.Nanosecond)
		if err != nil {
			return err
		}
		c.clientReadTO = d
	}
	if use("mdns-enable", "mdns_enable") {
		c.mdnsEnable = raw.MDNSEnable
	}
	if use("mdns-name", "mdns_name") {
		c.mdnsName = raw.MDNSName
	}
	return nil
}
