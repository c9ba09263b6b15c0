package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/arloliu/go-scservo/device"
	"github.com/arloliu/go-scservo/transport"
)

// busConfig collects the bus parameters shared by every subcommand.
type busConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
	EchoBack bool
	Verbose  bool
}

func defaultBusConfig() busConfig {
	return busConfig{
		BaudRate: transport.DefaultBaudRate,
		Timeout:  device.DefaultExchangeTimeout,
	}
}

type fileConfig struct {
	Port      string `toml:"port"`
	BaudRate  int    `toml:"baud_rate"`
	Timeout   string `toml:"timeout"`
	TimeoutMS int64  `toml:"timeout_ms"`
	EchoBack  bool   `toml:"echo_back"`
	Verbose   bool   `toml:"verbose"`
}

// loadBusConfig merges a TOML config file over the defaults. Only keys
// actually present in the file override; flags are merged on top by the
// caller.
func loadBusConfig(path string) (busConfig, error) {
	cfg := defaultBusConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return busConfig{}, fmt.Errorf("load bus config: %w", err)
	}

	if meta.IsDefined("port") {
		port := strings.TrimSpace(raw.Port)
		if port != "" {
			cfg.Port = port
		}
	}

	if meta.IsDefined("baud_rate") {
		if raw.BaudRate <= 0 {
			return busConfig{}, fmt.Errorf("baud_rate %d must be positive", raw.BaudRate)
		}
		cfg.BaudRate = raw.BaudRate
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return busConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("timeout_ms") {
		cfg.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}

	if meta.IsDefined("echo_back") {
		cfg.EchoBack = raw.EchoBack
	}

	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	return cfg, nil
}
