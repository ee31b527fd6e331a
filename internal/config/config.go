// Package config loads the server's environment-driven configuration
// once at startup, in the style of niceyeti-tabular's reinforcement.FromYaml:
// a scoped *viper.Viper rather than viper's package-level global, since
// a server process may eventually host more than one config source.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every value the server reads from the environment at
// startup. Every field has a code default, so no environment variable
// is strictly required (spec.md §6 "No required environment beyond
// these."). main uses Port, DataDir, GRPCAddr and Mode; the rate,
// timeout and input-limit fields are loaded but not passed on, and the
// room, room manager and gateway run on their own compiled-in
// constants.
type Config struct {
	Port int

	DataDir string

	GRPCAddr string

	Mode string // "development" or "production"; governs zerolog console-vs-JSON output

	TickRate      int // physics ticks/sec
	BroadcastRate int // snapshot broadcasts/sec

	RoomIdleTimeout         time.Duration
	PlayerDisconnectTimeout time.Duration
	CountdownDuration       time.Duration
	ResultsDuration         time.Duration

	MaxInputsPerSecond int
}

// Load reads configuration from the process environment, falling back
// to defaults for anything unset.
func Load() (*Config, error) {
	vp := viper.New()
	vp.AutomaticEnv()

	vp.SetDefault("port", 3000)
	vp.SetDefault("data_dir", "./data")
	vp.SetDefault("grpc_addr", ":9090")
	vp.SetDefault("mode", "development")
	vp.SetDefault("tick_rate", 60)
	vp.SetDefault("broadcast_rate", 20)
	vp.SetDefault("room_idle_timeout_seconds", 300)
	vp.SetDefault("player_disconnect_timeout_seconds", 15)
	vp.SetDefault("countdown_seconds", 3)
	vp.SetDefault("results_seconds", 10)
	vp.SetDefault("max_inputs_per_second", 90)

	cfg := &Config{
		Port:                    vp.GetInt("port"),
		DataDir:                 vp.GetString("data_dir"),
		GRPCAddr:                vp.GetString("grpc_addr"),
		Mode:                    vp.GetString("mode"),
		TickRate:                vp.GetInt("tick_rate"),
		BroadcastRate:           vp.GetInt("broadcast_rate"),
		RoomIdleTimeout:         time.Duration(vp.GetInt("room_idle_timeout_seconds")) * time.Second,
		PlayerDisconnectTimeout: time.Duration(vp.GetInt("player_disconnect_timeout_seconds")) * time.Second,
		CountdownDuration:       time.Duration(vp.GetInt("countdown_seconds")) * time.Second,
		ResultsDuration:         time.Duration(vp.GetInt("results_seconds")) * time.Second,
		MaxInputsPerSecond:      vp.GetInt("max_inputs_per_second"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	if cfg.Mode != "development" && cfg.Mode != "production" {
		return nil, fmt.Errorf("config: invalid mode %q", cfg.Mode)
	}

	return cfg, nil
}
