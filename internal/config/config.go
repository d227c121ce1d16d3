package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config file path given on the command line.
const EnvPath = "PARTICLE3D_CONFIG"

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	Network    NetworkConfig    `toml:"network"`
	HTTP       HTTPConfig       `toml:"http"`
	Database   DatabaseConfig   `toml:"database"`
	Stats      StatsConfig      `toml:"stats"`
	Terminal   TerminalConfig   `toml:"terminal"`
	Control    ControlConfig    `toml:"control"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type SimulationConfig struct {
	TickRate    time.Duration `toml:"tick_rate"`
	Definitions string        `toml:"definitions"` // particle definitions YAML
	ScriptsDir  string        `toml:"scripts_dir"`
	Autostart   bool          `toml:"autostart"` // start every system, regardless of its own flag
	Seed        int64         `toml:"seed"`
	MaxQuota    int           `toml:"max_quota"` // ceiling for quotas set over the control channel
}

type NetworkConfig struct {
	Enabled           bool          `toml:"enabled"`
	BindAddress       string        `toml:"bind_address"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	PacketsPerSecond  int           `toml:"packets_per_second"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	StreamEvery       int           `toml:"stream_every"`  // ticks between frame snapshots
	MaxParticles      int           `toml:"max_particles"` // per streamed frame; 0 = as many as fit
}

type HTTPConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	ViewerQueue int    `toml:"viewer_queue"`
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres", "sqlite", or "" to disable
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type StatsConfig struct {
	SampleEvery int `toml:"sample_every"` // ticks between samples
	FlushEvery  int `toml:"flush_every"`  // ticks between database flushes
}

type TerminalConfig struct {
	Enabled bool    `toml:"enabled"`
	Scale   float32 `toml:"scale"` // columns per world unit
}

type ControlConfig struct {
	PasswordHash string `toml:"password_hash"` // bcrypt; empty = no auth
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// ResolvePath returns the path from EnvPath when set, else fallback.
func ResolvePath(fallback string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return fallback
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive, got %s", c.Simulation.TickRate)
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q: want postgres, sqlite or empty", c.Database.Driver)
	}
	if c.Simulation.MaxQuota <= 0 {
		return fmt.Errorf("simulation.max_quota must be positive, got %d", c.Simulation.MaxQuota)
	}
	if c.Network.StreamEvery <= 0 {
		c.Network.StreamEvery = 1
	}
	if c.Stats.SampleEvery <= 0 {
		c.Stats.SampleEvery = 1
	}
	if c.Stats.FlushEvery < c.Stats.SampleEvery {
		c.Stats.FlushEvery = c.Stats.SampleEvery
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "particle3d",
		},
		Simulation: SimulationConfig{
			TickRate:    16 * time.Millisecond,
			Definitions: "data/particles.yaml",
			ScriptsDir:  "scripts",
			Seed:        1,
			MaxQuota:    100000,
		},
		Network: NetworkConfig{
			Enabled:           true,
			BindAddress:       "0.0.0.0:7400",
			InQueueSize:       32,
			OutQueueSize:      128,
			MaxPacketsPerTick: 16,
			PacketsPerSecond:  30,
			WriteTimeout:      10 * time.Second,
			StreamEvery:       4,
			MaxParticles:      2048,
		},
		HTTP: HTTPConfig{
			Enabled:     true,
			BindAddress: "0.0.0.0:7401",
			ViewerQueue: 16,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Stats: StatsConfig{
			SampleEvery: 60,
			FlushEvery:  600,
		},
		Terminal: TerminalConfig{
			Scale: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
