// Package config loads the wardensim YAML file. Every field has a default, so
// an empty or partial file is valid; values present in the file replace the
// defaults field by field.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/warden/internal/agents"
	"github.com/talgya/warden/internal/engine"
	"github.com/talgya/warden/internal/goap"
	"github.com/talgya/warden/internal/policy"
	"github.com/talgya/warden/internal/world"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Environment overrides applied after the file is read.
const (
	EnvAdminKey = "WARDEN_ADMIN_KEY"
	EnvDB       = "WARDEN_DB"
)

type EngineConfig struct {
	FrameRate float64 `yaml:"frame_rate"`
	Speed     float64 `yaml:"speed"`
	MaxTicks  uint64  `yaml:"max_ticks"` // 0 = run until interrupted
}

type PlannerConfig struct {
	MaxNodes int `yaml:"max_nodes"`
	MaxDepth int `yaml:"max_depth"` // 0 = number of actions
}

// PolicyConfig replaces the built-in goal cascade when Rules is non-empty.
type PolicyConfig struct {
	Rules    []policy.RuleSpec `yaml:"rules"`
	Fallback policy.GoalSpec   `yaml:"fallback"`
}

type APIConfig struct {
	Port           int    `yaml:"port"` // 0 disables the HTTP server
	AdminKey       string `yaml:"admin_key"`
	PathLimit      int    `yaml:"path_limit"` // /path requests per client per minute
	StreamInterval int    `yaml:"stream_interval_ms"`
}

type TelemetryConfig struct {
	DBPath          string `yaml:"db_path"` // empty disables recording
	FlushEveryTicks uint64 `yaml:"flush_every_ticks"`
}

// Config mirrors the YAML file.
type Config struct {
	Seed       int64                   `yaml:"seed"` // 0 = random
	LogLevel   string                  `yaml:"log_level"`
	Engine     EngineConfig            `yaml:"engine"`
	Arena      world.GenConfig         `yaml:"arena"`
	Grid       engine.GridConfig       `yaml:"grid"`
	Planner    PlannerConfig           `yaml:"planner"`
	Guard      agents.GuardConfig      `yaml:"guard"`
	Agents     agents.SpawnConfig      `yaml:"agents"`
	Perception engine.PerceptionConfig `yaml:"perception"`
	Player     engine.PlayerConfig     `yaml:"player"`
	Weather    float64                 `yaml:"weather_period"` // Simulated seconds per weather roll
	Policy     PolicyConfig            `yaml:"policy"`
	API        APIConfig               `yaml:"api"`
	Telemetry  TelemetryConfig         `yaml:"telemetry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	sim := engine.DefaultConfig()
	return Config{
		LogLevel:   "info",
		Engine:     EngineConfig{FrameRate: engine.DefaultFrameRate, Speed: 1},
		Arena:      sim.Arena,
		Grid:       sim.Grid,
		Planner:    PlannerConfig{MaxNodes: goap.DefaultMaxNodes},
		Guard:      sim.Guard,
		Agents:     sim.Spawn,
		Perception: sim.Perception,
		Player:     sim.Player,
		Weather:    sim.WeatherPeriod,
		API:        APIConfig{Port: 8080, PathLimit: 60, StreamInterval: 250},
		Telemetry:  TelemetryConfig{FlushEveryTicks: 50},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := Parse(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes raw YAML into cfg, keeping fields the document omits.
// Unknown keys are rejected.
func Parse(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAdminKey); v != "" {
		c.API.AdminKey = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Telemetry.DBPath = v
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.Engine.FrameRate <= 0:
		return fmt.Errorf("%w: engine.frame_rate must be positive", ErrInvalid)
	case c.Engine.Speed < 0:
		return fmt.Errorf("%w: engine.speed must not be negative", ErrInvalid)
	case c.Arena.Width < 3 || c.Arena.Depth < 3:
		return fmt.Errorf("%w: arena must be at least 3x3 tiles", ErrInvalid)
	case c.Arena.CellSize <= 0:
		return fmt.Errorf("%w: arena.cell_size must be positive", ErrInvalid)
	case c.Grid.NodeRadius <= 0:
		return fmt.Errorf("%w: grid.node_radius must be positive", ErrInvalid)
	case c.Grid.MaxWalkableSearchRadius < 0:
		return fmt.Errorf("%w: grid.max_walkable_search_radius must not be negative", ErrInvalid)
	case c.Planner.MaxNodes < 0 || c.Planner.MaxDepth < 0:
		return fmt.Errorf("%w: planner limits must not be negative", ErrInvalid)
	case c.Agents.Count < 0:
		return fmt.Errorf("%w: agents.count must not be negative", ErrInvalid)
	case c.Guard.MaxHealth <= 0:
		return fmt.Errorf("%w: guard.max_health must be positive", ErrInvalid)
	case c.Guard.Locomotion.Speed <= 0:
		return fmt.Errorf("%w: guard.locomotion.speed must be positive", ErrInvalid)
	case c.Guard.Locomotion.WaypointTolerance < 0:
		return fmt.Errorf("%w: guard.locomotion.waypoint_tolerance must not be negative", ErrInvalid)
	case c.Guard.Locomotion.RepathCooldown < 0 || c.Guard.Locomotion.RepathDistance < 0 || c.Guard.Locomotion.ProbeDistance < 0:
		return fmt.Errorf("%w: guard.locomotion distances and cooldown must not be negative", ErrInvalid)
	case c.Weather < 0:
		return fmt.Errorf("%w: weather_period must not be negative", ErrInvalid)
	case c.API.Port < 0 || c.API.Port > 65535:
		return fmt.Errorf("%w: api.port out of range", ErrInvalid)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if len(c.Policy.Rules) > 0 {
		if _, err := policy.FromSpecs(c.Policy.Rules, c.Policy.Fallback, nil); err != nil {
			return fmt.Errorf("%w: policy: %v", ErrInvalid, err)
		}
	}
	return nil
}

// ParseLevel maps a log_level string onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("%w: log_level %q", ErrInvalid, s)
	}
	return l, nil
}

// Simulation builds the engine.Config for this file. Policy rules are
// compiled here; with no rules the guards use the built-in cascade.
func (c Config) Simulation(logger *slog.Logger) (engine.Config, error) {
	sim := engine.Config{
		Seed:          c.Seed,
		Arena:         c.Arena,
		Grid:          c.Grid,
		Planner:       goap.PlannerOptions{MaxNodes: c.Planner.MaxNodes, MaxDepth: c.Planner.MaxDepth, Logger: logger},
		Guard:         c.Guard,
		Spawn:         c.Agents,
		Perception:    c.Perception,
		Player:        c.Player,
		WeatherPeriod: c.Weather,
		Logger:        logger,
	}
	if len(c.Policy.Rules) > 0 {
		sel, err := policy.FromSpecs(c.Policy.Rules, c.Policy.Fallback, logger)
		if err != nil {
			return sim, fmt.Errorf("policy: %w", err)
		}
		sim.Policy = sel
	}
	return sim, nil
}

// StreamEvery is the websocket push interval.
func (a APIConfig) StreamEvery() time.Duration {
	return time.Duration(a.StreamInterval) * time.Millisecond
}
