// Package config provides configuration loading and access for the swarm.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/fishflock/components"
	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Swarm     SwarmConfig     `yaml:"swarm"`
	Target    TargetConfig    `yaml:"target"`
	Device    DeviceConfig    `yaml:"device"`
	Camera    CameraConfig    `yaml:"camera"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// PhysicsConfig holds the fixed tick settings.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"` // seconds per fixed tick
}

// SwarmConfig holds the flocking parameters.
type SwarmConfig struct {
	Agents           int        `yaml:"agents"`            // 256..8192
	SpeedRange       [2]float64 `yaml:"speed_range"`       // min, max
	ForceWeight      [3]float64 `yaml:"force_weight"`      // separation, alignment, cohesion
	PerceptionRadius [3]float64 `yaml:"perception_radius"` // separation, alignment, cohesion
	MaxForce         float64    `yaml:"max_force"`
	TargetForce      float64    `yaml:"target_force"`
}

// TargetConfig describes the optional attraction target.
type TargetConfig struct {
	Enabled      bool       `yaml:"enabled"`
	Center       [3]float64 `yaml:"center"`
	OrbitRadius  float64    `yaml:"orbit_radius"`
	OrbitSpeed   float64    `yaml:"orbit_speed"` // radians per second
	BobAmplitude float64    `yaml:"bob_amplitude"`
	BobSpeed     float64    `yaml:"bob_speed"`
}

// DeviceConfig selects and sizes the compute device.
type DeviceConfig struct {
	Backend      string `yaml:"backend"`       // "cpu" or "gl"
	MemoryBudget int64  `yaml:"memory_budget"` // bytes, 0 = unlimited
	Workers      int    `yaml:"workers"`       // cpu backend, 0 = GOMAXPROCS
	QueueDepth   int    `yaml:"queue_depth"`   // cpu backend command queue
}

// CameraConfig holds the 3-D view settings.
type CameraConfig struct {
	Distance   float64 `yaml:"distance"`
	Height     float64 `yaml:"height"`
	Fovy       float64 `yaml:"fovy"`
	OrbitSpeed float64 `yaml:"orbit_speed"` // radians per second, 0 = static
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // seconds between stats records
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // ticks averaged
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32          float32        // Physics.DT as float32
	StatsEvery    int            // ticks per stats window
	SwarmSettings flock.Settings // Swarm as kernel-ready settings
	SeedSpeed     float32        // initial speed of every agent
}

// Backend names.
const (
	BackendCPU = "cpu"
	BackendGL  = "gl"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Set replaces the global configuration, e.g. after a reload.
func Set(cfg *Config) {
	global = cfg
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks value ranges that would otherwise fail at allocation or dispatch.
func (c *Config) Validate() error {
	if err := flock.ValidateAgents(c.Swarm.Agents); err != nil {
		return fmt.Errorf("%w: swarm.agents: %w", ErrInvalid, err)
	}
	if c.Physics.DT <= 0 {
		return fmt.Errorf("%w: physics.dt must be positive, got %v", ErrInvalid, c.Physics.DT)
	}
	sr := c.Swarm.SpeedRange
	if sr[0] < 0 || sr[1] < sr[0] {
		return fmt.Errorf("%w: swarm.speed_range must satisfy 0 <= min <= max, got %v", ErrInvalid, sr)
	}
	for i, r := range c.Swarm.PerceptionRadius {
		if r < 0 {
			return fmt.Errorf("%w: swarm.perception_radius[%d] is negative", ErrInvalid, i)
		}
	}
	if c.Swarm.MaxForce < 0 {
		return fmt.Errorf("%w: swarm.max_force is negative", ErrInvalid)
	}
	switch c.Device.Backend {
	case BackendCPU, BackendGL:
	default:
		return fmt.Errorf("%w: device.backend %q (want %q or %q)", ErrInvalid, c.Device.Backend, BackendCPU, BackendGL)
	}
	if c.Device.MemoryBudget < 0 {
		return fmt.Errorf("%w: device.memory_budget is negative", ErrInvalid)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)

	c.Derived.StatsEvery = int(c.Telemetry.StatsWindow / c.Physics.DT)
	if c.Derived.StatsEvery < 1 {
		c.Derived.StatsEvery = 1
	}

	c.Derived.SwarmSettings = c.Swarm.Settings()
	c.Derived.SeedSpeed = flock.SeedSpeed(c.Derived.SwarmSettings.SpeedRange)
}

// KeepRestartSections copies the sections that only take effect at startup
// from prev into c and recomputes the derived values. It returns the names of
// the sections whose new values were discarded.
func (c *Config) KeepRestartSections(prev *Config) []string {
	var kept []string
	if c.Screen != prev.Screen {
		kept = append(kept, "screen")
		c.Screen = prev.Screen
	}
	if c.Physics != prev.Physics {
		kept = append(kept, "physics")
		c.Physics = prev.Physics
	}
	if c.Device != prev.Device {
		kept = append(kept, "device")
		c.Device = prev.Device
	}
	if c.Telemetry != prev.Telemetry {
		kept = append(kept, "telemetry")
		c.Telemetry = prev.Telemetry
	}
	c.computeDerived()
	return kept
}

// Settings converts the swarm section to flock settings.
func (s SwarmConfig) Settings() flock.Settings {
	return flock.Settings{
		Agents:           s.Agents,
		SpeedRange:       [2]float32{float32(s.SpeedRange[0]), float32(s.SpeedRange[1])},
		ForceWeight:      vec3(s.ForceWeight),
		PerceptionRadius: vec3(s.PerceptionRadius),
		MaxForce:         float32(s.MaxForce),
		TargetForce:      float32(s.TargetForce),
	}
}

// FromSettings copies flock settings back into the swarm section.
func (s *SwarmConfig) FromSettings(fs flock.Settings) {
	s.Agents = fs.Agents
	s.SpeedRange = [2]float64{float64(fs.SpeedRange[0]), float64(fs.SpeedRange[1])}
	s.ForceWeight = [3]float64{float64(fs.ForceWeight.X), float64(fs.ForceWeight.Y), float64(fs.ForceWeight.Z)}
	s.PerceptionRadius = [3]float64{float64(fs.PerceptionRadius.X), float64(fs.PerceptionRadius.Y), float64(fs.PerceptionRadius.Z)}
	s.MaxForce = float64(fs.MaxForce)
	s.TargetForce = float64(fs.TargetForce)
}

// Orbit returns the starting orbit of the target entity.
func (tc TargetConfig) Orbit() components.Orbit {
	return components.Orbit{
		CenterX:      float32(tc.Center[0]),
		CenterY:      float32(tc.Center[1]),
		CenterZ:      float32(tc.Center[2]),
		Radius:       float32(tc.OrbitRadius),
		Speed:        float32(tc.OrbitSpeed),
		BobAmplitude: float32(tc.BobAmplitude),
		BobSpeed:     float32(tc.BobSpeed),
	}
}

func vec3(v [3]float64) gpu.Vec3 {
	return gpu.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
