// Package config loads the Dispatcher's construction-time configuration.
// Grounded on the reference pack's "TTK4145-sanntidslab" elevator config
// loader (yaml.NewDecoder(file).Decode(&c)) for the YAML file, and on the
// "queue_assigner"/"udp_heartbeat" mains' godotenv.Read(...)-then-lookup
// idiom for environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"

	"multivator/internal/types"
)

// Timing holds every tick duration the core's control loops block on.
// Defaults match spec.md §6's recommended values.
type Timing struct {
	FloorTravel     time.Duration `yaml:"floor_travel"`
	DoorOpen        time.Duration `yaml:"door_open"`
	DoorClose       time.Duration `yaml:"door_close"`
	Overload        time.Duration `yaml:"overload"`
	EmergencyPoll   time.Duration `yaml:"emergency_poll"`
	MaintenancePoll time.Duration `yaml:"maintenance_poll"`
	MonitorPeriod   time.Duration `yaml:"monitor_period"`
}

// DefaultTiming returns the spec-recommended tick durations.
func DefaultTiming() Timing {
	return Timing{
		FloorTravel:     1 * time.Second,
		DoorOpen:        2 * time.Second,
		DoorClose:       1 * time.Second,
		Overload:        3 * time.Second,
		EmergencyPoll:   1 * time.Second,
		MaintenancePoll: 1 * time.Second,
		MonitorPeriod:   10 * time.Second,
	}
}

// Config is the Dispatcher's construction-time configuration, per
// SPEC_FULL.md §6.
type Config struct {
	NumCars      int    `yaml:"num_cars"`
	MaxFloors    int    `yaml:"max_floors"`
	Capacity     int    `yaml:"capacity"`
	LogDirectory string `yaml:"log_directory"`
	Timing       Timing `yaml:"timing"`
}

// Default returns a minimal, valid configuration suitable for local runs and
// as a base that Load overlays a YAML file onto.
func Default() Config {
	return Config{
		NumCars:      1,
		MaxFloors:    10,
		Capacity:     8,
		LogDirectory: "logs",
		Timing:       DefaultTiming(),
	}
}

// Load reads path as YAML into a Config seeded with Default(), so a config
// file only needs to specify the fields it wants to override.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvOverrides overlays .env-style overrides onto cfg for the handful of
// fields an operator would plausibly want to change per-deployment without
// editing the YAML file. envFile may not exist; a missing file is not an
// error (it just means no overrides apply).
func LoadEnvOverrides(cfg *Config, envFile string) error {
	env, err := godotenv.Read(envFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", envFile, err)
	}

	if v, ok := env["ELEVATORCTL_LOG_DIR"]; ok && v != "" {
		cfg.LogDirectory = v
	}
	if v, ok := env["ELEVATORCTL_NUM_CARS"]; ok && v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.NumCars = n
		}
	}
	return cfg.Validate()
}

// Validate enforces the positivity constraints SPEC_FULL.md §6 requires.
func (c Config) Validate() error {
	if c.NumCars < 1 {
		return fmt.Errorf("%w: num_cars must be >= 1, got %d", types.ErrInvalidConfig, c.NumCars)
	}
	if c.MaxFloors < 1 {
		return fmt.Errorf("%w: max_floors must be >= 1, got %d", types.ErrInvalidConfig, c.MaxFloors)
	}
	if c.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be >= 1, got %d", types.ErrInvalidConfig, c.Capacity)
	}
	if c.LogDirectory == "" {
		return fmt.Errorf("%w: log_directory must be set", types.ErrInvalidConfig)
	}
	return nil
}
