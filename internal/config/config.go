// Package config loads the buddy configuration from YAML with environment
// overrides. Every duration and threshold used by the navigation core is
// tunable here; zero values are filled from defaults before validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the buddy service.
type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Navigation NavigationConfig `yaml:"navigation"`
	Call       CallConfig       `yaml:"call"`
}

// ServerConfig configures the control API / websocket server.
type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

// BackendConfig points at the conversational/routing backend and the
// realtime speech endpoints.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout"`

	// SpeechURL is the websocket endpoint streaming recognized speech.
	// Empty disables voice calls.
	SpeechURL string `yaml:"speech_url"`
	// PositionURL is the websocket endpoint streaming device positions.
	// Empty means live navigation falls back to simulation.
	PositionURL string `yaml:"position_url"`
	// GeocodeURL is a Nominatim-compatible reverse-geocoding root used
	// to put street names into spoken turn alerts. Empty skips lookups.
	GeocodeURL string `yaml:"geocode_url" validate:"omitempty,url"`
	// Voice selects the synthesis voice.
	Voice string `yaml:"voice"`
}

// NavigationConfig holds the tracking thresholds.
type NavigationConfig struct {
	// TickInterval is the simulated position tick rate.
	TickInterval time.Duration `yaml:"tick_interval"`
	// WalkSpeed is the default simulated speed in m/s.
	WalkSpeed float64 `yaml:"walk_speed" validate:"omitempty,gt=0"`
	// StepRadius is the proximity radius for maneuver step matching (meters).
	StepRadius float64 `yaml:"step_radius" validate:"omitempty,gt=0"`
	// OffRouteEnter and OffRouteExit define the off-route hysteresis band (meters).
	OffRouteEnter float64 `yaml:"off_route_enter" validate:"omitempty,gt=0"`
	OffRouteExit  float64 `yaml:"off_route_exit" validate:"omitempty,gt=0,ltfield=OffRouteEnter"`
	// ArrivalRadius is the live-mode arrival threshold (meters).
	ArrivalRadius float64 `yaml:"arrival_radius" validate:"omitempty,gt=0"`
}

// CallConfig holds the voice-call loop timings.
type CallConfig struct {
	// ListenTimeout bounds a single speech-recognition attempt.
	ListenTimeout time.Duration `yaml:"listen_timeout"`
	// PauseInterval is the idle pause between empty listen rounds.
	PauseInterval time.Duration `yaml:"pause_interval"`
	// AlertInterval is the alert-monitor polling cadence.
	AlertInterval time.Duration `yaml:"alert_interval"`
	// PlaybackTimeout force-stops stalled audio playback.
	PlaybackTimeout time.Duration `yaml:"playback_timeout"`
}

// Default returns a Config with sensible defaults for a walking session.
func Default() Config {
	return Config{
		LogLevel: "info",
		Server:   ServerConfig{Port: "8080"},
		Backend: BackendConfig{
			Timeout: 30 * time.Second,
		},
		Navigation: NavigationConfig{
			TickInterval:  time.Second,
			WalkSpeed:     1.4,
			StepRadius:    35,
			OffRouteEnter: 100,
			OffRouteExit:  40,
			ArrivalRadius: 20,
		},
		Call: CallConfig{
			ListenTimeout:   30 * time.Second,
			PauseInterval:   500 * time.Millisecond,
			AlertInterval:   500 * time.Millisecond,
			PlaybackTimeout: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path, fills defaults, applies environment
// overrides, and validates the result. A missing file is not an error:
// defaults plus environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides selected fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("BUDDY_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("BUDDY_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("BUDDY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BUDDY_SPEECH_URL"); v != "" {
		c.Backend.SpeechURL = v
	}
	if v := os.Getenv("BUDDY_POSITION_URL"); v != "" {
		c.Backend.PositionURL = v
	}
	if v := os.Getenv("BUDDY_GEOCODE_URL"); v != "" {
		c.Backend.GeocodeURL = v
	}
	if v := os.Getenv("BUDDY_VOICE"); v != "" {
		c.Backend.Voice = v
	}
}

// fillDefaults replaces zero values with defaults so a sparse YAML file
// only needs to name the fields it changes.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = def.Backend.Timeout
	}
	n, dn := &c.Navigation, def.Navigation
	if n.TickInterval == 0 {
		n.TickInterval = dn.TickInterval
	}
	if n.WalkSpeed == 0 {
		n.WalkSpeed = dn.WalkSpeed
	}
	if n.StepRadius == 0 {
		n.StepRadius = dn.StepRadius
	}
	if n.OffRouteEnter == 0 {
		n.OffRouteEnter = dn.OffRouteEnter
	}
	if n.OffRouteExit == 0 {
		n.OffRouteExit = dn.OffRouteExit
	}
	if n.ArrivalRadius == 0 {
		n.ArrivalRadius = dn.ArrivalRadius
	}
	cc, dc := &c.Call, def.Call
	if cc.ListenTimeout == 0 {
		cc.ListenTimeout = dc.ListenTimeout
	}
	if cc.PauseInterval == 0 {
		cc.PauseInterval = dc.PauseInterval
	}
	if cc.AlertInterval == 0 {
		cc.AlertInterval = dc.AlertInterval
	}
	if cc.PlaybackTimeout == 0 {
		cc.PlaybackTimeout = dc.PlaybackTimeout
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
