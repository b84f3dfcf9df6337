package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"lumitone/pkg/bitint"
)

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches default locations ("config.yaml"). If no file is
// found, it uses built-in defaults. After loading, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks structural invariants that every component relies on.
// Carrier/bin compatibility is validated by the spectral analyzer at
// construction, where fftSize, sampleRate, and the carriers meet.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f out of range [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FFTSize) || c.Audio.FFTSize > MaxFFTSize {
		return fmt.Errorf("audio.fft_size must be a power of 2 <= %d, got %d",
			MaxFFTSize, c.Audio.FFTSize)
	}
	if c.Audio.NeighborCount < 0 {
		return fmt.Errorf("audio.fft_neighbor_count must be >= 0, got %d", c.Audio.NeighborCount)
	}
	if c.Decode.MagnitudeFloor < 0 {
		return fmt.Errorf("decode.magnitude_floor must be >= 0, got %f", c.Decode.MagnitudeFloor)
	}
	if c.Decode.DominanceRatio <= 0 {
		return fmt.Errorf("decode.dominance_ratio must be positive, got %f", c.Decode.DominanceRatio)
	}
	if c.Light.FrameInterval <= 0 {
		return fmt.Errorf("light.frame_interval must be positive, got %s", c.Light.FrameInterval)
	}
	if c.Light.BlinkDuration <= 0 {
		return fmt.Errorf("light.blink_duration must be positive, got %s", c.Light.BlinkDuration)
	}
	if c.Light.TransitionDuration <= 0 {
		return fmt.Errorf("light.transition_duration must be positive, got %s", c.Light.TransitionDuration)
	}
	if c.HistorySize() < 8 {
		return fmt.Errorf("sample_rate/fft_size yields a symbol history of %d, need at least 8",
			c.HistorySize())
	}
	return nil
}

// applyEnvOverrides applies LUMITONE_* environment variables on top of the
// loaded configuration. Only operational knobs are exposed this way.
func (cfg *Config) applyEnvOverrides() {
	// LUMITONE_DEBUG
	if val, ok := os.LookupEnv("LUMITONE_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// LUMITONE_LOG_LEVEL
	if val, ok := os.LookupEnv("LUMITONE_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}

	// LUMITONE_WS_{...} override the preview transports.

	// LUMITONE_WS_ENABLED
	if val, ok := os.LookupEnv("LUMITONE_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = bVal
		}
	}
	// LUMITONE_WS_ADDR
	if val, ok := os.LookupEnv("LUMITONE_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
	}
	// LUMITONE_UDP_ENABLED
	if val, ok := os.LookupEnv("LUMITONE_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	// LUMITONE_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("LUMITONE_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	// LUMITONE_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("LUMITONE_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
