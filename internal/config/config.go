package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the decoding pipeline and the animation engine.
const (
	// Default values for the capture and analysis stages
	DefaultDeviceID      = MinDeviceID // Default to system default device
	DefaultSampleRate    = 44100       // CD-quality audio
	DefaultFFTSize       = 1024        // One analysis block (~23ms at 44.1kHz)
	DefaultNeighborCount = 2           // 5-bin average around each carrier
	DefaultLowLatency    = false       // Standard latency mode

	// Default values for the decoder stage
	DefaultMagnitudeFloor = 500.0 // Absolute dominance floor (raw sample units)
	DefaultDominanceRatio = 3.0   // Dominant must exceed ratio x mean of the rest

	// Default values for the animation stage
	DefaultFrameInterval      = 50 * time.Millisecond
	DefaultBlinkDuration      = 1000 * time.Millisecond
	DefaultTransitionDuration = 1000 * time.Millisecond
	DefaultOffColor           = "#000000"

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFFTSize    = 8192   // Maximum FFT size (power of 2)
)

// Config holds all runtime configuration for the pipeline. It is loaded
// from YAML and/or command line flags and passed by construction into each
// component; there is no shared configuration singleton.
type Config struct {
	Debug    bool   `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel string `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").

	// Runtime options set from the command line, never from YAML.
	Command      string `yaml:"-"` // One-off command ("list", "decode").
	DecodeTarget string `yaml:"-"` // WAV path for the decode command.
	Preview      bool   `yaml:"-"` // Terminal live preview enabled.

	Audio     AudioConfig     `yaml:"audio"`     // Capture and spectral analysis settings.
	Decode    DecodeConfig    `yaml:"decode"`    // Dominant-symbol thresholds.
	Light     LightConfig     `yaml:"light"`     // Animation timing and colors.
	Transport TransportConfig `yaml:"transport"` // Preview/debug data sinks.
	Recording RecordingConfig `yaml:"recording"` // Raw input WAV recording.
	Feedback  FeedbackConfig  `yaml:"feedback"`  // Audible feedback synthesis.
}

// AudioConfig holds settings for audio input and spectral analysis.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device"`       // PortAudio device index (-1 for default).
	SampleRate    float64 `yaml:"sample_rate"`        // Sample rate in Hz.
	FFTSize       int     `yaml:"fft_size"`           // Samples per analysis block (power of 2).
	NeighborCount int     `yaml:"fft_neighbor_count"` // Bins averaged on each side of a carrier bin.
	LowLatency    bool    `yaml:"low_latency"`        // Request low latency settings from PortAudio.
}

// DecodeConfig holds the dominant-symbol detection thresholds.
type DecodeConfig struct {
	MagnitudeFloor float64 `yaml:"magnitude_floor"` // Absolute floor a dominant carrier must reach.
	DominanceRatio float64 `yaml:"dominance_ratio"` // Multiple of the mean of the other carriers.
}

// LightConfig holds animation timing and color settings. Durations are
// configuration rather than constants: observed product revisions vary them.
type LightConfig struct {
	FrameInterval      time.Duration `yaml:"frame_interval"`             // Color emission cadence.
	OffColor           string        `yaml:"off_color"`                  // Hex color used as "off" (default black).
	BlinkDuration      time.Duration `yaml:"blink_duration"`             // Full blink cycle length.
	TransitionDuration time.Duration `yaml:"transition_duration"`        // Gradation step length.
	FirstTransition    time.Duration `yaml:"first_transition_duration"`  // Override for the very first step (0 = none).
	RepeatTransition   time.Duration `yaml:"repeat_transition_duration"` // Override after the first full loop (0 = none).
}

// TransportConfig holds settings for the preview/debug data sinks.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Broadcast color frames to WebSocket clients.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish carrier magnitudes over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// RecordingConfig holds settings for recording raw microphone input,
// useful when debugging beacon placement.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

// FeedbackConfig holds settings for the optional audible-feedback
// synthesizer, which re-encodes carrier magnitudes into sound.
type FeedbackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

// HistorySize returns the decoder symbol history capacity: the number of
// analysis blocks per second, which covers roughly one second of signal.
func (c *Config) HistorySize() int {
	return int(c.Audio.SampleRate) / c.Audio.FFTSize
}

// NewConfig creates a Config with default values. This is the base
// configuration before applying a YAML file or command line flags.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:   DefaultDeviceID,
			SampleRate:    DefaultSampleRate,
			FFTSize:       DefaultFFTSize,
			NeighborCount: DefaultNeighborCount,
			LowLatency:    DefaultLowLatency,
		},
		Decode: DecodeConfig{
			MagnitudeFloor: DefaultMagnitudeFloor,
			DominanceRatio: DefaultDominanceRatio,
		},
		Light: LightConfig{
			FrameInterval:      DefaultFrameInterval,
			OffColor:           DefaultOffColor,
			BlinkDuration:      DefaultBlinkDuration,
			TransitionDuration: DefaultTransitionDuration,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  50 * time.Millisecond,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
		Feedback: FeedbackConfig{
			Enabled:    false,
			OutputFile: "feedback.wav",
		},
	}
}
