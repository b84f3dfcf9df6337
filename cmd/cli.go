package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"lumitone/internal/config"
	"lumitone/pkg/build"
)

// ParseArgs parses the command line, loads the YAML configuration, and
// applies flag overrides on top of it.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	flags := config.NewConfig()

	var (
		configPath string
		record     bool
		outputFile string
		preview    bool
		verbose    bool
		command    string
		target     string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Decode ultrasonic signal beacons into animated light output",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	// Offline decode command
	decodeCmd := &cobra.Command{
		Use:   "decode <file.wav>",
		Short: "Replay a recorded WAV file through the decoder",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			command = "decode"
			target = args[0]
		},
	}
	rootCmd.AddCommand(decodeCmd)

	// Configuration file
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML configuration file (default searches ./config.yaml)")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&flags.Audio.InputDevice, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().Float64VarP(&flags.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&flags.Audio.FFTSize, "fft-size", "b", config.DefaultFFTSize,
		"Samples per analysis block (power of 2)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Audio.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record raw input to a WAV file while running")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Recording file name. Default is beacon-MM-DD-YYYY-HHMMSS.wav")

	// UI and Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&preview, "preview", "p", false,
		"Show a terminal live preview of the light output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Flags the user actually set win over the file.
	pf := rootCmd.PersistentFlags()
	if pf.Changed("device") {
		cfg.Audio.InputDevice = flags.Audio.InputDevice
	}
	if pf.Changed("sample-rate") {
		cfg.Audio.SampleRate = flags.Audio.SampleRate
	}
	if pf.Changed("fft-size") {
		cfg.Audio.FFTSize = flags.Audio.FFTSize
	}
	if pf.Changed("low-latency") {
		cfg.Audio.LowLatency = flags.Audio.LowLatency
	}
	if record {
		cfg.Recording.Enabled = true
		if outputFile != "" {
			cfg.Recording.OutputFile = outputFile
		}
	}
	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "beacon-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	cfg.Command = command
	cfg.DecodeTarget = target
	cfg.Preview = preview

	// Flag overrides may have changed validated values.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
