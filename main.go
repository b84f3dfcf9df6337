package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"lumitone/cmd"
	"lumitone/internal/audio"
	"lumitone/internal/config"
	"lumitone/internal/decode"
	"lumitone/internal/dsp"
	"lumitone/internal/feedback"
	"lumitone/internal/light"
	applog "lumitone/internal/log"
	"lumitone/internal/transport"
	"lumitone/internal/transport/udp"
	"lumitone/internal/tui"
	"lumitone/pkg/build"
)

// main is the entry point. The program flow is divided into three phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information and logging
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture engine (samples -> magnitudes -> code)
//   - Run the animation engine on decoded code changes
//   - Serve preview/debug sinks (TUI, WebSocket, UDP, feedback)
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination, stop capture before the animation engine,
//     flush recordings, and close transports
func main() {
	if err := build.Initialize(); err != nil {
		applog.Debugf("build: using development build info: %v", err)
	}

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("startup: %v", err)
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	switch cfg.Command {
	case "list":
		runList()
	case "decode":
		runDecode(cfg)
	default:
		runPipeline(cfg)
	}
}

// buildDecodeStages constructs the analyzer and decoder from configuration.
// Invalid sampleRate/fftSize/carrier combinations are fatal here, never
// per-frame.
func buildDecodeStages(cfg *config.Config, onCode func(int)) (*dsp.Analyzer, *decode.Decoder) {
	analyzer, err := dsp.NewAnalyzer(cfg.Audio.FFTSize, cfg.Audio.SampleRate,
		cfg.Audio.NeighborCount, decode.Carriers())
	if err != nil {
		applog.Fatalf("startup: %v", err)
	}
	decoder, err := decode.NewDecoder(cfg.HistorySize(),
		cfg.Decode.MagnitudeFloor, cfg.Decode.DominanceRatio, onCode)
	if err != nil {
		applog.Fatalf("startup: %v", err)
	}
	return analyzer, decoder
}

// runList prints the available audio input devices.
func runList() {
	if err := audio.Initialize(); err != nil {
		applog.Fatalf("startup: %v", err)
	}
	defer audio.Terminate()

	devices, err := audio.GetDevices()
	if err != nil {
		applog.Fatalf("list: %v", err)
	}

	fmt.Printf("%-4s %-48s %-6s %s\n", "ID", "NAME", "CH", "RATE")
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%-4s %-48s %-6d %.0f %s\n",
			d.ID, d.Name, d.MaxInputChannels, d.DefaultSampleRate, marker)
	}
}

// runDecode replays a recorded WAV file through the decode stages and
// prints the final signal code.
func runDecode(cfg *config.Config) {
	analyzer, decoder := buildDecodeStages(cfg, func(code int) {
		applog.Infof("decode: signal code %d", code)
	})

	code, err := audio.DecodeFile(cfg.DecodeTarget, analyzer, decoder)
	if err != nil {
		applog.Fatalf("decode: %v", err)
	}

	if code == decode.NoCode {
		fmt.Println("no signal code found")
		return
	}

	name := "unbound"
	for _, act := range light.DefaultActions() {
		if act.Code == code {
			name = act.Name
			break
		}
	}
	fmt.Printf("signal code %d (%s)\n", code, name)
}

// runPipeline wires and runs the live capture -> decode -> animate chain.
func runPipeline(cfg *config.Config) {
	// Limit OS threads: one for the audio callback, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("startup: %v", err)
	}
	defer audio.Terminate()

	// Renderer fan-out: every sink receives each frame synchronously and
	// must stay cheap.
	var renderers []light.Renderer

	frameSinks := []transport.Transport{transport.NewLoggingTransport()}
	if cfg.Transport.WebSocketEnabled {
		frameSinks = append(frameSinks, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}
	renderers = append(renderers, light.RendererFunc(func(f light.Frame) {
		payload := map[string]any{
			"type":  "frame",
			"code":  f.Code,
			"name":  f.Name,
			"color": f.Color.Hex(),
		}
		for _, sink := range frameSinks {
			_ = sink.Send(payload)
		}
	}))

	var program *tea.Program
	if cfg.Preview {
		program = tea.NewProgram(tui.NewPreviewModel(), tea.WithAltScreen())
		renderers = append(renderers, tui.NewRenderer(program))
	}

	fanout := light.RendererFunc(func(f light.Frame) {
		for _, r := range renderers {
			r.Render(f)
		}
	})

	lightEngine, err := light.NewEngine(cfg.Light, light.DefaultActions(), fanout)
	if err != nil {
		applog.Fatalf("startup: %v", err)
	}

	// Code changes hop from the capture callback to a dedicated switcher
	// goroutine: Apply waits for the previous animation to exit, which
	// must never stall capture.
	codeCh := make(chan int, 8)
	go func() {
		for code := range codeCh {
			lightEngine.Apply(code)
		}
	}()

	analyzer, decoder := buildDecodeStages(cfg, func(code int) {
		select {
		case codeCh <- code:
		default:
			applog.Warnf("light: dropping code %d, switcher busy", code)
		}
	})

	// Optional sibling consumers of the magnitude stream.
	var consumers []transport.MagnitudeConsumer

	var synth *feedback.Synthesizer
	if cfg.Feedback.Enabled {
		synth, err = feedback.NewSynthesizer(cfg.Audio.FFTSize, cfg.Audio.SampleRate, decode.Carriers())
		if err != nil {
			applog.Fatalf("startup: %v", err)
		}
		if err := synth.Start(cfg.Feedback.OutputFile); err != nil {
			applog.Fatalf("startup: %v", err)
		}
		consumers = append(consumers, synth)
	}

	var sender *udp.Sender
	var publisher *udp.Publisher
	if cfg.Transport.UDPEnabled {
		sender, err = udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Fatalf("startup: %v", err)
		}
		publisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, decode.Carriers())
		if err != nil {
			applog.Fatalf("startup: %v", err)
		}
		publisher.Start()
		consumers = append(consumers, publisher)
	}

	engine, err := audio.NewEngine(cfg, analyzer, decoder, consumers...)
	if err != nil {
		applog.Fatalf("startup: %v", err)
	}

	if err := engine.StartInputStream(); err != nil {
		applog.Fatalf("startup: %v", err)
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			applog.Fatalf("startup: %v", err)
		}
		applog.Infof("audio: recording raw input to %s", cfg.Recording.OutputFile)
	}

	if cfg.Preview {
		if _, err := program.Run(); err != nil {
			applog.Errorf("preview: %v", err)
		}
	} else {
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		applog.Infof("listening for ultrasonic beacons, Ctrl+C to stop")
		<-done
	}

	// Shutdown: stop capture first so no further code changes are
	// produced, then drain and stop the animation side.
	if err := engine.Close(); err != nil {
		applog.Errorf("shutdown: %v", err)
	}
	close(codeCh)
	lightEngine.Stop()

	if publisher != nil {
		publisher.Stop()
		sender.Close()
	}
	if synth != nil {
		if err := synth.Stop(); err != nil {
			applog.Errorf("shutdown: %v", err)
		}
	}
	for _, sink := range frameSinks {
		if err := sink.Close(); err != nil {
			applog.Errorf("shutdown: %v", err)
		}
	}

	if cfg.Recording.Enabled {
		fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
	}
}
