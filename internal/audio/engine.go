/*
Package audio implements the capture engine: a PortAudio input stream of
fixed-size int16 mono blocks feeding the spectral analyzer, the signal
decoder, and any sibling magnitude consumers.

Thread Safety:
- The PortAudio callback is the single producer; per-block processing runs
  synchronously inside it and completes well within one block period.
- Recording state uses an atomic flag; buffers are pre-allocated to avoid
  GC in the hot path.
*/
package audio

import (
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"lumitone/internal/config"
	"lumitone/internal/decode"
	"lumitone/internal/dsp"
	applog "lumitone/internal/log"
	"lumitone/internal/transport"
)

// Engine owns the input stream and drives the per-block pipeline:
// samples -> magnitudes -> symbol/code, one way only.
type Engine struct {
	cfg *config.Config

	// Pipeline stages.
	analyzer  *dsp.Analyzer
	decoder   *decode.Decoder
	consumers []transport.MagnitudeConsumer

	// Audio input handling.
	inputBuffer  []int16
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewEngine resolves the input device and wires the pipeline stages.
// PortAudio must be initialized first.
func NewEngine(cfg *config.Config, analyzer *dsp.Analyzer, decoder *decode.Decoder,
	consumers ...transport.MagnitudeConsumer) (*Engine, error) {

	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		cfg:         cfg,
		analyzer:    analyzer,
		decoder:     decoder,
		consumers:   consumers,
		inputBuffer: make([]int16, cfg.Audio.FFTSize),
		inputDevice: inputDevice,
	}

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// StartInputStream opens and starts the capture stream. The first callback
// marks the start of the hot path.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1, // Mono capture only.
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.cfg.Audio.FFTSize,
		SampleRate:      e.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		return err
	}

	applog.Infof("audio: capture started on %q (%.0f Hz, %d-sample blocks)",
		e.inputDevice.Name, e.cfg.Audio.SampleRate, e.cfg.Audio.FFTSize)
	return nil
}

// StopInputStream stops and closes the capture stream.
func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// Close releases engine resources.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		applog.Errorf("audio: error stopping recording: %v", err)
	}
	return e.StopInputStream()
}

// processInputStream is the capture callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
func (e *Engine) processInputStream(in []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(e.inputBuffer, in)
	e.processBlock(e.inputBuffer)

	// Write raw input to the WAV file if recording.
	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		for i, sample := range e.inputBuffer {
			e.sampleBuf.Data[i] = int(sample)
		}
		e.sampleBuf.Data = e.sampleBuf.Data[:len(e.inputBuffer)]

		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			applog.Errorf("audio: error writing to WAV file: %v", err)
		}
	}
}

// processBlock runs one block through analysis, decoding, and the sibling
// magnitude consumers. Decode completes synchronously so capture is never
// stalled; if capture stops, the decoder simply receives no more updates.
func (e *Engine) processBlock(block []int16) {
	mags := e.analyzer.Process(block)
	e.decoder.Process(mags)
	for _, c := range e.consumers {
		c.Consume(mags)
	}
}
