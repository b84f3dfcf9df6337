package audio

import (
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"lumitone/internal/config"
	"lumitone/internal/decode"
	"lumitone/internal/dsp"
	"lumitone/internal/transport"
	"lumitone/pkg/utils"
)

// beaconSymbols encodes code 42 (bits 0101010): slot 0 is the fixed
// preamble, odd slots choose between 18750/19250, even slots between
// 19000/19500.
var beaconSymbols = []float64{18500, 18750, 19500, 18750, 19500, 18750, 19500, 18750}

type magSink struct {
	calls int
	last  map[int]float64
}

func (m *magSink) Consume(mags map[int]float64) {
	m.calls++
	m.last = mags
}

func newPipeline(t *testing.T, onCode func(int)) (*dsp.Analyzer, *decode.Decoder) {
	t.Helper()
	cfg := config.NewConfig()
	analyzer, err := dsp.NewAnalyzer(cfg.Audio.FFTSize, cfg.Audio.SampleRate,
		cfg.Audio.NeighborCount, decode.Carriers())
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	decoder, err := decode.NewDecoder(cfg.HistorySize(),
		cfg.Decode.MagnitudeFloor, cfg.Decode.DominanceRatio, onCode)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return analyzer, decoder
}

func TestProcessBlock_EndToEnd(t *testing.T) {
	var codes []int
	analyzer, decoder := newPipeline(t, func(c int) { codes = append(codes, c) })

	sink := &magSink{}
	engine := &Engine{
		analyzer:  analyzer,
		decoder:   decoder,
		consumers: []transport.MagnitudeConsumer{sink},
	}

	cfg := config.NewConfig()
	blocks := 0
	for _, freq := range beaconSymbols {
		for i := 0; i < 2; i++ {
			block := utils.GenerateTone(cfg.Audio.FFTSize, cfg.Audio.SampleRate, freq, 10000)
			engine.processBlock(block)
			blocks++
		}
	}

	if len(codes) != 1 || codes[0] != 42 {
		t.Fatalf("expected one decoded code [42], got %v", codes)
	}
	if sink.calls != blocks {
		t.Errorf("expected sibling consumer to see %d maps, got %d", blocks, sink.calls)
	}
	if len(sink.last) != len(decode.Carriers()) {
		t.Errorf("expected %d carriers in magnitude map, got %d", len(decode.Carriers()), len(sink.last))
	}
}

func TestDecodeFile_RoundTrip(t *testing.T) {
	cfg := config.NewConfig()
	path := filepath.Join(t.TempDir(), "beacon.wav")
	writeBeaconWAV(t, path, cfg)

	analyzer, decoder := newPipeline(t, nil)
	code, err := DecodeFile(path, analyzer, decoder)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if code != 42 {
		t.Errorf("expected code 42 from recorded beacon, got %d", code)
	}

	// Replaying the identical file into a fresh decoder yields the same
	// final code.
	analyzer2, decoder2 := newPipeline(t, nil)
	code2, err := DecodeFile(path, analyzer2, decoder2)
	if err != nil {
		t.Fatalf("DecodeFile replay: %v", err)
	}
	if code2 != code {
		t.Errorf("replay decoded %d, first run %d", code2, code)
	}
}

func TestDecodeFile_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-audio.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF"), 0644); err != nil {
		t.Fatal(err)
	}

	analyzer, decoder := newPipeline(t, nil)
	if _, err := DecodeFile(path, analyzer, decoder); err == nil {
		t.Error("expected error for invalid WAV file")
	}
}

// writeBeaconWAV renders the code-42 beacon as a 16-bit mono WAV file.
func writeBeaconWAV(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, int(cfg.Audio.SampleRate), 16, 1, 1)

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: 1,
			SampleRate:  int(cfg.Audio.SampleRate),
		},
		SourceBitDepth: 16,
		Data:           make([]int, cfg.Audio.FFTSize),
	}

	for _, freq := range beaconSymbols {
		for i := 0; i < 2; i++ {
			block := utils.GenerateTone(cfg.Audio.FFTSize, cfg.Audio.SampleRate, freq, 10000)
			for i, s := range block {
				buf.Data[i] = int(s)
			}
			if err := enc.Write(buf); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}
