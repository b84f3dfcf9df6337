package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"lumitone/internal/decode"
	"lumitone/internal/dsp"
	applog "lumitone/internal/log"
)

// DecodeFile replays a recorded WAV file through the analyzer and decoder,
// block by block, and returns the final held code. Replaying the same file
// into a fresh decoder always yields the same code. Multi-channel files
// are decoded from their first channel.
func DecodeFile(path string, analyzer *dsp.Analyzer, decoder *decode.Decoder) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return decode.NoCode, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	wavDecoder := wav.NewDecoder(f)
	if !wavDecoder.IsValidFile() {
		return decode.NoCode, fmt.Errorf("%s is not a valid WAV file", path)
	}

	buf, err := wavDecoder.FullPCMBuffer()
	if err != nil {
		return decode.NoCode, fmt.Errorf("failed to read PCM data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return decode.NoCode, fmt.Errorf("WAV file reports no channels")
	}
	frames := len(buf.Data) / channels
	fftSize := analyzer.FFTSize()

	applog.Infof("audio: replaying %s (%d frames, %d channel(s))", path, frames, channels)

	block := make([]int16, fftSize)
	for offset := 0; offset+fftSize <= frames; offset += fftSize {
		for i := 0; i < fftSize; i++ {
			block[i] = int16(buf.Data[(offset+i)*channels])
		}
		decoder.Process(analyzer.Process(block))
	}

	return decoder.Code(), nil
}
