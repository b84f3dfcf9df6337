/*
Package decode implements the temporal pattern decoding stage. It consumes
the per-block carrier magnitude maps produced by the spectral analyzer,
maintains a bounded symbol history, and emits a 7-bit signal code whenever
a known beacon pattern is recognized.
*/
package decode

import (
	"fmt"
	"sync"

	applog "lumitone/internal/log"
)

// Symbol is the single dominant carrier frequency (Hz) detected in one
// analysis block, or SymbolNone when no carrier dominates.
type Symbol int

// SymbolNone is the sentinel for a block without a dominant carrier.
const SymbolNone Symbol = 0

// NoCode is the decoder's initial state before any pattern has matched.
const NoCode = -1

// carriers are the five fixed ultrasonic frequencies monitored, in
// declared order. The order also breaks magnitude ties deterministically.
var carriers = []int{18500, 18750, 19000, 19250, 19500}

// Carriers returns the monitored carrier frequencies in declared order.
func Carriers() []int {
	return append([]int(nil), carriers...)
}

// template is the expected 8-slot beacon sequence. Slot 0 is the fixed
// preamble carrier; each remaining slot allows two alternatives whose
// declared order determines the decoded bit (0 or 1).
var template = [8][]Symbol{
	{18500},
	{18750, 19250},
	{19000, 19500},
	{18750, 19250},
	{19000, 19500},
	{18750, 19250},
	{19000, 19500},
	{18750, 19250},
}

// TemplateLength is the number of slots in the beacon pattern.
const TemplateLength = len(template)

// Decoder holds the symbol history ring and the currently held code. It is
// the sole writer of both; Process serializes concurrent callers with a
// mutex so it may be invoked from any context.
type Decoder struct {
	mu sync.Mutex

	floor float64 // Absolute magnitude a dominant carrier must reach.
	ratio float64 // Multiple of the mean of the other carriers.

	history []Symbol // Ring buffer of the last capacity symbols.
	head    int      // Index of the next write position.
	count   int      // Number of valid symbols in the ring.

	code   int // Currently held code, NoCode until the first match.
	onCode func(code int)

	// Scratch buffers reused across Process calls.
	ordered []Symbol
	edges   []Symbol
}

// NewDecoder creates a decoder with the given history capacity and
// dominance thresholds. onCode is invoked (outside the decoder's lock)
// each time a newly decoded code differs from the held one; it may be nil.
func NewDecoder(capacity int, floor, ratio float64, onCode func(code int)) (*Decoder, error) {
	if capacity < TemplateLength {
		return nil, fmt.Errorf("history capacity must be >= %d, got %d", TemplateLength, capacity)
	}
	if floor < 0 {
		return nil, fmt.Errorf("magnitude floor must be >= 0, got %f", floor)
	}
	if ratio <= 0 {
		return nil, fmt.Errorf("dominance ratio must be positive, got %f", ratio)
	}
	return &Decoder{
		floor:   floor,
		ratio:   ratio,
		history: make([]Symbol, capacity),
		code:    NoCode,
		onCode:  onCode,
		ordered: make([]Symbol, 0, capacity),
		edges:   make([]Symbol, 0, capacity),
	}, nil
}

// Code returns the currently held code, or NoCode.
func (d *Decoder) Code() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.code
}

// Process ingests one magnitude map: it extracts the dominant symbol,
// pushes it into the history, and searches the run-length-compressed
// history for the beacon pattern. An empty or degenerate map is not an
// error; it simply contributes a SymbolNone.
func (d *Decoder) Process(mags map[int]float64) {
	d.mu.Lock()

	d.push(d.DominantSymbol(mags))

	code, matched := d.match()
	emit := matched && code != d.code
	if emit {
		d.code = code
	}
	d.mu.Unlock()

	if emit {
		applog.Debugf("decode: signal code changed to %d", code)
		if d.onCode != nil {
			d.onCode(code)
		}
	}
}

// DominantSymbol returns the carrier with the maximum magnitude iff that
// magnitude reaches the absolute floor and exceeds ratio times the mean of
// the other carriers; otherwise SymbolNone. Ties resolve to the earliest
// carrier in declared order.
func (d *Decoder) DominantSymbol(mags map[int]float64) Symbol {
	var (
		best    = SymbolNone
		bestMag float64
		sum     float64
		n       int
	)
	for _, f := range carriers {
		m, ok := mags[f]
		if !ok {
			continue
		}
		sum += m
		n++
		if best == SymbolNone || m > bestMag {
			best = Symbol(f)
			bestMag = m
		}
	}
	if n < 2 || best == SymbolNone {
		return SymbolNone
	}

	avg := (sum - bestMag) / float64(n-1)
	if bestMag >= d.floor && bestMag > d.ratio*avg {
		return best
	}
	return SymbolNone
}

// push appends a symbol to the ring, evicting the oldest on overflow.
func (d *Decoder) push(s Symbol) {
	d.history[d.head] = s
	d.head = (d.head + 1) % len(d.history)
	if d.count < len(d.history) {
		d.count++
	}
}

// match run-length compresses the history and slides the template over the
// resulting edge sequence, most recent window first. It returns the decoded
// code of the first matching window.
func (d *Decoder) match() (int, bool) {
	// Oldest-first view of the ring.
	d.ordered = d.ordered[:0]
	start := (d.head - d.count + len(d.history)) % len(d.history)
	for i := 0; i < d.count; i++ {
		d.ordered = append(d.ordered, d.history[(start+i)%len(d.history)])
	}

	// Drop "none" and adjacent duplicates: only symbol changes remain, so
	// a single frame of spurious dominance cannot produce a false edge
	// pair and brief dropouts between repeats of a symbol collapse.
	d.edges = d.edges[:0]
	for _, s := range d.ordered {
		if s == SymbolNone {
			continue
		}
		if len(d.edges) > 0 && d.edges[len(d.edges)-1] == s {
			continue
		}
		d.edges = append(d.edges, s)
	}

	if len(d.edges) < TemplateLength {
		return 0, false
	}

	for winStart := len(d.edges) - TemplateLength; winStart >= 0; winStart-- {
		if code, ok := decodeWindow(d.edges[winStart : winStart+TemplateLength]); ok {
			return code, true
		}
	}
	return 0, false
}

// decodeWindow checks one 8-symbol window against the template and, on a
// match, folds the two-option slots into a 7-bit code, most significant
// bit first. Slot 0 is fixed and contributes no bits.
func decodeWindow(window []Symbol) (int, bool) {
	code := 0
	for i, s := range window {
		bit := -1
		for ord, allowed := range template[i] {
			if s == allowed {
				bit = ord
				break
			}
		}
		if bit < 0 {
			return 0, false
		}
		if i > 0 {
			code = code<<1 | bit
		}
	}
	return code, true
}
