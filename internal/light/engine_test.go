package light

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"lumitone/internal/config"
)

// recorder collects emitted frames for inspection.
type recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recorder) Render(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

func testLightConfig() config.LightConfig {
	return config.LightConfig{
		FrameInterval:      2 * time.Millisecond,
		OffColor:           "#000000",
		BlinkDuration:      40 * time.Millisecond,
		TransitionDuration: 40 * time.Millisecond,
	}
}

func newTestEngine(t *testing.T, rec *recorder) *Engine {
	t.Helper()
	engine, err := NewEngine(testLightConfig(), DefaultActions(), rec)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestNewEngine_Rejects(t *testing.T) {
	rec := &recorder{}

	if _, err := NewEngine(testLightConfig(), DefaultActions(), nil); err == nil {
		t.Error("expected error for nil renderer")
	}

	cfg := testLightConfig()
	cfg.FrameInterval = 0
	if _, err := NewEngine(cfg, DefaultActions(), rec); err == nil {
		t.Error("expected error for zero frame interval")
	}

	cfg = testLightConfig()
	cfg.OffColor = "not-a-color"
	if _, err := NewEngine(cfg, DefaultActions(), rec); err == nil {
		t.Error("expected error for invalid off color")
	}

	dup := []Action{
		{Code: 1, Name: "a", Behavior: Behavior{Kind: TurnOff}},
		{Code: 1, Name: "b", Behavior: Behavior{Kind: TurnOff}},
	}
	if _, err := NewEngine(testLightConfig(), dup, rec); err == nil {
		t.Error("expected error for duplicate code")
	}

	empty := []Action{{Code: 2, Name: "g", Behavior: Behavior{Kind: Gradation}}}
	if _, err := NewEngine(testLightConfig(), empty, rec); err == nil {
		t.Error("expected error for gradation without colors")
	}
}

func TestNewEngine_FillsDefaultDurations(t *testing.T) {
	rec := &recorder{}
	actions := []Action{
		{Code: 3, Name: "b", Behavior: Behavior{Kind: Blinking, Color: hex("#ffffff")}},
	}
	engine, err := NewEngine(testLightConfig(), actions, rec)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got := engine.actions[3].Behavior.Duration; got != 40*time.Millisecond {
		t.Errorf("expected blink duration filled from config, got %s", got)
	}
}

func TestApply_SteadyStateLighting(t *testing.T) {
	rec := &recorder{}
	engine := newTestEngine(t, rec)
	defer engine.Stop()

	engine.Apply(1) // all-clear, constant green
	time.Sleep(20 * time.Millisecond)

	frames := rec.snapshot()
	if len(frames) != 1 {
		t.Fatalf("expected exactly one steady-state frame, got %d", len(frames))
	}
	if frames[0].Code != 1 || frames[0].Name != "all-clear" {
		t.Errorf("unexpected frame %+v", frames[0])
	}
}

func TestApply_UnknownCodeKeepsCurrent(t *testing.T) {
	rec := &recorder{}
	engine := newTestEngine(t, rec)
	defer engine.Stop()

	engine.Apply(5) // alert, blinking
	time.Sleep(10 * time.Millisecond)
	engine.Apply(99) // not in the table
	time.Sleep(10 * time.Millisecond)

	for _, f := range rec.snapshot() {
		if f.Code != 5 {
			t.Fatalf("expected only code 5 frames, got %+v", f)
		}
	}
}

func TestApply_AtomicSwitch(t *testing.T) {
	rec := &recorder{}
	engine := newTestEngine(t, rec)
	defer engine.Stop()

	engine.Apply(5) // blinking
	time.Sleep(20 * time.Millisecond)
	engine.Apply(23) // gradation
	time.Sleep(20 * time.Millisecond)

	frames := rec.snapshot()
	if len(frames) == 0 {
		t.Fatal("expected frames to be emitted")
	}

	// Once the new schedule has begun, no frame of the previous code may
	// appear: the switch is atomic and non-interleaved.
	seenNew := false
	for i, f := range frames {
		switch f.Code {
		case 23:
			seenNew = true
		case 5:
			if seenNew {
				t.Fatalf("frame %d: code 5 emitted after code 23 began", i)
			}
		default:
			t.Fatalf("frame %d: unexpected code %d", i, f.Code)
		}
	}
	if !seenNew {
		t.Error("expected frames from the new animation")
	}
}

func TestStop_ObservedWithinFrameInterval(t *testing.T) {
	rec := &recorder{}
	engine := newTestEngine(t, rec)

	engine.Apply(9) // blinking
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	engine.Stop()
	if waited := time.Since(start); waited > 20*time.Millisecond {
		t.Errorf("Stop took %s, want under a few frame intervals", waited)
	}

	n := len(rec.snapshot())
	time.Sleep(10 * time.Millisecond)
	if got := len(rec.snapshot()); got != n {
		t.Errorf("frames emitted after Stop: %d -> %d", n, got)
	}
}

func TestBlinkFrame_PulseShape(t *testing.T) {
	off := colorful.Color{}
	on := colorful.Color{R: 1, G: 1, B: 1}
	duration := 1000 * time.Millisecond

	brightness := func(elapsed time.Duration) float64 {
		return blinkFrame(off, on, duration, elapsed).R
	}

	if b := brightness(0); b != 0 {
		t.Errorf("expected off at cycle start, got %.3f", b)
	}
	if b := brightness(250 * time.Millisecond); math.Abs(b-1) > 1e-9 {
		t.Errorf("expected full brightness at 25%%, got %.3f", b)
	}
	// Rises to the hold, falls back off before the cycle ends.
	if !(brightness(100*time.Millisecond) < brightness(200*time.Millisecond)) {
		t.Error("expected rising brightness in the first quarter")
	}
	if !(brightness(600*time.Millisecond) > brightness(700*time.Millisecond)) {
		t.Error("expected falling brightness in the third quarter")
	}
	if b := brightness(760 * time.Millisecond); b != 0 {
		t.Errorf("expected off in the final quarter, got %.3f", b)
	}
	// The next cycle starts at off again.
	if b := brightness(duration); b != 0 {
		t.Errorf("expected off at cycle boundary, got %.3f", b)
	}
	// Mirror symmetry between the ramps.
	up := brightness(100 * time.Millisecond)
	down := brightness(650 * time.Millisecond)
	if math.Abs(up-down) > 1e-9 {
		t.Errorf("ramps not symmetric: %.6f vs %.6f", up, down)
	}
}

func TestGradation_CyclesThroughColors(t *testing.T) {
	c0 := hex("#ff0000")
	c1 := hex("#00ff00")
	c2 := hex("#0000ff")
	off := colorful.Color{}
	b := Behavior{
		Kind:     Gradation,
		Colors:   []colorful.Color{c0, c1, c2},
		Duration: 100 * time.Millisecond,
	}

	base := time.Unix(0, 0)
	g := newGradation(b, off, base)

	at := func(ms int) colorful.Color {
		return g.frame(base.Add(time.Duration(ms) * time.Millisecond))
	}

	// Each transition reaches its target at the step midpoint and holds.
	if got := at(50); got != c0 {
		t.Errorf("expected c0 at 50ms, got %v", got)
	}
	if got := at(150); got != c1 {
		t.Errorf("expected c1 at 150ms, got %v", got)
	}
	if got := at(250); got != c2 {
		t.Errorf("expected c2 at 250ms, got %v", got)
	}
	// After the full list, the next target is c0 again.
	if got := at(350); got != c0 {
		t.Errorf("expected cyclic return to c0 at 350ms, got %v", got)
	}
	if g.loops != 1 {
		t.Errorf("expected one completed loop, got %d", g.loops)
	}
}

func TestGradation_FirstAndRepeatDurations(t *testing.T) {
	c0 := hex("#ff0000")
	c1 := hex("#00ff00")
	off := colorful.Color{}
	b := Behavior{
		Kind:           Gradation,
		Colors:         []colorful.Color{c0, c1},
		Duration:       100 * time.Millisecond,
		FirstDuration:  50 * time.Millisecond,
		RepeatDuration: 200 * time.Millisecond,
	}

	base := time.Unix(0, 0)
	g := newGradation(b, off, base)

	if g.segDur != 50*time.Millisecond {
		t.Fatalf("expected first duration 50ms, got %s", g.segDur)
	}

	// Segments: off->c0 over 50ms, c0->c1 over 100ms (loop completes at
	// 150ms), then repeats run at 200ms per step.
	if got := g.frame(base.Add(25 * time.Millisecond)); got != c0 {
		t.Errorf("expected c0 at first-step midpoint, got %v", got)
	}
	if got := g.frame(base.Add(100 * time.Millisecond)); got != c1 {
		t.Errorf("expected c1 at second-step midpoint, got %v", got)
	}
	g.frame(base.Add(150 * time.Millisecond))
	if g.segDur != 200*time.Millisecond {
		t.Errorf("expected repeat duration 200ms after the first loop, got %s", g.segDur)
	}
}

func TestApply_IdempotentForSameCode(t *testing.T) {
	rec := &recorder{}
	engine := newTestEngine(t, rec)
	defer engine.Stop()

	// Re-applying the same code restarts the same behavior; frames stay
	// within one schedule.
	engine.Apply(5)
	time.Sleep(10 * time.Millisecond)
	engine.Apply(5)
	time.Sleep(10 * time.Millisecond)

	for _, f := range rec.snapshot() {
		if f.Code != 5 {
			t.Fatalf("expected only code 5 frames, got %+v", f)
		}
	}
}
