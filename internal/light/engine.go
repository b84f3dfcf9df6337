package light

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"lumitone/internal/config"
	applog "lumitone/internal/log"
)

// Frame is one emitted color sample, tagged with the action it belongs to.
type Frame struct {
	Code  int
	Name  string
	Color colorful.Color
}

// Renderer receives each emitted frame synchronously. Implementations are
// assumed cheap and non-blocking; there is no backpressure channel back
// into the engine.
type Renderer interface {
	Render(frame Frame)
}

// RendererFunc adapts a plain function to the Renderer interface.
type RendererFunc func(frame Frame)

// Render calls f(frame).
func (f RendererFunc) Render(frame Frame) { f(frame) }

// Engine owns the code->action table and the single in-flight animation.
// Apply atomically replaces the active animation: the previous loop has
// fully exited before the new one emits, so colors from two schedules
// never interleave.
type Engine struct {
	actions       map[int]Action
	renderer      Renderer
	frameInterval time.Duration
	offColor      colorful.Color

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine builds an engine from the light configuration and the action
// table. Zero durations in a behavior are filled from the configuration
// defaults; the finished table is validated eagerly.
func NewEngine(cfg config.LightConfig, actions []Action, renderer Renderer) (*Engine, error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer must not be nil")
	}
	if cfg.FrameInterval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %s", cfg.FrameInterval)
	}
	offColor, err := colorful.Hex(cfg.OffColor)
	if err != nil {
		return nil, fmt.Errorf("invalid off color %q: %w", cfg.OffColor, err)
	}

	table := make(map[int]Action, len(actions))
	for _, act := range actions {
		if _, dup := table[act.Code]; dup {
			return nil, fmt.Errorf("duplicate action for code %d", act.Code)
		}
		b := &act.Behavior
		switch b.Kind {
		case Lighting, TurnOff:
			// No timing to validate.
		case Blinking:
			if b.Duration <= 0 {
				b.Duration = cfg.BlinkDuration
			}
			if b.Duration <= 0 {
				return nil, fmt.Errorf("action %q: blink duration must be positive", act.Name)
			}
		case Gradation:
			if len(b.Colors) == 0 {
				return nil, fmt.Errorf("action %q: gradation needs at least one color", act.Name)
			}
			if b.Duration <= 0 {
				b.Duration = cfg.TransitionDuration
			}
			if b.FirstDuration <= 0 {
				b.FirstDuration = cfg.FirstTransition
			}
			if b.RepeatDuration <= 0 {
				b.RepeatDuration = cfg.RepeatTransition
			}
			if b.Duration <= 0 {
				return nil, fmt.Errorf("action %q: transition duration must be positive", act.Name)
			}
		default:
			return nil, fmt.Errorf("action %q: unknown behavior kind %d", act.Name, b.Kind)
		}
		table[act.Code] = act
	}

	return &Engine{
		actions:       table,
		renderer:      renderer,
		frameInterval: cfg.FrameInterval,
		offColor:      offColor,
	}, nil
}

// OffColor returns the configured off-color.
func (e *Engine) OffColor() colorful.Color {
	return e.offColor
}

// Apply switches the active animation to the one bound to code. The call
// blocks until the previous animation loop has fully exited (at most one
// frame interval) before the new one starts. An unknown code keeps the
// current animation running unchanged.
func (e *Engine) Apply(code int) {
	act, ok := e.actions[code]
	if !ok {
		applog.Debugf("light: no action bound to code %d, keeping current animation", code)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()

	applog.Infof("light: starting %q (code %d, %s)", act.Name, act.Code, act.Behavior.Kind)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	go e.run(ctx, act, done)
}

// Stop cancels the active animation and waits for its loop to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
		e.cancel = nil
		e.done = nil
	}
}

// run evaluates one action until cancelled. Cancellation is cooperative
// and observed within one frame interval.
func (e *Engine) run(ctx context.Context, act Action, done chan struct{}) {
	defer close(done)

	emit := func(c colorful.Color) {
		e.renderer.Render(Frame{Code: act.Code, Name: act.Name, Color: c})
	}

	switch act.Behavior.Kind {
	case Lighting:
		// Steady-state: the renderer holds the last value.
		emit(act.Behavior.Color)

	case TurnOff:
		emit(e.offColor)

	case Blinking:
		start := time.Now()
		ticker := time.NewTicker(e.frameInterval)
		defer ticker.Stop()
		emit(e.offColor)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				emit(blinkFrame(e.offColor, act.Behavior.Color, act.Behavior.Duration, now.Sub(start)))
			}
		}

	case Gradation:
		g := newGradation(act.Behavior, e.offColor, time.Now())
		ticker := time.NewTicker(e.frameInterval)
		defer ticker.Stop()
		emit(e.offColor)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				emit(g.frame(now))
			}
		}
	}
}

// blinkFrame returns the blink color for the elapsed time within the
// cycle. Timing is driven by wall-clock elapsed time, not frame count, so
// the pulse stays accurate under scheduling jitter.
func blinkFrame(off, on colorful.Color, duration, elapsed time.Duration) colorful.Color {
	p := float64(elapsed%duration) / float64(duration)
	return off.BlendRgb(on, BlinkEase(p))
}

// gradation is the restartable per-frame evaluator for the Gradation
// behavior: each frame call advances the eased transition toward the
// current target and cycles through the color list forever.
type gradation struct {
	behavior Behavior
	from     colorful.Color
	idx      int  // Index of the current target color.
	loops    int  // Completed passes over the color list.
	first    bool // True until the first transition completes.
	segStart time.Time
	segDur   time.Duration
}

func newGradation(b Behavior, off colorful.Color, now time.Time) *gradation {
	g := &gradation{
		behavior: b,
		from:     off,
		first:    true,
		segStart: now,
	}
	g.segDur = g.pickDuration()
	return g
}

// pickDuration selects the duration of the upcoming transition: the first
// transition and repeats after the first full loop may be configured with
// their own durations.
func (g *gradation) pickDuration() time.Duration {
	b := g.behavior
	if g.first && b.FirstDuration > 0 {
		return b.FirstDuration
	}
	if g.loops > 0 && b.RepeatDuration > 0 {
		return b.RepeatDuration
	}
	return b.Duration
}

// frame returns the color at the given instant, advancing to the next
// target whenever the current transition's duration has fully elapsed.
func (g *gradation) frame(now time.Time) colorful.Color {
	for now.Sub(g.segStart) >= g.segDur {
		target := g.behavior.Colors[g.idx]
		g.from = target
		g.first = false
		g.idx++
		if g.idx == len(g.behavior.Colors) {
			g.idx = 0
			g.loops++
		}
		g.segStart = g.segStart.Add(g.segDur)
		g.segDur = g.pickDuration()
	}

	p := float64(now.Sub(g.segStart)) / float64(g.segDur)
	return g.from.BlendRgb(g.behavior.Colors[g.idx], TransitionEase(p))
}
