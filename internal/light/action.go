/*
Package light implements the animated color output stage. A static table
binds decoded signal codes to light actions; the engine renders the active
action as a cancellable stream of color samples at a fixed frame cadence.
*/
package light

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// BehaviorKind selects the animation variant of a light action.
type BehaviorKind int

// Enum of animation behaviors.
const (
	Lighting BehaviorKind = iota // Constant color, steady-state.
	TurnOff                      // Constant off-color, steady-state.
	Blinking                     // Smooth pulse between off-color and Color.
	Gradation                    // Cyclic eased transitions through Colors.
)

// String returns a human-friendly name for the behavior kind.
func (k BehaviorKind) String() string {
	switch k {
	case Lighting:
		return "lighting"
	case TurnOff:
		return "turnOff"
	case Blinking:
		return "blinking"
	case Gradation:
		return "gradation"
	default:
		return "unknown"
	}
}

// Behavior is a tagged variant describing one animation. It is pure data:
// the engine's evaluator interprets it, so tables stay testable without
// running animation timing.
type Behavior struct {
	Kind   BehaviorKind
	Color  colorful.Color   // Blinking and Lighting target color.
	Colors []colorful.Color // Gradation color cycle, in order.

	Duration time.Duration // Blink cycle or gradation step length.
	// FirstDuration overrides Duration for the very first gradation step,
	// RepeatDuration after the first full loop. Zero means no override.
	// Product revisions vary these, so they stay configurable.
	FirstDuration  time.Duration
	RepeatDuration time.Duration
}

// Action is an immutable binding of a decoded signal code to a named
// behavior.
type Action struct {
	Code     int
	Name     string
	Behavior Behavior
}

func hex(s string) colorful.Color {
	c, _ := colorful.Hex(s)
	return c
}

// DefaultActions returns the built-in code table. Durations default from
// cfg-level values at engine construction when left zero here.
func DefaultActions() []Action {
	return []Action{
		{Code: 0, Name: "standby", Behavior: Behavior{Kind: TurnOff}},
		{Code: 1, Name: "all-clear", Behavior: Behavior{
			Kind:  Lighting,
			Color: hex("#2ecc40"),
		}},
		{Code: 5, Name: "alert", Behavior: Behavior{
			Kind:     Blinking,
			Color:    hex("#ff4136"),
			Duration: 1000 * time.Millisecond,
		}},
		{Code: 9, Name: "caution", Behavior: Behavior{
			Kind:     Blinking,
			Color:    hex("#ffb700"),
			Duration: 1500 * time.Millisecond,
		}},
		{Code: 23, Name: "evacuate", Behavior: Behavior{
			Kind:     Gradation,
			Colors:   []colorful.Color{hex("#ff4136"), hex("#ffffff")},
			Duration: 800 * time.Millisecond,
		}},
		{Code: 42, Name: "announcement", Behavior: Behavior{
			Kind:          Gradation,
			Colors:        []colorful.Color{hex("#0074d9"), hex("#7fdbff"), hex("#ffffff")},
			Duration:      1200 * time.Millisecond,
			FirstDuration: 600 * time.Millisecond,
		}},
		{Code: 127, Name: "information", Behavior: Behavior{
			Kind:  Lighting,
			Color: hex("#0074d9"),
		}},
	}
}
