// Package tui provides a terminal live preview of the animation output:
// the current signal code, action name, and a swatch painted with each
// emitted color.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lumitone/internal/light"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// FrameMsg carries one emitted color frame into the preview model.
type FrameMsg light.Frame

// keyMap defines the preview key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// PreviewModel is the Bubble Tea model for the live preview screen.
type PreviewModel struct {
	frame     light.Frame
	haveFrame bool
	width     int
}

// NewPreviewModel creates an empty preview model.
func NewPreviewModel() PreviewModel {
	return PreviewModel{}
}

// Init implements tea.Model.
func (m PreviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case FrameMsg:
		m.frame = light.Frame(msg)
		m.haveFrame = true
	}
	return m, nil
}

// View implements tea.Model.
func (m PreviewModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("lumitone preview"))
	b.WriteString("\n\n")

	if !m.haveFrame {
		b.WriteString(infoStyle.Render("Listening for ultrasonic beacons..."))
		b.WriteString("\n")
		return b.String()
	}

	hexColor := m.frame.Color.Hex()
	swatch := lipgloss.NewStyle().
		Background(lipgloss.Color(hexColor)).
		Width(24).
		Height(5).
		Render("")

	b.WriteString(swatch)
	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("Signal: "))
	b.WriteString(highlightStyle.Render(m.frame.Name))
	b.WriteString(infoStyle.Render(fmt.Sprintf("  (code %d, color %s)", m.frame.Code, hexColor)))
	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("Press q to quit."))
	b.WriteString("\n")

	return b.String()
}

// Renderer forwards emitted frames into a running preview program. It
// satisfies light.Renderer; Send is non-blocking enough for the frame
// cadence.
type Renderer struct {
	program *tea.Program
}

// NewRenderer wraps a Bubble Tea program as a light.Renderer.
func NewRenderer(program *tea.Program) *Renderer {
	return &Renderer{program: program}
}

// Render implements light.Renderer.
func (r *Renderer) Render(frame light.Frame) {
	r.program.Send(FrameMsg(frame))
}

var _ light.Renderer = (*Renderer)(nil)
