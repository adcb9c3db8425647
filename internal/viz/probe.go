package viz

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/sim"
)

const (
	trailCapacity = 400
	// headerLines is the height of the title block above the canvas.
	headerLines = 2
	footerLines = 5
)

var (
	white = color.RGBA{255, 255, 255, 255}
	grey  = color.RGBA{90, 90, 110, 255}
)

type probeTickMsg time.Time

func probeTick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return probeTickMsg(t) })
}

type point struct{ x, y float64 }

// ProbeModel follows one particle dropped with the mouse. Nothing moves
// until the first click; every later click restarts the particle there.
type ProbeModel struct {
	probe   *sim.Probe
	canvas  *Canvas
	colors  []color.RGBA
	trail   []point
	worldW  float64
	worldH  float64
	speed   int
	started bool
	running bool
}

func NewProbeModel(probe *sim.Probe, worldW, worldH float64) ProbeModel {
	masses := probe.Masses()
	pal := classify.NewPalette()
	colors := make([]color.RGBA, len(masses))
	for i := range masses {
		colors[i] = pal.Color(i, len(masses))
	}
	return ProbeModel{
		probe:   probe,
		canvas:  NewCanvas(80, 24, worldW, worldH),
		colors:  colors,
		worldW:  worldW,
		worldH:  worldH,
		speed:   1,
		running: true,
	}
}

func (m ProbeModel) Init() tea.Cmd { return probeTick() }

func (m ProbeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.speed = min(m.speed*2, 256)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "c":
			m.trail = m.trail[:0]
		}
	case tea.WindowSizeMsg:
		cols, rows := msg.Width, msg.Height-headerLines-footerLines
		if cols > 0 && rows > 0 {
			m.canvas = NewCanvas(cols, rows, m.worldW, m.worldH)
		}
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.drop(msg.X, msg.Y-headerLines)
		}
	case probeTickMsg:
		if m.started && m.running {
			m.probe.Step(m.speed)
			p := m.probe.Particle()
			m.trail = append(m.trail, point{p.X, p.Y})
			if len(m.trail) > trailCapacity {
				m.trail = m.trail[1:]
			}
		}
		return m, probeTick()
	}
	return m, nil
}

// drop restarts the particle under a terminal cell of the canvas.
func (m *ProbeModel) drop(col, row int) {
	if col < 0 || row < 0 || col >= m.canvas.Width || row >= m.canvas.Height {
		return
	}
	x, y := m.canvas.CellToWorld(col, row)
	m.probe.Reset(x, y)
	m.trail = append(m.trail[:0], point{x, y})
	m.started = true
}

func (m ProbeModel) View() string {
	c := m.canvas
	c.Clear()

	for i, mass := range m.probe.Masses() {
		c.Disc(mass.X, mass.Y, 2, m.colors[i])
	}
	for i := 1; i < len(m.trail); i++ {
		x0, y0 := c.ToDots(m.trail[i-1].x, m.trail[i-1].y)
		x1, y1 := c.ToDots(m.trail[i].x, m.trail[i].y)
		c.DrawLine(x0, y0, x1, y1, grey)
	}

	var s strings.Builder
	s.WriteString(HeaderStyle.Render("GRAVITY PROBE") + "\n")
	if m.started {
		p := m.probe.Particle()
		c.Disc(p.X, p.Y, 1, white)
		s.WriteString(c.Render())

		status := StatusRunning.Render("RUNNING")
		if !m.running {
			status = StatusPaused.Render("PAUSED")
		}
		nearest, _ := dynamo.Nearest(p.X, p.Y, m.probe.Masses())
		s.WriteString(fmt.Sprintf("%s  %s %s  %s\n", status,
			Metric("Steps", fmt.Sprintf("%d", m.probe.Steps())),
			Metric("Speed", fmt.Sprintf("%dx", m.speed)),
			Metric("Position", fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y))))
		s.WriteString(MetricLabel.Render("Colour") + Swatch(m.probe.Color()) + MetricLabel.Render("  Nearest") + fmt.Sprintf("%d ", nearest) + Swatch(m.colors[nearest]) + "\n")
	} else {
		s.WriteString(c.Render())
		s.WriteString(StatusPaused.Render("CLICK TO DROP A PARTICLE") + "\n\n")
	}
	s.WriteString(massLegend(m.colors) + "\n")
	s.WriteString(KeyHint.Render("click:Drop  SP:Pause  +/-:Speed  C:Clear trail  Q:Quit"))
	return s.String()
}

// massLegend lists each mass index next to its basin colour.
func massLegend(colors []color.RGBA) string {
	var b strings.Builder
	b.WriteString(Subtle.Render("masses"))
	for i, c := range colors {
		fmt.Fprintf(&b, " %d %s", i, Swatch(c))
	}
	return b.String()
}

// RunProbe runs the interactive probe until the user quits.
func RunProbe(probe *sim.Probe, worldW, worldH float64, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}, opts...)
	_, err := tea.NewProgram(NewProbeModel(probe, worldW, worldH), opts...).Run()
	return err
}
