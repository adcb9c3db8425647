package viz

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/sim"
)

const historyCapacity = 600

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(52)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

var seriesColors = []asciigraph.AnsiColor{asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Cyan}

type frameMsg struct {
	index, steps int
	img          *image.RGBA
	shares       []float64
	escaped      float64
}

type finishedMsg struct{}

// previewModel shows the latest frame next to basin share history.
type previewModel struct {
	title    string
	frames   int
	img      *image.RGBA
	index    int
	steps    int
	escaped  float64
	history  [][]float64
	received int
	finished bool
	start    time.Time
}

func newPreviewModel(title string, frames int) previewModel {
	return previewModel{title: title, frames: frames, start: time.Now()}
}

func (m previewModel) Init() tea.Cmd { return nil }

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case frameMsg:
		m.img = msg.img
		m.index, m.steps, m.escaped = msg.index, msg.steps, msg.escaped
		m.received++
		if len(m.history) != len(msg.shares) {
			m.history = make([][]float64, len(msg.shares))
		}
		for i, v := range msg.shares {
			m.history[i] = append(m.history[i], v)
			if len(m.history[i]) > historyCapacity {
				m.history[i] = m.history[i][1:]
			}
		}
	case finishedMsg:
		m.finished = true
	}
	return m, nil
}

func (m previewModel) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(m.title) + "\n\n")

	switch {
	case m.finished:
		s.WriteString(StatusPaused.Render("FRAME RENDERING COMPLETE") + "\n\n")
	case m.received == 0:
		s.WriteString(StatusRunning.Render("RENDERING FRAME 0") + "\n\n")
	default:
		s.WriteString(StatusRunning.Render("RENDERING") + "\n\n")
	}

	if m.frames > 0 {
		done := float64(m.received) / float64(m.frames)
		s.WriteString(ProgressBar(done, 30) + fmt.Sprintf(" %d/%d\n\n", m.received, m.frames))
	}

	s.WriteString(Metric("Frame", fmt.Sprintf("%d", m.index)) + "\n")
	s.WriteString(Metric("Steps", fmt.Sprintf("%d", m.steps)) + "\n")
	s.WriteString(Metric("Escaped", fmt.Sprintf("%.2f%%", 100*m.escaped)) + "\n")
	s.WriteString(Metric("Elapsed", time.Since(m.start).Round(time.Second).String()) + "\n")
	for i, h := range m.history {
		if len(h) > 0 {
			s.WriteString(Metric(fmt.Sprintf("Basin %d", i), fmt.Sprintf("%.1f%%", 100*h[len(h)-1])) + "\n")
		}
	}

	if len(m.history) > 0 && len(m.history[0]) > 1 {
		colors := seriesColors
		if len(m.history) < len(colors) {
			colors = colors[:len(m.history)]
		}
		chart := asciigraph.PlotMany(m.history,
			asciigraph.Height(6),
			asciigraph.Width(36),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(1),
			asciigraph.SeriesColors(colors...),
			asciigraph.Caption("basin share"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(helpStyle.Render("Q:Quit"))

	view := ""
	if m.img != nil {
		view = HalfBlocks(m.img)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(view), statsStyle.Render(s.String()))
}

// Preview is a frame sink that shows the run in the terminal. Quitting
// the view closes the sink, which stops the driver at the next frame.
type Preview struct {
	Cols, Rows int

	prog     *tea.Program
	keepOpen bool
	done     chan struct{}
	closed   atomic.Bool
	once     sync.Once
	err      error
}

// NewPreview starts the view. With keepOpen set, Close waits for the user
// to quit instead of tearing the view down.
func NewPreview(title string, frames int, keepOpen bool, opts ...tea.ProgramOption) *Preview {
	p := &Preview{
		Cols:     64,
		Rows:     28,
		prog:     tea.NewProgram(newPreviewModel(title, frames), opts...),
		keepOpen: keepOpen,
		done:     make(chan struct{}),
	}
	go func() {
		_, p.err = p.prog.Run()
		p.closed.Store(true)
		close(p.done)
	}()
	return p
}

func (p *Preview) send(ctx context.Context, msg tea.Msg) error {
	sent := make(chan struct{})
	go func() {
		p.prog.Send(msg)
		close(sent)
	}()
	select {
	case <-sent:
		return nil
	case <-p.done:
		return dynamo.ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Preview) Emit(ctx context.Context, f sim.Frame) error {
	if p.closed.Load() {
		return dynamo.ErrSinkClosed
	}
	return p.send(ctx, frameMsg{
		index:   f.Index,
		steps:   f.Steps,
		img:     Thumbnail(f.Image, p.Cols, p.Rows),
		shares:  append([]float64(nil), f.Stats.Shares...),
		escaped: f.Stats.Escaped,
	})
}

func (p *Preview) Closed() bool { return p.closed.Load() }

// Done is closed once the view has exited.
func (p *Preview) Done() <-chan struct{} { return p.done }

func (p *Preview) Close() error {
	p.once.Do(func() {
		if p.closed.Load() {
			return
		}
		_ = p.send(context.Background(), finishedMsg{})
		if !p.keepOpen {
			p.prog.Quit()
		}
		<-p.done
	})
	<-p.done
	if errors.Is(p.err, tea.ErrProgramKilled) {
		return nil
	}
	return p.err
}
