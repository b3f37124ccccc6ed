package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/sim"
)

const (
	width           = 40
	height          = 16
	historyCapacity = 300
	frameInterval   = time.Second / 30
	nudgeRate       = 0.5
)

type TickMsg time.Time

// Model steps a simulator in real time and draws it.
type Model struct {
	ctx           context.Context
	sim           *sim.Simulator
	controller    dynamo.Controller
	period        time.Duration
	steps         int
	name          string
	initialTilt   float64
	canvas        *Canvas
	running       bool
	fell          bool
	last          sim.Sample
	tiltHistory   []float64
	dutyHistory   []float64
	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
	paramErr      string
	showHelp      bool
}

// NewModel wraps s, whose control task runs ctrl every period.
func NewModel(ctx context.Context, s *sim.Simulator, ctrl dynamo.Controller, period time.Duration, initialTilt float64, name string) Model {
	params := make(map[string]float64)
	initialParams := make(map[string]float64)
	if c, ok := ctrl.(dynamo.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
			initialParams[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	steps := int(frameInterval / period)
	if steps < 1 {
		steps = 1
	}

	return Model{
		ctx:           ctx,
		sim:           s,
		controller:    ctrl,
		period:        period,
		steps:         steps,
		name:          name,
		initialTilt:   initialTilt,
		canvas:        NewCanvas(width, height),
		running:       true,
		tiltHistory:   make([]float64, 0, historyCapacity),
		dutyHistory:   make([]float64, 0, historyCapacity),
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "n":
			m.sim.Board().Nudge(nudgeRate)
		case "b":
			m.sim.Board().Nudge(-nudgeRate)
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1)
		case "down", "j":
			m.adjustParam(-1)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.fell {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance runs the control periods that fit in one frame.
func (m *Model) advance() {
	for i := 0; i < m.steps; i++ {
		m.last = m.sim.Step(m.ctx, m.period)
		m.tiltHistory = push(m.tiltHistory, m.last.Tilt)
		m.dutyHistory = push(m.dutyHistory, float64(m.last.Command.Right))
		if m.sim.Board().Fallen() {
			m.fell = true
			return
		}
	}
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

// adjustParam nudges the selected gain one notch. Integer gains move by one,
// others by 5%.
func (m *Model) adjustParam(dir int) {
	c, ok := m.controller.(dynamo.Configurable)
	if !ok || len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key]

	var next float64
	switch {
	case key == "deadband":
		next = val + float64(dir)
	case val == 0 && dir > 0:
		next = 0.01
	case dir > 0:
		next = val * 1.05
	default:
		next = val * 0.95
	}

	if err := c.SetParam(key, next); err != nil {
		m.paramErr = err.Error()
		return
	}
	m.paramErr = ""
	m.params[key] = c.GetParams()[key]
}

func (m *Model) reset() {
	m.sim.Board().Reset(m.initialTilt)
	m.fell = false
	m.tiltHistory = m.tiltHistory[:0]
	m.dutyHistory = m.dutyHistory[:0]
	m.paramErr = ""
	c, ok := m.controller.(dynamo.Configurable)
	for k, v := range m.initialParams {
		m.params[k] = v
		if ok {
			c.SetParam(k, v)
		}
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	pw, ph := m.canvas.Pixels()

	ground := ph - 4
	m.canvas.DrawLine(0, ground, pw-1, ground)

	// Position wraps around the view so a drifting vehicle stays visible.
	span := float64(pw - 16)
	off := math.Mod(m.last.Position*20, span)
	if off < 0 {
		off += span
	}
	wx := 8 + int(off)
	wy := ground - 5
	m.canvas.DrawCircle(wx, wy, 4)

	length := float64(ph) * 0.7
	tx := wx + int(length*math.Sin(m.last.Tilt))
	ty := wy - int(length*math.Cos(m.last.Tilt))
	m.canvas.DrawLine(wx, wy, tx, ty)
	m.canvas.DrawLine(wx+1, wy, tx+1, ty)
}

func (m Model) status() string {
	switch {
	case m.fell:
		return statusFallen.Render(fmt.Sprintf("FALLEN at %.2fs", m.last.Time))
	case !m.running:
		return statusPaused.Render("PAUSED")
	default:
		return statusRunning.Render("RUNNING")
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render("BALANCER · "+strings.ToUpper(m.name)) + "\n")
	s.WriteString(m.status() + "\n\n")
	if len(m.tiltHistory) > 1 {
		chart := asciigraph.Plot(m.tiltHistory, asciigraph.Height(5), asciigraph.Width(34), asciigraph.Caption("Tilt (rad)"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.last.Time))
	row("Tilt", fmt.Sprintf("%+.4f rad", m.last.Tilt))
	row("Rate", fmt.Sprintf("%+.3f rad/s", m.last.TiltRate))
	row("Duty", fmt.Sprintf("L %+4d  R %+4d", m.last.Command.Left, m.last.Command.Right))
	row("Effort", Sparkline(m.dutyHistory, 100, 30))
	row("Cycle", m.last.Outcome.String())
	row("Error", fmt.Sprintf("%.3e", m.last.Telemetry.Error))
	row("dError", fmt.Sprintf("%.3e", m.last.Telemetry.ErrorDerivative))

	s.WriteString("\nGAINS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-9s %s %.4g", k, gainBar(m.params[k], m.initialParams[k], 10), m.params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	if m.paramErr != "" {
		s.WriteString(statusPaused.Render(m.paramErr) + "\n")
	}
	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nN/B:Push ↑↓:Tune ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Reset chassis and gains  ║
║  Q        - Quit                     ║
║  N / B    - Push forward / back      ║
║  Tab      - Select gain              ║
║  Up/K     - Increase gain            ║
║  Down/J   - Decrease gain            ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// Run shows the model full screen until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
