// Package display renders the status panel refreshed by the display task.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	"github.com/san-kum/balancer/internal/bus"
)

// Frame is what one refresh shows.
type Frame struct {
	Seq    uint64
	Uptime time.Duration
	Bus    bus.Stats
}

// Panel draws frames. Draw is called with the shared bus held.
type Panel interface {
	Draw(ctx context.Context, f Frame) error
}

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899")).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff"))
)

// TextPanel writes frames to a terminal.
type TextPanel struct {
	out   io.Writer
	clear bool
}

// NewTextPanel writes to out. With clear set each frame redraws the screen.
func NewTextPanel(out io.Writer, clear bool) *TextPanel {
	return &TextPanel{out: out, clear: clear}
}

func (p *TextPanel) Render(f Frame) string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	lines := []string{
		titleStyle.Render("balancer"),
		row("uptime", f.Uptime.Truncate(time.Second).String()),
		row("frame", humanize.Comma(int64(f.Seq))),
		row("bus txn", humanize.Comma(int64(f.Bus.Transactions))),
		row("contended", fmt.Sprintf("%s (%s)", humanize.Comma(int64(f.Bus.Contended)), contention(f.Bus))),
		row("bus wait", f.Bus.Wait.Round(time.Microsecond).String()),
	}
	return frameStyle.Render(strings.Join(lines, "\n"))
}

func contention(s bus.Stats) string {
	if s.Transactions == 0 {
		return "0%"
	}
	return humanize.FormatFloat("#.#", 100*float64(s.Contended)/float64(s.Transactions)) + "%"
}

func (p *TextPanel) Draw(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	if p.clear {
		b.WriteString("\033[H\033[2J")
	}
	b.WriteString(p.Render(f))
	b.WriteByte('\n')
	_, err := io.WriteString(p.out, b.String())
	return err
}
