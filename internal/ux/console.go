// Package ux narrates a generation run on the terminal.
package ux

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgallion1/docgen/internal/provider"
)

// Width is the column at which narration wraps.
const Width = 100

var (
	dimStyle     = lipgloss.NewStyle().Faint(true)
	stepStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

// Console writes timestamped, styled progress lines.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func New(w io.Writer) *Console {
	return &Console{w: w, now: time.Now}
}

// Discard returns a Console that prints nothing.
func Discard() *Console { return New(io.Discard) }

func (c *Console) line(style lipgloss.Style, marker, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := dimStyle.Render("[" + c.now().Format("15:04:05") + "]")
	body := wordwrap.String(marker+" "+msg, Width-11)
	body = strings.ReplaceAll(body, "\n", "\n"+strings.Repeat(" ", 13))
	fmt.Fprintf(c.w, "%s  %s\n", ts, style.Render(body))
}

// Step announces a unit of work.
func (c *Console) Step(msg string) { c.line(stepStyle, "→", msg) }

func (c *Console) Info(msg string) { c.line(infoStyle, "·", msg) }

func (c *Console) Warn(msg string) { c.line(warnStyle, "⚠", msg) }

func (c *Console) Error(msg string) { c.line(errorStyle, "✗", msg) }

// Section prints a titled block of wrapped text.
func (c *Console) Section(title, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "\n%s\n%s\n\n", sectionStyle.Render("══ "+title+" ══"), wordwrap.String(strings.TrimSpace(body), Width))
}

// Usage prints elapsed time and provider consumption, followed by a line per
// phase that made calls.
func (c *Console) Usage(elapsed time.Duration, u provider.Usage, phases map[string]provider.Usage) {
	rows := [][2]string{
		{"Elapsed", elapsed.Round(time.Second).String()},
		{"Calls", fmt.Sprintf("%d (%d errors)", u.Calls, u.Errors)},
		{"Input tokens", fmt.Sprintf("%d", u.InputTokens)},
		{"Output tokens", fmt.Sprintf("%d", u.OutputTokens)},
	}
	if u.CacheReadTokens > 0 || u.CacheWriteTokens > 0 {
		rows = append(rows, [2]string{"Cache read/write", fmt.Sprintf("%d / %d", u.CacheReadTokens, u.CacheWriteTokens)})
	}
	for _, phase := range provider.PhaseOrder {
		p, ok := phases[phase]
		if !ok || p.Calls+p.Errors == 0 {
			continue
		}
		rows = append(rows, [2]string{"  " + phase, fmt.Sprintf("%d calls, %d in / %d out", p.Calls, p.InputTokens, p.OutputTokens)})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range rows {
		fmt.Fprintf(c.w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-17s", r[0]+":")), r[1])
	}
}
