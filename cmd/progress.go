package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	colorize "github.com/fatih/color"
	"golang.org/x/term"

	"github.com/arcanaland/ttsdeck/internal/control"
)

const refreshInterval = 100 * time.Millisecond

// progressDisplay polls the worker's control block and draws a one line
// progress bar. Notices raised by the worker are printed above the bar.
type progressDisplay struct {
	out      io.Writer
	ctl      *control.Control
	terminal bool
	width    func() int
	drawn    bool
}

func newProgressDisplay(ctl *control.Control) *progressDisplay {
	return &progressDisplay{
		out:      os.Stderr,
		ctl:      ctl,
		terminal: term.IsTerminal(int(os.Stderr.Fd())),
		width:    terminalWidth,
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// run redraws until done is closed, then shows the remaining notices.
func (d *progressDisplay) run(done <-chan struct{}) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			d.flush()
			d.clear()
			return
		case <-ticker.C:
			d.flush()
			d.draw()
		}
	}
}

func (d *progressDisplay) flush() {
	notices := d.ctl.Drain()
	if len(notices) == 0 {
		return
	}
	d.clear()
	for _, n := range notices {
		fmt.Fprintln(d.out, colorize.YellowString("warning: ")+n.String())
	}
}

func (d *progressDisplay) clear() {
	if d.terminal && d.drawn {
		fmt.Fprint(d.out, "\r\x1b[2K")
		d.drawn = false
	}
}

func (d *progressDisplay) draw() {
	if !d.terminal {
		return
	}
	current, maximum := d.ctl.Progress()
	status := d.ctl.Status()
	if d.ctl.Cancelled() {
		status = "Cancelling"
	}
	fmt.Fprint(d.out, "\r\x1b[2K"+progressLine(status, current, maximum, d.width()))
	d.drawn = true
}

// progressLine lays out status, bar and counter on width columns. The status
// takes at most a third of the line, the bar gets the rest.
func progressLine(status string, current, maximum, width int) string {
	counter := fmt.Sprintf(" %d/%d ", current, maximum)

	runes := []rune(status)
	statusWidth := min(len(runes), width/3)
	if len(runes) > statusWidth {
		status = string(runes[:max(statusWidth-1, 0)]) + "…"
	}
	barWidth := width - statusWidth - len(counter) - 4
	if barWidth < 10 {
		return status + counter
	}

	filled := 0
	if maximum > 0 {
		filled = max(0, min(barWidth*current/maximum, barWidth))
	}
	bar := colorize.CyanString(strings.Repeat("█", filled)) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s [%s]%s", status, bar, counter)
}
