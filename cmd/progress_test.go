package cmd

import (
	"bytes"
	"strings"
	"testing"

	colorize "github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/ttsdeck/internal/control"
)

func plainColors(t *testing.T) {
	t.Helper()
	prev := colorize.NoColor
	colorize.NoColor = true
	t.Cleanup(func() { colorize.NoColor = prev })
}

func TestProgressLine(t *testing.T) {
	plainColors(t)

	line := progressLine("Processing card a", 5, 10, 80)
	require.Equal(t, "Processing card a ["+strings.Repeat("█", 26)+strings.Repeat("░", 27)+"] 5/10 ", line)

	// the status gets at most a third of the width
	line = progressLine(strings.Repeat("x", 40), 1, 2, 60)
	require.True(t, strings.HasPrefix(line, strings.Repeat("x", 19)+"… ["), line)
	require.Equal(t, 31, strings.Count(line, "█")+strings.Count(line, "░"))

	// no room for a bar
	require.Equal(t, "Export 1/2 ", progressLine("Export", 1, 2, 20))

	line = progressLine("Preparing", 0, 0, 80)
	require.Zero(t, strings.Count(line, "█"))
	require.Contains(t, line, " 0/0 ")

	// progress past the maximum stays inside the bar
	line = progressLine("Done", 12, 10, 80)
	require.Zero(t, strings.Count(line, "░"))
}

func TestProgressDisplay(t *testing.T) {
	plainColors(t)

	ctl := control.New()
	ctl.SetMaximum(4)
	ctl.SetCurrent(2)
	ctl.SetStatus("Rendering")

	var out bytes.Buffer
	d := &progressDisplay{out: &out, ctl: ctl, terminal: true, width: func() int { return 40 }}

	d.draw()
	require.Equal(t, "\r\x1b[2K"+progressLine("Rendering", 2, 4, 40), out.String())

	out.Reset()
	ctl.Notify(control.Notice{Card: "Guard Dog", Message: "missing back"})
	d.flush()
	require.Equal(t, "\r\x1b[2Kwarning: Guard Dog: missing back\n", out.String())

	// nothing drawn since the notices, nothing to clear
	out.Reset()
	d.clear()
	require.Empty(t, out.String())

	ctl.Cancel()
	d.draw()
	require.Contains(t, out.String(), "Cancelling")
}

func TestProgressDisplayNotTerminal(t *testing.T) {
	plainColors(t)

	ctl := control.New()
	ctl.SetStatus("Rendering")
	ctl.Notify(control.Notice{Message: "unable to read copies list"})

	var out bytes.Buffer
	d := &progressDisplay{out: &out, ctl: ctl, width: func() int { return 80 }}

	done := make(chan struct{})
	close(done)
	d.run(done)
	require.Equal(t, "warning: unable to read copies list\n", out.String())
}
