package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
	renderer *RelationRenderer
}

// NewOutputFormatter creates a formatter, enabling color when w is a
// terminal.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stderr
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f) && !color.NoColor
	}

	return NewOutputFormatterWithColor(w, useColor)
}

// NewOutputFormatterWithColor creates a formatter with color forced on or off
func NewOutputFormatterWithColor(w io.Writer, useColor bool) *OutputFormatter {
	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
		renderer: NewRelationRenderer(useColor),
	}
}

// Handle implements the Handler interface - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case MaterializeBegin:
		return fmt.Sprintf("%s %s Materialize (%v) %s and %s over %s",
			latency,
			f.colorize("===", color.FgYellow),
			event.Data["mode"],
			f.colorizeCount("rules", intData(event, "program.rules")),
			f.colorizeCount("facts", intData(event, "program.facts")),
			f.colorizeCount("rows", intData(event, "store.size")))

	case MaterializeComplete:
		if success, ok := event.Data["success"].(bool); ok && !success {
			return fmt.Sprintf("%s %s Materialize failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				event.Data["error"])
		}
		return fmt.Sprintf("%s %s Fixpoint after %s: %s from %s, store has %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("rounds", intData(event, "rounds")),
			f.colorizeCount("derived", intData(event, "derived")),
			f.colorizeCount("candidates", intData(event, "candidates")),
			f.colorizeCount("rows", intData(event, "store.size")))

	case RoundBegin:
		return fmt.Sprintf("%s %s Round %d with Δ %s",
			latency,
			f.colorize("---", color.FgYellow),
			intData(event, "round"),
			f.colorizeCount("rows", intData(event, "delta.size")))

	case RoundComplete:
		return fmt.Sprintf("%s Round %d → %s of %s",
			latency,
			intData(event, "round"),
			f.colorizeCount("derived", intData(event, "derived")),
			f.colorizeCount("candidates", intData(event, "candidates")))

	case RuleFired:
		rule, _ := event.Data["rule"].(string)
		arrow := " → "
		if f.useColor {
			arrow = color.YellowString(arrow)
		}
		return fmt.Sprintf("%s %s%s%s",
			latency,
			f.renderer.RenderRule(rule, intData(event, "delta.position")),
			arrow,
			f.colorizeCount("candidates", intData(event, "candidates")))

	case InsertApplied:
		status := f.colorize("+", color.FgGreen)
		if added, ok := event.Data["added"].(bool); ok && !added {
			status = f.colorize("=", color.FgCyan)
		}
		return fmt.Sprintf("%s %s Insert (%s %s) via %v, %s",
			latency,
			status,
			event.Data["relation"],
			event.Data["row"],
			event.Data["update"],
			f.colorizeCount("derived", intData(event, "derived")))

	case ErrorEvaluation:
		return fmt.Sprintf("%s %s %v", latency, f.colorize("✗", color.FgRed), event.Data["error"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func intData(event Event, key string) int {
	if v, ok := event.Data[key].(int); ok {
		return v
	}
	return 0
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "rules", "rounds":
		return color.CyanString(text)
	case "rows", "facts":
		return color.MagentaString(text)
	case "derived":
		return color.GreenString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stderr.
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
