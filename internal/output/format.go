// Package output renders tasks for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/tasktracker/internal/task"
)

// NoTasks is printed instead of an empty list.
const NoTasks = "No tasks found."

// DisplayLayout is the local-time layout used in list lines.
const DisplayLayout = "2006-01-02 15:04:05"

// Printer writes tasks as text lines or as JSON.
type Printer struct {
	w        io.Writer
	color    bool
	location *time.Location
}

type Option func(*Printer)

func WithColor(enabled bool) Option {
	return func(p *Printer) {
		p.color = enabled
	}
}

// WithLocation sets the zone timestamps are displayed in. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Printer) {
		p.location = loc
	}
}

func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, location: time.Local}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func statusColor(s task.Status) color.Attribute {
	switch s {
	case task.StatusDone:
		return color.FgGreen
	case task.StatusInProgress:
		return color.FgCyan
	default:
		return color.FgYellow
	}
}

// Task writes one line:
// "{ID}: {DESCRIPTION} - {STATUS} (Created: {CREATED}, Updated: {UPDATED})".
func (p *Printer) Task(t *task.Task) {
	fmt.Fprintf(p.w, "%s: %s - %s (Created: %s, Updated: %s)\n",
		p.paint(color.Bold).Sprint(t.ID),
		normalizeDescription(t.Description),
		p.paint(statusColor(t.Status)).Sprint(t.Status),
		p.timestamp(t.CreatedAt),
		p.timestamp(t.UpdatedAt),
	)
}

// List writes every task of seq, or NoTasks when count is zero.
func (p *Printer) List(seq iter.Seq[*task.Task], count int) {
	if count == 0 {
		fmt.Fprintln(p.w, NoTasks)
		return
	}
	for t := range seq {
		p.Task(t)
	}
}

// JSON writes the tasks as an indented JSON array, using the task file
// field names.
func (p *Printer) JSON(seq iter.Seq[*task.Task]) error {
	tasks := []*task.Task{}
	for t := range seq {
		tasks = append(tasks, t)
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return nil
}

// Line writes a confirmation message.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Error writes an error message.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.w, p.paint(color.FgRed).Sprint("Error: ")+msg)
}

func (p *Printer) timestamp(ts task.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Time().In(p.location).Format(DisplayLayout)
}

// normalizeDescription keeps a task on a single line.
func normalizeDescription(d string) string {
	d = strings.ReplaceAll(d, "\r", " ")
	return strings.ReplaceAll(d, "\n", " ")
}
