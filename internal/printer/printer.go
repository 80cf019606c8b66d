// Package printer writes user facing command output. Diagnostics go through
// zerolog; everything a user is meant to read goes through a Printer.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Printer renders messages to a writer. Colours are only emitted when the
// writer is a terminal that supports them.
type Printer struct {
	w io.Writer

	successStyle lipgloss.Style
	infoStyle    lipgloss.Style
	warnStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	headerStyle  lipgloss.Style
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:            w,
		successStyle: r.NewStyle().Foreground(lipgloss.Color("2")),
		infoStyle:    r.NewStyle().Foreground(lipgloss.Color("6")),
		warnStyle:    r.NewStyle().Foreground(lipgloss.Color("3")),
		errorStyle:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		headerStyle:  r.NewStyle().Bold(true),
	}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the Printer stored in ctx, or one writing to stdout.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok && p != nil {
		return p
	}
	return New(os.Stdout)
}

func (p *Printer) line(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

// Printf writes an unstyled line.
func (p *Printer) Printf(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

// Headerf writes a bold line.
func (p *Printer) Headerf(format string, args ...any) {
	p.line(p.headerStyle.Render(fmt.Sprintf(format, args...)))
}

// Successf writes a line in the success colour.
func (p *Printer) Successf(format string, args ...any) {
	p.line(p.successStyle.Render(fmt.Sprintf(format, args...)))
}

// Infof writes a line in the informational colour.
func (p *Printer) Infof(format string, args ...any) {
	p.line(p.infoStyle.Render(fmt.Sprintf(format, args...)))
}

// Warnf writes a line in the warning colour.
func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.warnStyle.Render(fmt.Sprintf(format, args...)))
}

// Errorf writes a line prefixed with "Error: ".
func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.errorStyle.Render("Error:") + " " + fmt.Sprintf(format, args...))
}

// Liner is implemented by values with a plain text rendering.
type Liner interface {
	Lines() []string
}

// Render writes v in the given output format: "plain" (the default), "json"
// or "yaml".
func (p *Printer) Render(format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "plain":
		if l, ok := v.(Liner); ok {
			for _, s := range l.Lines() {
				p.line(s)
			}
			return nil
		}
		p.line(fmt.Sprint(v))
		return nil
	case "json":
		data, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		p.line(string(data))
		return nil
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err := io.WriteString(p.w, buf.String())
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
