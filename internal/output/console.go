package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Console writes results to out and everything else to errOut. Styling is dropped
// automatically when the writer is not a terminal.
type Console struct {
	out    io.Writer
	errOut io.Writer

	info    lipgloss.Style
	fyi     lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	success lipgloss.Style
	header  lipgloss.Style
}

// NewConsole builds a console sink over the given streams.
func NewConsole(out, errOut io.Writer) *Console {
	r := lipgloss.NewRenderer(errOut)
	outR := lipgloss.NewRenderer(out)
	return &Console{
		out:     out,
		errOut:  errOut,
		info:    r.NewStyle(),
		fyi:     r.NewStyle().Foreground(lipgloss.Color("4")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		err:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		success: outR.NewStyle().Foreground(lipgloss.Color("2")),
		header:  outR.NewStyle().Bold(true),
	}
}

func (c *Console) Info(format string, args ...any) {
	c.line(c.errOut, c.info, "", format, args...)
}

func (c *Console) FYI(format string, args ...any) {
	c.line(c.errOut, c.fyi, "", format, args...)
}

func (c *Console) Warn(format string, args ...any) {
	c.line(c.errOut, c.warn, "Warning: ", format, args...)
}

func (c *Console) Error(format string, args ...any) {
	c.line(c.errOut, c.err, "Error: ", format, args...)
}

func (c *Console) Success(format string, args ...any) {
	c.line(c.out, c.success, "", format, args...)
}

// Table renders rows under headers on the result stream.
func (c *Console) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		c.Info("No results")
		return
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return c.header.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	fmt.Fprintln(c.out, strings.TrimRight(t.Render(), "\n"))
}

// Out is the result stream.
func (c *Console) Out() io.Writer { return c.out }

func (c *Console) line(w io.Writer, style lipgloss.Style, prefix, format string, args ...any) {
	fmt.Fprintln(w, style.Render(prefix+fmt.Sprintf(format, args...)))
}
