// Package report renders check results as text, a table, JSON or markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fixturelint/internal/analysis"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// CleanMessage is printed when no diagnostics were found.
const CleanMessage = "All types are correct!"

// Format selects the output renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatTable, FormatJSON, FormatMarkdown}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown format %q (expected one of %s)", s, strings.Join(names, ", "))
}

// Options configures a Reporter.
type Options struct {
	Format Format
	// Color enables ANSI styling and glamour rendering.
	Color bool
	// Width is the word wrap for markdown output; 0 means 80.
	Width int
}

// Reporter writes results to an io.Writer.
type Reporter struct {
	w      io.Writer
	opts   Options
	styles styles
}

// New creates a Reporter.
func New(w io.Writer, opts Options) *Reporter {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	return &Reporter{w: w, opts: opts, styles: newStyles()}
}

// Render writes results and summary in the configured format.
func (r *Reporter) Render(results []analysis.FileResult, summary analysis.Summary) error {
	switch r.opts.Format {
	case FormatText:
		return r.renderText(results, summary)
	case FormatTable:
		return r.renderTable(results, summary)
	case FormatJSON:
		return r.renderJSON(results)
	case FormatMarkdown:
		return r.renderMarkdown(results, summary)
	}
	return fmt.Errorf("unknown format %q", r.opts.Format)
}

type styles struct {
	path    lipgloss.Style
	code    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	header  lipgloss.Style
	border  lipgloss.Style
}

func newStyles() styles {
	return styles{
		path:    lipgloss.NewStyle().Bold(true),
		code:    lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7a89")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true),
		header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		border:  lipgloss.NewStyle().Foreground(lipgloss.Color("#2a3850")),
	}
}

func (r *Reporter) paint(style lipgloss.Style, s string) string {
	if !r.opts.Color {
		return s
	}
	return style.Render(s)
}

func (r *Reporter) renderText(results []analysis.FileResult, summary analysis.Summary) error {
	var b strings.Builder
	for _, res := range results {
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&b, "%s:%d: %s %s\n",
				r.paint(r.styles.path, res.Path), d.Line, r.paint(r.styles.code, string(d.Code)), d.Message())
		}
	}
	b.WriteString(r.summaryLine(summary))
	b.WriteString("\n")
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Reporter) summaryLine(s analysis.Summary) string {
	if s.Clean() {
		return r.paint(r.styles.success, CleanMessage)
	}
	line := fmt.Sprintf("Found %s in %d of %d %s",
		plural(s.Diagnostics, "problem"), s.FilesWithProblems, s.Files, pluralWord(s.Files, "file"))
	if s.Cached > 0 {
		line += r.paint(r.styles.muted, fmt.Sprintf(" (%d cached)", s.Cached))
	}
	return r.paint(r.styles.failure, line)
}

func (r *Reporter) renderTable(results []analysis.FileResult, summary analysis.Summary) error {
	var rows [][]string
	for _, res := range results {
		for _, d := range res.Diagnostics {
			rows = append(rows, []string{res.Path, strconv.Itoa(d.Line), string(d.Code), d.Subject(), d.Message()})
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.w, r.summaryLine(summary))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("File", "Line", "Code", "Function", "Problem").
		Rows(rows...)
	if r.opts.Color {
		t = t.BorderStyle(r.styles.border).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return r.styles.header
				}
				if col == 2 {
					return r.styles.code.Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})
	} else {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}

	_, err := fmt.Fprintf(r.w, "%s\n%s\n", t.String(), r.summaryLine(summary))
	return err
}

func (r *Reporter) renderJSON(results []analysis.FileResult) error {
	if results == nil {
		results = []analysis.FileResult{}
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func (r *Reporter) renderMarkdown(results []analysis.FileResult, summary analysis.Summary) error {
	md := Markdown(results, summary)
	if !r.opts.Color {
		_, err := io.WriteString(r.w, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.opts.Width),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(r.w, out)
	return err
}

// Markdown builds the markdown report: one section per file with problems.
func Markdown(results []analysis.FileResult, summary analysis.Summary) string {
	var b strings.Builder
	b.WriteString("# fixturelint report\n\n")
	if summary.Clean() {
		fmt.Fprintf(&b, "%s Checked %d %s.\n", CleanMessage, summary.Files, pluralWord(summary.Files, "file"))
		return b.String()
	}

	fmt.Fprintf(&b, "Found **%s** in %d of %d %s.\n",
		plural(summary.Diagnostics, "problem"), summary.FilesWithProblems, summary.Files, pluralWord(summary.Files, "file"))

	for _, res := range results {
		if len(res.Diagnostics) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## `%s`\n\n", res.Path)
		b.WriteString("| Line | Code | Function | Problem |\n")
		b.WriteString("|-----:|------|----------|---------|\n")
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&b, "| %d | %s | `%s` | %s |\n",
				d.Line, d.Code, escapeCell(d.Subject()), escapeCell(d.Message()))
		}
	}
	return b.String()
}

// escapeCell keeps union annotations such as "int | None" from splitting cells.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func plural(n int, word string) string {
	return fmt.Sprintf("%d %s", n, pluralWord(n, word))
}

func pluralWord(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
