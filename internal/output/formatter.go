package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	toon "github.com/toon-format/toon-go"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// ValidFormat reports whether s names a supported format.
func ValidFormat(s string) bool {
	switch strings.ToLower(s) {
	case "", "text", "json", "markdown", "md", "toon":
		return true
	}
	return false
}

// Renderable defines data that can render itself in multiple formats.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the underlying data for JSON and TOON serialization.
	RenderData() any
}

// Formatter handles output formatting.
type Formatter struct {
	format  Format
	writer  io.Writer
	file    *os.File
	colored bool
}

// NewFormatter creates a formatter writing to stdout, or to the file at
// output when it is set. File output is never colored.
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	if output == "" {
		return NewFormatterTo(os.Stdout, format, colored), nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	return &Formatter{format: format, writer: f, file: f}, nil
}

// NewFormatterTo creates a formatter that writes to w.
func NewFormatterTo(w io.Writer, format Format, colored bool) *Formatter {
	return &Formatter{format: format, writer: w, colored: colored}
}

// Close closes the formatter's writer if it's a file.
func (f *Formatter) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Writer returns the underlying writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// Format returns the configured format.
func (f *Formatter) Format() Format {
	return f.format
}

// Colored returns whether colored output is enabled.
func (f *Formatter) Colored() bool {
	return f.colored
}

// Output writes data in the configured format. Values that are not
// Renderable are serialized; text output falls back to JSON for them.
func (f *Formatter) Output(data any) error {
	r, ok := data.(Renderable)
	switch f.format {
	case FormatJSON:
		if ok {
			data = r.RenderData()
		}
		return f.outputJSON(data)
	case FormatTOON:
		if ok {
			data = r.RenderData()
		}
		return f.outputTOON(data)
	case FormatMarkdown:
		if ok {
			return r.RenderMarkdown(f.writer)
		}
		fmt.Fprintln(f.writer, "```json")
		if err := f.outputJSON(data); err != nil {
			return err
		}
		fmt.Fprintln(f.writer, "```")
		return nil
	default:
		if ok {
			return r.RenderText(f.writer, f.colored)
		}
		return f.outputJSON(data)
	}
}

func (f *Formatter) outputJSON(data any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) outputTOON(data any) error {
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.writer, string(out))
	return err
}

// writeHeading prints title underlined with rule.
func writeHeading(w io.Writer, title, rule string, colored bool, attrs ...color.Attribute) {
	if title == "" {
		return
	}
	if colored {
		color.New(attrs...).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat(rule, len(title)))
}

// Table is a Renderable table with headers, rows, and optional footer.
type Table struct {
	Title   string     `json:"-"`
	Headers []string   `json:"-"`
	Rows    [][]string `json:"-"`
	Footer  []string   `json:"-"`
	Data    any        `json:"data,omitempty"`
}

// NewTable creates a table that wraps structured data for serialization.
func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{Title: title, Headers: headers, Rows: rows, Footer: footer, Data: data}
}

// RenderData returns the wrapped data, or the rows keyed by header.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	result := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if j < len(row) {
				m[h] = row[j]
			}
		}
		result[i] = m
	}
	return result
}

func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		writeHeading(w, t.Title, "=", colored, color.Bold)
		fmt.Fprintln(w)
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
			Footer: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
			},
		}),
	)

	table.Header(t.Headers)
	for _, row := range t.Rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if len(t.Footer) > 0 {
		footer := make([]any, len(t.Footer))
		for i, cell := range t.Footer {
			footer[i] = cell
		}
		table.Footer(footer...)
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}

	row := func(cells []string) {
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	row(t.Headers)
	seps := make([]string, len(t.Headers))
	for i := range seps {
		seps[i] = "---"
	}
	row(seps)
	for _, r := range t.Rows {
		row(r)
	}
	if len(t.Footer) > 0 {
		row(t.Footer)
	}
	fmt.Fprintln(w)
	return nil
}

// Listing is a Renderable block of preformatted lines under a title, such as
// a rendered scene hierarchy.
type Listing struct {
	Title string   `json:"title,omitempty"`
	Lines []string `json:"lines"`
	Data  any      `json:"data,omitempty"`
}

// RenderData returns the wrapped data, or the listing itself.
func (l *Listing) RenderData() any {
	if l.Data != nil {
		return l.Data
	}
	return l
}

func (l *Listing) RenderText(w io.Writer, colored bool) error {
	writeHeading(w, l.Title, "-", colored, color.Bold)
	for _, line := range l.Lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

func (l *Listing) RenderMarkdown(w io.Writer) error {
	if l.Title != "" {
		fmt.Fprintf(w, "### %s\n\n", l.Title)
	}
	fmt.Fprintln(w, "```")
	for _, line := range l.Lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "```")
	fmt.Fprintln(w)
	return nil
}

// Report is a compound Renderable containing listings and tables.
type Report struct {
	Title    string       `json:"title,omitempty"`
	Sections []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

// RenderData returns the wrapped data, or the data of every section.
func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	parts := make([]any, len(r.Sections))
	for i, s := range r.Sections {
		parts[i] = s.RenderData()
	}
	return map[string]any{
		"title":    r.Title,
		"sections": parts,
	}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	if r.Title != "" {
		writeHeading(w, r.Title, "=", colored, color.Bold, color.FgCyan)
		fmt.Fprintln(w)
	}
	for i, s := range r.Sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := s.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", r.Title)
	}
	for _, s := range r.Sections {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// message writes one line, colored when enabled or prefixed otherwise.
func (f *Formatter) message(c color.Attribute, prefix, format string, args ...any) {
	if f.colored {
		color.New(c).Fprintf(f.writer, format+"\n", args...)
		return
	}
	fmt.Fprintf(f.writer, prefix+format+"\n", args...)
}

// Success prints a completion message.
func (f *Formatter) Success(format string, args ...any) {
	f.message(color.FgGreen, "", format, args...)
}

// Warning prints a non-fatal problem.
func (f *Formatter) Warning(format string, args ...any) {
	f.message(color.FgYellow, "WARNING: ", format, args...)
}

// Error prints a fatal problem.
func (f *Formatter) Error(format string, args ...any) {
	f.message(color.FgRed, "ERROR: ", format, args...)
}

// Info prints a progress or status message.
func (f *Formatter) Info(format string, args ...any) {
	f.message(color.FgCyan, "", format, args...)
}
