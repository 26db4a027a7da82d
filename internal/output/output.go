// Package output renders command results as text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	okLabel    = color.New(color.FgGreen)
	errorLabel = color.New(color.FgRed)
	skipLabel  = color.New(color.FgYellow)
	keyLabel   = color.New(color.FgCyan)
)

// Table is a value that knows how to render itself as rows in text mode.
type Table interface {
	Header() []string
	Rows() [][]string
}

// Printer writes results in one format.
type Printer struct {
	w      io.Writer
	format string
}

// New returns a printer for format ("text", "json" or "yaml").
func New(w io.Writer, format string) *Printer {
	return &Printer{w: w, format: format}
}

// Print renders v. In text mode a [Table] is printed as aligned columns
// and anything else as indented key/value lines.
func (p *Printer) Print(v any) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return p.printYAML(v)
	default:
		if t, ok := v.(Table); ok {
			return p.printTable(t)
		}
		return p.printText(v)
	}
}

// printYAML goes through JSON so that json tags and custom marshalers
// decide the field names.
func (p *Printer) printYAML(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	return enc.Close()
}

func (p *Printer) printTable(t Table) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header(), "\t"))
	for _, row := range t.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func (p *Printer) printText(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	p.writeValue(generic, 0)
	return nil
}

func (p *Printer) writeValue(v any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch child := val[k].(type) {
			case map[string]any, []any:
				fmt.Fprintf(p.w, "%s%s:\n", indent, keyLabel.Sprint(k))
				p.writeValue(child, depth+1)
			default:
				fmt.Fprintf(p.w, "%s%s: %s\n", indent, keyLabel.Sprint(k), scalar(child))
			}
		}
	case []any:
		for i, item := range val {
			switch item.(type) {
			case map[string]any, []any:
				fmt.Fprintf(p.w, "%s- [%d]\n", indent, i)
				p.writeValue(item, depth+1)
			default:
				fmt.Fprintf(p.w, "%s- %s\n", indent, scalar(item))
			}
		}
	default:
		fmt.Fprintf(p.w, "%s%s\n", indent, scalar(val))
	}
}

func scalar(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

// OK prints a green status line.
func OK(w io.Writer, format string, args ...any) {
	okLabel.Fprint(w, "OK    ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Skip prints a yellow status line.
func Skip(w io.Writer, format string, args ...any) {
	skipLabel.Fprint(w, "SKIP  ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Fail prints a red status line.
func Fail(w io.Writer, format string, args ...any) {
	errorLabel.Fprint(w, "FAIL  ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Error prints an error the way the csda command reports it.
func Error(w io.Writer, err error) {
	errorLabel.Fprintf(w, "Error: %v\n", err)
}
