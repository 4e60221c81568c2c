// Package cli provides the command-line interface for the trading application.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Styles shared by every Output. fatih/color consults the global
// color.NoColor flag, which root.go sets from the [ui] config section
// before any command runs.
var (
	styleSuccess = color.New(color.FgGreen)
	styleFailure = color.New(color.FgRed)
	styleCaution = color.New(color.FgYellow)
	styleAccent  = color.New(color.FgCyan)
	styleHeading = color.New(color.Bold)
	styleMuted   = color.New(color.Faint)
)

// Output renders command results for a terminal or, with --json, as a
// machine-readable document on the same writer.
type Output struct {
	writer   io.Writer
	jsonMode bool
	styled   bool
}

// NewOutput builds the renderer for one command invocation. Styling is
// dropped when --json is set or stdout is not a terminal, so piped
// output stays free of escape sequences.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
		styled:   !jsonMode && isTerminal(),
	}
}

func isTerminal() bool {
	info, err := os.Stdout.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// IsJSON reports whether --json was requested.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON writes data as an indented JSON document.
func (o *Output) JSON(data interface{}) error {
	enc := json.NewEncoder(o.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Print writes formatted text without a trailing newline.
func (o *Output) Print(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Printf writes formatted text.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Println writes its arguments followed by a newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Success prints a green status line.
func (o *Output) Success(format string, args ...interface{}) {
	o.say(styleSuccess, format, args...)
}

// Error prints a red status line.
func (o *Output) Error(format string, args ...interface{}) {
	o.say(styleFailure, format, args...)
}

// Warning prints a yellow status line.
func (o *Output) Warning(format string, args ...interface{}) {
	o.say(styleCaution, format, args...)
}

// Info prints a cyan status line.
func (o *Output) Info(format string, args ...interface{}) {
	o.say(styleAccent, format, args...)
}

// Bold prints an emphasized line.
func (o *Output) Bold(format string, args ...interface{}) {
	o.say(styleHeading, format, args...)
}

// Dim prints a de-emphasized line.
func (o *Output) Dim(format string, args ...interface{}) {
	o.say(styleMuted, format, args...)
}

func (o *Output) say(style *color.Color, format string, args ...interface{}) {
	fmt.Fprintln(o.writer, o.paint(style, fmt.Sprintf(format, args...)))
}

// paint styles text for terminal display. Plain text comes back when
// the command runs with --json or without a terminal attached.
func (o *Output) paint(style *color.Color, text string) string {
	if !o.styled {
		return text
	}
	return style.Sprint(text)
}

// Green returns text styled for a favorable value.
func (o *Output) Green(text string) string {
	return o.paint(styleSuccess, text)
}

// Red returns text styled for an unfavorable value.
func (o *Output) Red(text string) string {
	return o.paint(styleFailure, text)
}

// Yellow returns text styled as a caution.
func (o *Output) Yellow(text string) string {
	return o.paint(styleCaution, text)
}

// Cyan returns accent-styled text.
func (o *Output) Cyan(text string) string {
	return o.paint(styleAccent, text)
}

// BoldText returns emphasized text.
func (o *Output) BoldText(text string) string {
	return o.paint(styleHeading, text)
}

// DimText returns de-emphasized text.
func (o *Output) DimText(text string) string {
	return o.paint(styleMuted, text)
}

// FormatPnL renders a signed dollar amount, green for gains and red
// for losses.
func (o *Output) FormatPnL(pnl float64) string {
	switch {
	case pnl > 0:
		return o.Green("+" + FormatUSD(pnl))
	case pnl < 0:
		return o.Red(FormatUSD(pnl))
	default:
		return FormatUSD(pnl)
	}
}

// MarketStatus renders a market trading status with its glyph.
func (o *Output) MarketStatus(status string) string {
	switch status {
	case "ACTIVE":
		return o.Green("● ACTIVE")
	case "CLOSED":
		return o.Red("● CLOSED")
	case "NOT_ACCEPTING":
		return o.Yellow("⚠ NOT ACCEPTING ORDERS")
	case "INACTIVE":
		return o.DimText("● INACTIVE")
	default:
		return status
	}
}

// SessionState colors a journaled session state.
func (o *Output) SessionState(state string) string {
	switch state {
	case "DONE":
		return o.Green(state)
	case "ABORTED":
		return o.Red(state)
	default:
		return o.Yellow(state)
	}
}

// ansiSequence matches the SGR escapes fatih/color emits.
var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visibleWidth is the printed width of text once styling is removed.
// Cells may carry multi-byte glyphs, so bytes are the wrong unit.
func visibleWidth(text string) int {
	return utf8.RuneCountInString(ansiSequence.ReplaceAllString(text, ""))
}

// pad right-fills text to the target printed width.
func pad(text string, width int) string {
	if gap := width - visibleWidth(text); gap > 0 {
		return text + strings.Repeat(" ", gap)
	}
	return text
}

// Table lays out rows in aligned columns with a bold header. Cells may
// contain styled text.
type Table struct {
	out     *Output
	headers []string
	rows    [][]string
}

// NewTable starts a table with the given column headers.
func NewTable(out *Output, headers ...string) *Table {
	return &Table{out: out, headers: headers}
}

// AddRow appends one row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render prints the header, a rule, and every row.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	widths := t.columnWidths()

	header := make([]string, len(t.headers))
	for i, h := range t.headers {
		header[i] = t.out.BoldText(pad(h, widths[i]))
	}
	t.out.Println(strings.Join(header, "  "))

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	t.out.Println(t.out.DimText(strings.Join(rule, "──")))

	for _, row := range t.rows {
		var cells []string
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			cells = append(cells, pad(cell, widths[i]))
		}
		t.out.Println(strings.Join(cells, "  "))
	}
}

func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visibleWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && visibleWidth(cell) > widths[i] {
				widths[i] = visibleWidth(cell)
			}
		}
	}
	return widths
}

// Box frames a title and content lines. The frame sizes itself to the
// widest printed line, so styled content is safe.
func (o *Output) Box(title string, content []string) {
	width := visibleWidth(title)
	for _, line := range content {
		if w := visibleWidth(line); w > width {
			width = w
		}
	}

	rule := strings.Repeat("─", width+2)
	o.Println(o.DimText("┌" + rule + "┐"))
	o.boxLine(o.BoldText(pad(title, width)))
	o.Println(o.DimText("├" + rule + "┤"))
	for _, line := range content {
		o.boxLine(pad(line, width))
	}
	o.Println(o.DimText("└" + rule + "┘"))
}

func (o *Output) boxLine(text string) {
	edge := o.DimText("│")
	o.Println(edge + " " + text + " " + edge)
}
