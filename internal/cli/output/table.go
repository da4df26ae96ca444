package output

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// TableFormatter formats output as a human-readable table.
type TableFormatter struct {
	NoColor   bool // Disable ANSI colors
	Unicode   bool // Use Unicode box-drawing characters
	Condensed bool // Simplified output for non-TTY
}

// Format renders data with fmt's %v verb. Generic data is not laid out as a
// table; use FormatTable for headers and rows.
func (f *TableFormatter) Format(data interface{}) (string, error) {
	return fmt.Sprintf("%v", data), nil
}

// FormatError renders an error in human-readable format.
func (f *TableFormatter) FormatError(err StructuredError) (string, error) {
	var buf bytes.Buffer

	// Use simple format for non-TTY or condensed mode
	if f.Condensed || !f.isTTY() {
		buf.WriteString(fmt.Sprintf("Error: %s\n", err.Message))
		if err.Guidance != "" {
			buf.WriteString(fmt.Sprintf("  Guidance: %s\n", err.Guidance))
		}
		if err.RecoveryCommand != "" {
			buf.WriteString(fmt.Sprintf("  Try: %s\n", err.RecoveryCommand))
		}
		return buf.String(), nil
	}

	// Rich format with unicode
	buf.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	buf.WriteString(fmt.Sprintf("❌ Error [%s]\n", err.Code))
	buf.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	buf.WriteString(fmt.Sprintf("\n%s\n", err.Message))

	if err.Guidance != "" {
		buf.WriteString(fmt.Sprintf("\n💡 %s\n", err.Guidance))
	}

	if err.RecoveryCommand != "" {
		buf.WriteString(fmt.Sprintf("\n🔧 Try: %s\n", err.RecoveryCommand))
	}

	buf.WriteString("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	return buf.String(), nil
}

// FormatTable renders tabular data with headers and alignment via go-pretty.
func (f *TableFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "No results found\n", nil
	}

	t := table.NewWriter()
	if f.Unicode && f.isTTY() {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleDefault)
	}
	t.Style().Options.DrawBorder = f.Unicode && f.isTTY()

	headerRow := make(table.Row, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	return t.Render() + "\n", nil
}

// isTTY checks if stdout is a terminal.
func (f *TableFormatter) isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
