package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/patriline/pkg/tables"
)

// Color palette.
var (
	colorCyan  = lipgloss.Color("36")  // teal - primary
	colorGreen = lipgloss.Color("35")  // green - success
	colorRed   = lipgloss.Color("167") // soft red - errors
	colorGray  = lipgloss.Color("245") // gray - secondary text
	colorDim   = lipgloss.Color("240") // dim gray - muted text
)

// Styles.
var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

// Icons.
const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconInfo    = "›"
)

// printSuccess prints a success line to stderr.
func printSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", StyleSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

// printError prints an error line to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconError.Render(iconError), fmt.Sprintf(format, args...))
}

// printDetail prints a muted detail line to stderr.
func printDetail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconInfo.Render(iconInfo), StyleDim.Render(fmt.Sprintf(format, args...)))
}

// formatTable renders an integer table with its column names as a styled
// terminal table. Missing cells render as "-".
func formatTable(tab *tables.Table) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(tab.ColNames()...)

	for i := 0; i < tab.Rows(); i++ {
		row := make([]string, tab.Cols())
		for j := 0; j < tab.Cols(); j++ {
			if v := tab.At(i, j); tables.IsNA(v) {
				row[j] = "-"
			} else {
				row[j] = fmt.Sprintf("%d", v)
			}
		}
		t.Row(row...)
	}
	return t.Render()
}
