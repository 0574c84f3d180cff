package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	recordStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
	}

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	gapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// rowWidth picks how many bytes fit on one line of a terminal of the given
// width. A row of n bytes takes 10 + 4n + 2 columns.
func rowWidth(termWidth int) int {
	if termWidth > 0 && termWidth < 76 {
		return 8
	}
	return 16
}

// hexDump renders data with the bytes of each entry colored. Bytes of the
// selected entry are highlighted; bytes no entry covers are dimmed.
func hexDump(data []byte, entries []entry, selected, perRow int) string {
	owner := make([]int, len(data))
	for i := range owner {
		owner[i] = -1
	}
	for i, e := range entries {
		for off := e.record.Offset; off < e.record.End() && off < uintptr(len(data)); off++ {
			owner[off] = i
		}
	}

	style := func(i int) lipgloss.Style {
		switch {
		case owner[i] < 0:
			return gapStyle
		case owner[i] == selected:
			return selectedStyle
		default:
			return recordStyles[owner[i]%len(recordStyles)]
		}
	}

	var b strings.Builder
	for row := 0; row < len(data); row += perRow {
		b.WriteString(offsetStyle.Render(fmt.Sprintf("%08x", row)))
		b.WriteString("  ")
		end := min(row+perRow, len(data))
		for i := row; i < row+perRow; i++ {
			if i >= end {
				b.WriteString("   ")
				continue
			}
			b.WriteString(style(i).Render(fmt.Sprintf("%02x", data[i])))
			b.WriteString(" ")
		}
		b.WriteString(" ")
		for i := row; i < end; i++ {
			c := data[i]
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			b.WriteString(style(i).Render(string(rune(c))))
		}
		b.WriteString("\n")
	}
	return b.String()
}
