package ui

import (
	"fmt"
	"strings"

	"atmfinder/internal/locator"
	"atmfinder/internal/util"

	"github.com/charmbracelet/lipgloss"
)

// renderAtmList renders the rows that fit in height, starting at the list
// offset, and tells the sync how many fitted.
func renderAtmList(s *locator.ListMapSync, width, height int, active bool, emptyMsg string) string {
	if s.Len() == 0 {
		return EmptyStateStyle.
			Width(width).
			Height(height).
			Render(emptyMsg)
	}

	keepExpandedCursorVisible(s, width, height, active)

	rows := s.Rows()
	var blocks []string
	used, fitted := 0, 0
	for i := s.Offset(); i < len(rows); i++ {
		block := renderAtmRow(rows[i], width, active && i == s.Cursor())
		h := lipgloss.Height(block)
		if used+h > height && fitted > 0 {
			break
		}
		blocks = append(blocks, block)
		used += h
		fitted++
	}
	s.SetVisibleRows(fitted)

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		MaxHeight(height).
		Render(strings.Join(blocks, "\n"))
}

// keepExpandedCursorVisible advances the offset until the expanded row under
// the cursor fits in height lines. Row counts from the last render assume
// collapsed rows, so a freshly expanded row can overflow the pane.
func keepExpandedCursorVisible(s *locator.ListMapSync, width, height int, active bool) {
	rows := s.Rows()
	cur, start := s.Cursor(), s.Offset()
	if cur < start || cur >= len(rows) || !rows[cur].Expanded {
		return
	}

	heights := make([]int, cur-start+1)
	total := 0
	for i := start; i <= cur; i++ {
		heights[i-start] = lipgloss.Height(renderAtmRow(rows[i], width, active && i == cur))
		total += heights[i-start]
	}

	off := start
	for total > height && off < cur {
		total -= heights[off-start]
		off++
	}
	if off != start {
		s.SetOffset(off)
	}
}

func renderAtmRow(row locator.Row, width int, selected bool) string {
	v := locator.BuildRowView(row.Record)

	gutter := "  "
	if row.Expanded {
		gutter = ExpandedGutterStyle.Render("▸ ")
	}

	nameWidth := max(4, width-lipgloss.Width(v.Distance)-3)
	name := util.TruncateString(v.Name, nameWidth)
	pad := max(1, width-2-lipgloss.Width(name)-lipgloss.Width(v.Distance))

	titleStyle := NormalRowStyle.Bold(row.Expanded)
	if selected {
		titleStyle = SelectedRowStyle
	}
	title := titleStyle.Render(name + strings.Repeat(" ", pad) + v.Distance)
	if !selected {
		title = titleStyle.Render(name) + strings.Repeat(" ", pad) + DistanceStyle.Render(v.Distance)
	}

	lines := []string{
		gutter + title,
		"  " + DetailStyle.Render(util.TruncateString(v.Line1, width-2)),
	}
	if !row.Expanded {
		return strings.Join(lines, "\n")
	}

	if v.Line2Visible {
		lines = append(lines, "  "+DetailStyle.Render(util.TruncateString(v.Line2, width-2)))
	}
	lines = append(lines, "  "+DetailStyle.Render(util.TruncateString(v.CityLine, width-2)))

	lines = append(lines, "  "+LabelStyle.Render("Services"))
	for _, s := range v.Services {
		lines = append(lines, "    "+NormalRowStyle.Render(util.TruncateString(s, width-4)))
	}

	r := row.Record
	if r.Availability != "" || r.AccessFees != "" {
		extra := fmt.Sprintf("availability %s  ·  fees %s", orDash(r.Availability), orDash(r.AccessFees))
		lines = append(lines, "  "+DetailStyle.Render(util.TruncateString(strings.ToLower(extra), width-2)))
	}

	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
