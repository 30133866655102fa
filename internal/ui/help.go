package ui

import (
	"strings"

	"atmfinder/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders the context-sensitive help footer.
func RenderHelp(pane model.Pane, width int) string {
	if pane == model.PaneMap {
		return renderMapHelp(width)
	}
	return renderListHelp(width)
}

func renderListHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("enter", "focus"),
		helpKey("esc", "collapse"),
		helpKey("tab", "map"),
		helpKey("</>", "resize"),
		helpKey("?", "help"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func renderMapHelp(width int) string {
	keys := []string{
		helpKey("hjkl", "pan"),
		helpKey("+/-", "zoom"),
		helpKey("[/]", "marker"),
		helpKey("enter", "open marker"),
		helpKey("o", "origin"),
		helpKey("tab", "list"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Everywhere"),
		helpSection([]helpItem{
			{"tab", "Switch between list and map"},
			{"< / >", "Narrow / widen the list"},
			{"?", "Toggle help"},
			{"q / ctrl+c", "Quit"},
		}),
		titleSection("List"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"gg", "Jump to top"},
			{"G", "Jump to bottom"},
			{"ctrl+d / ctrl+u", "Half page down / up"},
			{"enter", "Expand the ATM and centre the map on it"},
			{"esc", "Collapse the expanded ATM"},
		}),
		titleSection("Map"),
		helpSection([]helpItem{
			{"h j k l / arrows", "Pan"},
			{"+ / -", "Zoom in / out"},
			{"] / [", "Select next / previous marker"},
			{"enter", "Open the selected marker in the list"},
			{"o", "Pan back to the search origin"},
		}),
		titleSection("Loading"),
		helpSection([]helpItem{
			{"", "More ATMs load when the map settles outside every marker shown so far"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		if item.key == "" {
			lines = append(lines, "  "+HelpDescStyle.Render(item.desc))
			continue
		}
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
