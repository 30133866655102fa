package mapview

import (
	"fmt"
	"math"
	"strings"
	"time"

	"atmfinder/internal/logging"
	"atmfinder/internal/model"
	"atmfinder/internal/util"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb/project"
	"github.com/rs/zerolog"
)

const (
	// DefaultIdleDelay is how long the map must stay still before it counts as settled.
	DefaultIdleDelay = 350 * time.Millisecond

	MinZoom     = 3
	MaxZoom     = 19
	DefaultZoom = 14

	// Web Mercator metres per pixel at zoom 0.
	metresPerPixelZ0 = 156543.03392
	cellWidthPx      = 8
	cellHeightPx     = 16
)

var (
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	focusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1D221E")).Background(lipgloss.Color("#8FA082"))
	originStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	centerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D6E0D3"))
	gridStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b463e"))
	captionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7E8C80"))
)

// Direction is a pan direction.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

type marker struct {
	id    string
	point model.Location
}

// settleMsg fires after a movement; only the latest sequence number counts.
type settleMsg struct{ seq int }

// Model is a terminal map: a character grid centred on a location, with an
// origin marker and one marker per ATM.
type Model struct {
	center model.Location
	zoom   int
	width  int
	height int
	ready  bool

	origin      *model.Location
	markers     []marker
	byID        map[string]int
	bounds      Bounds
	highlighted string
	selected    int

	listening bool
	settleSeq int
	idleDelay time.Duration

	glyphs Glyphs
	logger zerolog.Logger
}

// New creates a map centred on center.
func New(center model.Location, zoom int) *Model {
	return &Model{
		center:    center,
		zoom:      clampZoom(zoom),
		byID:      make(map[string]int),
		bounds:    NewBounds(),
		selected:  -1,
		idleDelay: DefaultIdleDelay,
		glyphs:    DetectGlyphs(),
		logger:    logging.NewLogger("map"),
	}
}

// SetGlyphs overrides the detected glyph set.
func (m *Model) SetGlyphs(g Glyphs) { m.glyphs = g }

// SetIdleDelay changes the settle debounce.
func (m *Model) SetIdleDelay(d time.Duration) { m.idleDelay = d }

// SetSize resizes the grid. The first call reports that the map is ready.
func (m *Model) SetSize(width, height int) tea.Cmd {
	m.width = width
	m.height = height
	if m.ready || width <= 0 || height <= 0 {
		return nil
	}
	m.ready = true
	m.logger.Debug().Int("width", width).Int("height", height).Msg("map ready")
	return func() tea.Msg { return model.MapReadyMsg{} }
}

// Ready reports whether the map has been sized.
func (m *Model) Ready() bool { return m.ready }

// SetOriginMarker places the search-origin marker.
func (m *Model) SetOriginMarker(p model.Location) {
	m.origin = &p
}

// AddMarker places an ATM marker and grows the known bounds.
func (m *Model) AddMarker(id string, p model.Location) {
	if _, ok := m.byID[id]; ok {
		return
	}
	m.byID[id] = len(m.markers)
	m.markers = append(m.markers, marker{id: id, point: p})
	m.bounds.Extend(p)
}

// ArmSettledListener enables CenterSettledMsg. It stays armed.
func (m *Model) ArmSettledListener() {
	m.listening = true
}

// HighlightMarker marks the focused ATM. An empty id clears it.
func (m *Model) HighlightMarker(id string) {
	m.highlighted = id
}

// PanTo recentres the map on p.
func (m *Model) PanTo(p model.Location) tea.Cmd {
	m.center = p
	return m.moved()
}

// Pan shifts the map a quarter of the visible extent.
func (m *Model) Pan(d Direction) tea.Cmd {
	cols := max(1, m.width/4)
	rows := max(1, m.height/4)
	mpp := m.metresPerPixel()

	c := project.Point(toPoint(m.center), project.WGS84.ToMercator)
	switch d {
	case North:
		c[1] += float64(rows*cellHeightPx) * mpp
	case South:
		c[1] -= float64(rows*cellHeightPx) * mpp
	case East:
		c[0] += float64(cols*cellWidthPx) * mpp
	case West:
		c[0] -= float64(cols*cellWidthPx) * mpp
	}
	m.center = fromPoint(project.Point(c, project.Mercator.ToWGS84))
	return m.moved()
}

// Zoom changes the zoom level by delta, within MinZoom..MaxZoom.
func (m *Model) Zoom(delta int) tea.Cmd {
	z := clampZoom(m.zoom + delta)
	if z == m.zoom {
		return nil
	}
	m.zoom = z
	return m.moved()
}

func (m *Model) moved() tea.Cmd {
	m.settleSeq++
	seq := m.settleSeq
	return tea.Tick(m.idleDelay, func(time.Time) tea.Msg {
		return settleMsg{seq: seq}
	})
}

// Update handles the map's own messages.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case settleMsg:
		if msg.seq != m.settleSeq {
			return nil
		}
		return m.settled()
	}
	return nil
}

func (m *Model) settled() tea.Cmd {
	if !m.listening {
		return nil
	}
	if m.bounds.Contains(m.center) {
		return nil
	}
	center := m.center
	ev := m.logger.Debug().Str("center", center.String())
	if !m.bounds.isEmpty() {
		sw, ne := m.bounds.box()
		ev = ev.Str("sw", sw.String()).Str("ne", ne.String())
	}
	ev.Msg("centre settled outside known markers")
	return func() tea.Msg { return model.CenterSettledMsg{Center: center} }
}

// SelectNext moves the marker selection forward and returns the selected id.
func (m *Model) SelectNext() string {
	if len(m.markers) == 0 {
		return ""
	}
	m.selected = (m.selected + 1) % len(m.markers)
	return m.markers[m.selected].id
}

// SelectPrev moves the marker selection backward and returns the selected id.
func (m *Model) SelectPrev() string {
	if len(m.markers) == 0 {
		return ""
	}
	m.selected--
	if m.selected < 0 {
		m.selected = len(m.markers) - 1
	}
	return m.markers[m.selected].id
}

// ClickSelected activates the selected marker.
func (m *Model) ClickSelected() tea.Cmd {
	if m.selected < 0 || m.selected >= len(m.markers) {
		return nil
	}
	return m.Click(m.markers[m.selected].id)
}

// Click activates the marker with the given id.
func (m *Model) Click(id string) tea.Cmd {
	if _, ok := m.byID[id]; !ok {
		return nil
	}
	return func() tea.Msg {
		return model.FocusMsg{RecordID: id, Source: model.FocusFromMarker}
	}
}

// Center returns the current map centre.
func (m *Model) Center() model.Location { return m.center }

// ZoomLevel returns the current zoom level.
func (m *Model) ZoomLevel() int { return m.zoom }

// MarkerCount returns the number of ATM markers.
func (m *Model) MarkerCount() int { return len(m.markers) }

func (m *Model) metresPerPixel() float64 {
	return metresPerPixelZ0 / math.Exp2(float64(m.zoom))
}

// cellOf projects p onto the grid. ok is false when p falls outside it.
func (m *Model) cellOf(p model.Location, width, height int) (col, row int, ok bool) {
	mpp := m.metresPerPixel()
	c := project.Point(toPoint(m.center), project.WGS84.ToMercator)
	q := project.Point(toPoint(p), project.WGS84.ToMercator)

	dx := (q[0] - c[0]) / (mpp * cellWidthPx)
	dy := (q[1] - c[1]) / (mpp * cellHeightPx)

	col = width/2 + int(math.Round(dx))
	row = height/2 - int(math.Round(dy))
	if col < 0 || col >= width || row < 0 || row >= height {
		return 0, 0, false
	}
	return col, row, true
}

type cell struct {
	glyph rune
	style lipgloss.Style
	layer int
}

// View renders the grid plus a one-line caption.
func (m *Model) View() string {
	width, height := m.width, m.height-1
	if width <= 0 || height <= 0 {
		return ""
	}

	grid := make([][]cell, height)
	for r := range grid {
		grid[r] = make([]cell, width)
		for c := range grid[r] {
			grid[r][c] = cell{glyph: ' ', style: gridStyle}
			if r%4 == 0 && c%8 == 0 {
				grid[r][c].glyph = m.glyphs.Background
			}
		}
	}

	put := func(p model.Location, glyph rune, style lipgloss.Style, layer int) {
		col, row, ok := m.cellOf(p, width, height)
		if !ok || grid[row][col].layer > layer {
			return
		}
		grid[row][col] = cell{glyph: glyph, style: style, layer: layer}
	}

	put(m.center, m.glyphs.Center, centerStyle, 1)
	for i, mk := range m.markers {
		switch {
		case mk.id == m.highlighted:
			put(mk.point, m.glyphs.Focused, focusedStyle, 5)
		case i == m.selected:
			put(mk.point, m.glyphs.Selected, selectedStyle, 4)
		default:
			put(mk.point, m.glyphs.Marker, markerStyle, 2)
		}
	}
	if m.origin != nil {
		put(*m.origin, m.glyphs.Origin, originStyle, 3)
	}

	var b strings.Builder
	for r, line := range grid {
		// Render runs of the same layer in one call.
		start := 0
		for c := 1; c <= len(line); c++ {
			if c < len(line) && line[c].layer == line[start].layer {
				continue
			}
			run := make([]rune, 0, c-start)
			for _, cl := range line[start:c] {
				run = append(run, cl.glyph)
			}
			b.WriteString(line[start].style.Render(string(run)))
			start = c
		}
		if r < len(grid)-1 {
			b.WriteByte('\n')
		}
	}

	caption := fmt.Sprintf("%s  z%d  %d markers", util.FormatCoordinate(m.center), m.zoom, len(m.markers))
	if m.selected >= 0 && m.selected < len(m.markers) {
		caption += fmt.Sprintf("  ·  marker %d/%d", m.selected+1, len(m.markers))
	}
	b.WriteByte('\n')
	b.WriteString(captionStyle.Render(util.TruncateString(caption, width)))
	return b.String()
}

func clampZoom(z int) int {
	return min(max(z, MinZoom), MaxZoom)
}
