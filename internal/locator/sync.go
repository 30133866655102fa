package locator

import (
	"atmfinder/internal/logging"
	"atmfinder/internal/model"
	"atmfinder/internal/util"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// Viewport is the map capability the sync drives.
type Viewport interface {
	SetOriginMarker(p model.Location)
	AddMarker(id string, p model.Location)
	// PanTo recentres the map; the returned command reports when it settles.
	PanTo(p model.Location) tea.Cmd
	ArmSettledListener()
	HighlightMarker(id string)
}

// Row is one entry of the ATM list.
type Row struct {
	Record   model.AtmRecord
	Expanded bool
}

// ListMapSync keeps the ATM list and the map markers in step. At most one
// row is expanded at a time.
type ListMapSync struct {
	viewport Viewport

	rows     []Row
	index    map[string]int
	expanded int

	cursor      int
	offset      int
	visibleRows int

	logger zerolog.Logger
}

// NewListMapSync creates an empty list bound to the given viewport.
func NewListMapSync(vp Viewport) *ListMapSync {
	return &ListMapSync{
		viewport: vp,
		index:    make(map[string]int),
		expanded: -1,
		logger:   logging.NewLogger("sync"),
	}
}

// RenderOrigin shows the search origin, centres the map on it and starts
// watching for the map to settle outside the known markers.
func (s *ListMapSync) RenderOrigin(origin model.Location) tea.Cmd {
	s.viewport.SetOriginMarker(origin)
	cmd := s.viewport.PanTo(origin)
	s.viewport.ArmSettledListener()
	return cmd
}

// RenderRecord appends a list row and a map marker for the record.
func (s *ListMapSync) RenderRecord(r model.AtmRecord) {
	if _, dup := s.index[r.ID]; dup {
		s.logger.Warn().Str("atm_id", r.ID).Msg("record already rendered")
		return
	}
	s.index[r.ID] = len(s.rows)
	s.rows = append(s.rows, Row{Record: r})
	s.viewport.AddMarker(r.ID, r.Point)
}

// Focus expands the row for id, collapsing any other, and pans the map to it.
// The list scrolls to the row only when the request came from a marker.
func (s *ListMapSync) Focus(id string, source model.FocusSource) tea.Cmd {
	idx, ok := s.index[id]
	if !ok {
		s.logger.Warn().Str("atm_id", id).Msg("focus on unknown record")
		return nil
	}

	if s.expanded >= 0 && s.expanded != idx {
		s.rows[s.expanded].Expanded = false
	}
	s.rows[idx].Expanded = true
	s.expanded = idx

	if source == model.FocusFromMarker {
		s.cursor = idx
		s.scrollIntoView(idx)
	}

	s.logger.Debug().Str("atm_id", id).Stringer("source", source).Msg("focus")
	s.viewport.HighlightMarker(id)
	return s.viewport.PanTo(s.rows[idx].Record.Point)
}

// Collapse closes the expanded row, if any.
func (s *ListMapSync) Collapse() {
	if s.expanded < 0 {
		return
	}
	s.rows[s.expanded].Expanded = false
	s.expanded = -1
	s.viewport.HighlightMarker("")
}

// scrollIntoView puts idx at the top of the visible window.
func (s *ListMapSync) scrollIntoView(idx int) {
	s.offset = idx
	if vr := s.visibleRowCount(); len(s.rows)-s.offset < vr {
		s.offset = max(0, len(s.rows)-vr)
	}
	if s.offset > idx {
		s.offset = idx
	}
}

// Rows returns the list rows in render order.
func (s *ListMapSync) Rows() []Row { return s.rows }

// Len returns the number of rows.
func (s *ListMapSync) Len() int { return len(s.rows) }

// Expanded returns the expanded record, if any.
func (s *ListMapSync) Expanded() (model.AtmRecord, bool) {
	if s.expanded < 0 {
		return model.AtmRecord{}, false
	}
	return s.rows[s.expanded].Record, true
}

// Record looks up a rendered record by id.
func (s *ListMapSync) Record(id string) (model.AtmRecord, bool) {
	idx, ok := s.index[id]
	if !ok {
		return model.AtmRecord{}, false
	}
	return s.rows[idx].Record, true
}

// Selected returns the record under the list cursor.
func (s *ListMapSync) Selected() (model.AtmRecord, bool) {
	if len(s.rows) == 0 {
		return model.AtmRecord{}, false
	}
	return s.rows[s.cursor].Record, true
}

// Cursor returns the index of the row under the list cursor.
func (s *ListMapSync) Cursor() int { return s.cursor }

// Offset returns the index of the first visible row.
func (s *ListMapSync) Offset() int { return s.offset }

// SetOffset moves the first visible row, clamped to the row range.
func (s *ListMapSync) SetOffset(n int) {
	s.offset = max(0, min(n, len(s.rows)-1))
}

// SetVisibleRows records how many rows fit in the list pane.
func (s *ListMapSync) SetVisibleRows(n int) { s.visibleRows = n }

func (s *ListMapSync) visibleRowCount() int {
	if s.visibleRows <= 0 {
		return 10
	}
	return s.visibleRows
}

// MoveDown moves the cursor down.
func (s *ListMapSync) MoveDown() {
	if s.cursor < len(s.rows)-1 {
		s.cursor++
		if s.cursor >= s.offset+s.visibleRowCount() {
			s.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (s *ListMapSync) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
		if s.cursor < s.offset {
			s.offset--
		}
	}
}

// JumpToTop jumps to the first row.
func (s *ListMapSync) JumpToTop() {
	s.cursor = 0
	s.offset = 0
}

// JumpToBottom jumps to the last row.
func (s *ListMapSync) JumpToBottom() {
	if len(s.rows) == 0 {
		return
	}
	s.cursor = len(s.rows) - 1
	if vr := s.visibleRowCount(); s.cursor >= vr {
		s.offset = s.cursor - vr + 1
	}
}

// HalfPageDown moves down half a page.
func (s *ListMapSync) HalfPageDown() {
	if len(s.rows) == 0 {
		return
	}
	s.cursor = min(s.cursor+s.visibleRowCount()/2, len(s.rows)-1)
	if vr := s.visibleRowCount(); s.cursor >= s.offset+vr {
		s.offset = s.cursor - vr + 1
	}
}

// HalfPageUp moves up half a page.
func (s *ListMapSync) HalfPageUp() {
	s.cursor = max(s.cursor-s.visibleRowCount()/2, 0)
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
}

var serviceLabels = []struct {
	label string
	on    func(model.ServiceFlags) bool
}{
	{"Handicap Accessible", func(f model.ServiceFlags) bool { return f.HandicapAccessible }},
	{"Security Camera", func(f model.ServiceFlags) bool { return f.Camera }},
	{"Shared Deposit", func(f model.ServiceFlags) bool { return f.SharedDeposit }},
	{"Surcharge Free Alliance", func(f model.ServiceFlags) bool { return f.SurchargeFreeAlliance }},
	{"Supports EMV", func(f model.ServiceFlags) bool { return f.SupportEMV }},
	{"International Maestro Accepted", func(f model.ServiceFlags) bool { return f.InternationalMaestroAccepted }},
}

// ServiceLines lists the enabled services in fixed order, or "None".
func ServiceLines(f model.ServiceFlags) []string {
	var lines []string
	for _, s := range serviceLabels {
		if s.on(f) {
			lines = append(lines, s.label)
		}
	}
	if len(lines) == 0 {
		return []string{"None"}
	}
	return lines
}

// RowView is the display text of one list row.
type RowView struct {
	Name         string
	Distance     string
	Line1        string
	Line2        string
	Line2Visible bool
	CityLine     string
	Services     []string
}

// BuildRowView derives the display text for a record.
func BuildRowView(r model.AtmRecord) RowView {
	return RowView{
		Name:         r.Name,
		Distance:     util.FormatDistance(r.Distance, r.DistanceUnit),
		Line1:        r.Address.Line1,
		Line2:        r.Address.Line2,
		Line2Visible: r.Address.Line2 != "",
		CityLine:     util.FormatCityLine(r.Address),
		Services:     ServiceLines(r.Services),
	}
}
