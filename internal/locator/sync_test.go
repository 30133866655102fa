package locator

import (
	"reflect"
	"testing"

	"atmfinder/internal/model"
)

func newSyncWith(n int) (*ListMapSync, *fakeViewport, []model.AtmRecord) {
	vp := newFakeViewport()
	s := NewListMapSync(vp)
	records := makeRecords(n)
	for _, r := range records {
		s.RenderRecord(r)
	}
	return s, vp, records
}

func expandedCount(s *ListMapSync) int {
	n := 0
	for _, r := range s.Rows() {
		if r.Expanded {
			n++
		}
	}
	return n
}

func TestRenderOrigin(t *testing.T) {
	vp := newFakeViewport()
	s := NewListMapSync(vp)

	msgs := drain(s.RenderOrigin(testOrigin))

	if vp.origin == nil || *vp.origin != testOrigin {
		t.Errorf("origin marker = %v, want %v", vp.origin, testOrigin)
	}
	if len(vp.pans) != 1 || vp.pans[0] != testOrigin {
		t.Errorf("pans = %v, want one pan to origin", vp.pans)
	}
	if vp.armed != 1 {
		t.Errorf("listener armed %d times, want 1", vp.armed)
	}
	if len(msgs) != 1 {
		t.Errorf("expected the pan command's message, got %v", msgs)
	}
	if len(vp.markers) != 0 {
		t.Error("origin must not be an ATM marker")
	}
}

func TestRenderRecord_KeepsFullRecord(t *testing.T) {
	s, vp, records := newSyncWith(3)

	if s.Len() != 3 || len(vp.markers) != 3 {
		t.Fatalf("rows=%d markers=%d, want 3/3", s.Len(), len(vp.markers))
	}
	for i, row := range s.Rows() {
		if !reflect.DeepEqual(row.Record, records[i]) {
			t.Errorf("row %d record differs from input", i)
		}
		if row.Expanded {
			t.Errorf("row %d starts expanded", i)
		}
		if vp.markers[i] != records[i].ID || vp.points[records[i].ID] != records[i].Point {
			t.Errorf("marker %d = %s at %v", i, vp.markers[i], vp.points[vp.markers[i]])
		}
	}

	s.RenderRecord(records[0])
	if s.Len() != 3 {
		t.Error("duplicate record should not add a row")
	}
}

func TestFocus_SingleExpandedRow(t *testing.T) {
	s, _, records := newSyncWith(5)

	sequence := []int{1, 3, 3, 0, 4}
	for _, idx := range sequence {
		s.Focus(records[idx].ID, model.FocusFromList)

		if n := expandedCount(s); n != 1 {
			t.Fatalf("after focusing %d: %d rows expanded", idx, n)
		}
		got, ok := s.Expanded()
		if !ok || got.ID != records[idx].ID {
			t.Fatalf("expanded = %v, want %s", got.ID, records[idx].ID)
		}
	}
}

func TestFocus_PansAndHighlights(t *testing.T) {
	s, vp, records := newSyncWith(3)

	msgs := drain(s.Focus(records[2].ID, model.FocusFromList))

	if len(vp.pans) != 1 || vp.pans[0] != records[2].Point {
		t.Errorf("pans = %v, want one pan to %v", vp.pans, records[2].Point)
	}
	if vp.highlighted != records[2].ID {
		t.Errorf("highlighted = %q", vp.highlighted)
	}
	if len(msgs) != 1 {
		t.Errorf("expected pan command message, got %v", msgs)
	}
}

func TestFocus_FromMarkerScrollsIntoView(t *testing.T) {
	s, _, records := newSyncWith(10)
	s.SetVisibleRows(3)

	s.Focus(records[5].ID, model.FocusFromMarker)
	if s.Cursor() != 5 || s.Offset() != 5 {
		t.Errorf("cursor=%d offset=%d, want 5/5", s.Cursor(), s.Offset())
	}

	s.Focus(records[8].ID, model.FocusFromMarker)
	if s.Cursor() != 8 {
		t.Errorf("cursor = %d, want 8", s.Cursor())
	}
	if off := s.Offset(); off > 8 || off+3 <= 8 {
		t.Errorf("row 8 not visible with offset %d", off)
	}
}

func TestFocus_FromListDoesNotScroll(t *testing.T) {
	s, _, records := newSyncWith(10)
	s.SetVisibleRows(3)

	s.Focus(records[8].ID, model.FocusFromList)

	if s.Offset() != 0 || s.Cursor() != 0 {
		t.Errorf("cursor=%d offset=%d, want list position untouched", s.Cursor(), s.Offset())
	}
	if got, _ := s.Expanded(); got.ID != records[8].ID {
		t.Errorf("expanded = %s", got.ID)
	}
}

func TestFocus_UnknownID(t *testing.T) {
	s, vp, records := newSyncWith(2)
	s.Focus(records[0].ID, model.FocusFromList)

	if cmd := s.Focus("missing", model.FocusFromMarker); cmd != nil {
		t.Error("unknown id should return nil")
	}
	if got, _ := s.Expanded(); got.ID != records[0].ID {
		t.Error("unknown id changed the expanded row")
	}
	if len(vp.pans) != 1 {
		t.Errorf("pans = %d, want 1", len(vp.pans))
	}
}

func TestCollapse(t *testing.T) {
	s, vp, records := newSyncWith(2)
	s.Focus(records[1].ID, model.FocusFromList)
	s.Collapse()

	if _, ok := s.Expanded(); ok {
		t.Error("row still expanded")
	}
	if expandedCount(s) != 0 {
		t.Error("row flag still set")
	}
	if vp.highlighted != "" {
		t.Errorf("highlight = %q, want cleared", vp.highlighted)
	}
}

func TestNavigation_DoesNotChangeExpansion(t *testing.T) {
	s, _, records := newSyncWith(20)
	s.SetVisibleRows(4)
	s.Focus(records[2].ID, model.FocusFromList)

	s.MoveDown()
	s.MoveDown()
	s.HalfPageDown()
	s.JumpToBottom()
	s.MoveUp()
	s.HalfPageUp()
	s.JumpToTop()

	if got, _ := s.Expanded(); got.ID != records[2].ID || expandedCount(s) != 1 {
		t.Errorf("navigation changed expansion to %s", got.ID)
	}
}

func TestNavigation_CursorAndOffset(t *testing.T) {
	s, _, _ := newSyncWith(20)
	s.SetVisibleRows(4)

	for i := 0; i < 5; i++ {
		s.MoveDown()
	}
	if s.Cursor() != 5 || s.Offset() != 2 {
		t.Errorf("after 5 downs: cursor=%d offset=%d, want 5/2", s.Cursor(), s.Offset())
	}

	s.JumpToBottom()
	if s.Cursor() != 19 || s.Offset() != 16 {
		t.Errorf("bottom: cursor=%d offset=%d, want 19/16", s.Cursor(), s.Offset())
	}

	s.HalfPageUp()
	if s.Cursor() != 17 || s.Offset() != 16 {
		t.Errorf("half up: cursor=%d offset=%d, want 17/16", s.Cursor(), s.Offset())
	}

	s.JumpToTop()
	if s.Cursor() != 0 || s.Offset() != 0 {
		t.Errorf("top: cursor=%d offset=%d", s.Cursor(), s.Offset())
	}
	s.MoveUp()
	if s.Cursor() != 0 {
		t.Error("cursor moved above the first row")
	}

	if sel, ok := s.Selected(); !ok || sel.ID != "atm-00" {
		t.Errorf("Selected = %v, %v", sel.ID, ok)
	}
}

func TestServiceLines(t *testing.T) {
	tests := []struct {
		name  string
		flags model.ServiceFlags
		want  []string
	}{
		{"none", model.ServiceFlags{}, []string{"None"}},
		{"camera and emv", model.ServiceFlags{Camera: true, SupportEMV: true}, []string{"Security Camera", "Supports EMV"}},
		{
			"all",
			model.ServiceFlags{
				HandicapAccessible:           true,
				Camera:                       true,
				SharedDeposit:                true,
				SurchargeFreeAlliance:        true,
				SupportEMV:                   true,
				InternationalMaestroAccepted: true,
			},
			[]string{
				"Handicap Accessible",
				"Security Camera",
				"Shared Deposit",
				"Surcharge Free Alliance",
				"Supports EMV",
				"International Maestro Accepted",
			},
		},
		{"maestro only", model.ServiceFlags{InternationalMaestroAccepted: true}, []string{"International Maestro Accepted"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ServiceLines(tt.flags); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ServiceLines = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildRowView(t *testing.T) {
	r := model.AtmRecord{
		Name:         "Chelsea Branch",
		Distance:     0.46,
		DistanceUnit: "kilometer",
		Address: model.Address{
			Line1:           "100 W 14th St",
			City:            "New York",
			SubdivisionCode: "NY",
			PostalCode:      "10011",
		},
		Services: model.ServiceFlags{Camera: true},
	}

	v := BuildRowView(r)
	if v.Line2Visible {
		t.Error("empty line2 should be hidden")
	}
	if v.Distance != "0.46 km" {
		t.Errorf("Distance = %q", v.Distance)
	}
	if v.CityLine != "New York, NY 10011" {
		t.Errorf("CityLine = %q", v.CityLine)
	}
	if !reflect.DeepEqual(v.Services, []string{"Security Camera"}) {
		t.Errorf("Services = %v", v.Services)
	}

	r.Address.Line2 = "Suite 200"
	r.DistanceUnit = "mile"
	v = BuildRowView(r)
	if !v.Line2Visible || v.Line2 != "Suite 200" {
		t.Errorf("line2 = %q visible=%v", v.Line2, v.Line2Visible)
	}
	if v.Distance != "0.46 mile" {
		t.Errorf("Distance = %q", v.Distance)
	}
}

func TestSetOffset_Clamped(t *testing.T) {
	s, _, _ := newSyncWith(5)

	s.SetOffset(3)
	if s.Offset() != 3 {
		t.Errorf("offset = %d, want 3", s.Offset())
	}
	s.SetOffset(9)
	if s.Offset() != 4 {
		t.Errorf("offset = %d, want clamp to last row", s.Offset())
	}
	s.SetOffset(-2)
	if s.Offset() != 0 {
		t.Errorf("offset = %d, want 0", s.Offset())
	}
}
