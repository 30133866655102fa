package locator

import (
	"testing"

	"atmfinder/internal/model"
	"atmfinder/internal/search"
)

func TestSession_FirstPageEndToEnd(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(2))
	vp := newFakeViewport()
	s := NewSession(fixture, testParams, vp)

	msgs := drain(s.Start(testOrigin))
	pf, ok := fetched(msgs)
	if !ok {
		t.Fatalf("Start produced no fetch: %v", msgs)
	}
	if pf.Query.Origin != testOrigin || pf.Query.PageOffset != 0 || pf.Query.PageLength != 25 {
		t.Errorf("first query = %+v", pf.Query)
	}

	if n := s.HandlePage(pf); n != 2 {
		t.Fatalf("rendered %d records, want 2", n)
	}

	cursor := s.Fetch.Cursor()
	if cursor.PageOffset != 25 || !cursor.Exhausted {
		t.Errorf("cursor = %+v, want offset 25 exhausted", cursor)
	}
	if s.Sync.Len() != 2 || len(vp.markers) != 2 {
		t.Errorf("rows=%d markers=%d, want 2/2", s.Sync.Len(), len(vp.markers))
	}
	if vp.origin == nil || vp.armed != 1 {
		t.Error("origin not rendered or listener not armed")
	}

	if cmd := s.OnViewportSettled(); cmd != nil {
		t.Error("settled viewport after exhaustion issued a request")
	}
	if fixture.Calls() != 1 {
		t.Errorf("searcher called %d times, want 1", fixture.Calls())
	}
}

func TestSession_StartTwice(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(2))
	vp := newFakeViewport()
	s := NewSession(fixture, testParams, vp)

	first := s.Start(testOrigin)
	if second := s.Start(model.Location{Latitude: 1, Longitude: 1}); second != nil {
		t.Error("second Start returned a command")
	}
	if vp.armed != 1 || len(vp.pans) != 1 {
		t.Errorf("origin rendered %d times", len(vp.pans))
	}
	drain(first)
}

func TestSession_PagesAccumulate(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(30))
	vp := newFakeViewport()
	s := NewSession(fixture, testParams, vp)

	pf, _ := fetched(drain(s.Start(testOrigin)))
	s.HandlePage(pf)

	pf, ok := fetched(drain(s.OnViewportSettled()))
	if !ok {
		t.Fatal("second page not requested")
	}
	if n := s.HandlePage(pf); n != 5 {
		t.Errorf("second page rendered %d, want 5", n)
	}
	if s.Sync.Len() != 30 || len(vp.markers) != 30 {
		t.Errorf("rows=%d markers=%d, want 30/30", s.Sync.Len(), len(vp.markers))
	}

	rows := s.Sync.Rows()
	s.Focus(rows[27].Record.ID, model.FocusFromMarker)
	if got, _ := s.Sync.Expanded(); got.ID != rows[27].Record.ID {
		t.Errorf("expanded = %s", got.ID)
	}
}
