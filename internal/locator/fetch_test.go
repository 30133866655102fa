package locator

import (
	"errors"
	"testing"

	"atmfinder/internal/model"
	"atmfinder/internal/search"

	tea "github.com/charmbracelet/bubbletea"
)

func mustFetch(t *testing.T, c *FetchController, start bool) model.PageFetchedMsg {
	t.Helper()
	cmd := c.OnViewportSettled
	if start {
		cmd = func() tea.Cmd { return c.Start(testOrigin) }
	}
	msgs := drain(cmd())
	pf, ok := fetched(msgs)
	if !ok {
		t.Fatal("expected a fetch command")
	}
	return pf
}

func TestFetchController_OffsetAdvancesByPageLength(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(60))
	c := NewFetchController(fixture, testParams)

	wantOffsets := []int{25, 50, 75}
	wantCounts := []int{25, 25, 10}
	for i := range wantOffsets {
		msg := mustFetch(t, c, i == 0)
		if msg.Query.PageOffset != i*25 {
			t.Fatalf("page %d requested offset %d, want %d", i, msg.Query.PageOffset, i*25)
		}
		records := c.HandleResult(msg)
		if len(records) != wantCounts[i] {
			t.Errorf("page %d: %d records, want %d", i, len(records), wantCounts[i])
		}
		if got := c.Cursor().PageOffset; got != wantOffsets[i] {
			t.Errorf("page %d: offset %d, want %d", i, got, wantOffsets[i])
		}
		if c.State() != model.FetchIdle {
			t.Errorf("page %d: state %s, want idle", i, c.State())
		}
	}
	if !c.Cursor().Exhausted {
		t.Error("60 results over 3 pages of 25 should be exhausted")
	}
}

func TestFetchController_QueryUsesFixedParams(t *testing.T) {
	c := NewFetchController(search.NewFixtureSearcherFromRecords(nil), testParams)
	msg, ok := fetched(drain(c.Start(testOrigin)))
	if !ok {
		t.Fatal("expected a fetch")
	}
	want := model.SearchQuery{
		Origin:     testOrigin,
		Unit:       model.UnitKilometer,
		PostalCode: "10011",
		Country:    "USA",
		PageLength: 25,
		PageOffset: 0,
	}
	if msg.Query != want {
		t.Errorf("query = %+v, want %+v", msg.Query, want)
	}
}

func TestFetchController_ExhaustionIsAbsorbing(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(25))
	c := NewFetchController(fixture, testParams)

	c.HandleResult(mustFetch(t, c, true))
	if !c.Cursor().Exhausted {
		t.Fatal("totalCount == offset should exhaust")
	}

	for i := 0; i < 3; i++ {
		if cmd := c.OnViewportSettled(); cmd != nil {
			t.Fatalf("trigger %d after exhaustion returned a command", i)
		}
	}
	if fixture.Calls() != 1 {
		t.Errorf("searcher called %d times, want 1", fixture.Calls())
	}
	if !c.Cursor().Exhausted || c.Cursor().PageOffset != 25 {
		t.Errorf("cursor changed after exhaustion: %+v", c.Cursor())
	}
}

func TestFetchController_EmptyResultExhausts(t *testing.T) {
	c := NewFetchController(search.NewFixtureSearcherFromRecords(nil), testParams)

	records := c.HandleResult(mustFetch(t, c, true))
	if len(records) != 0 {
		t.Errorf("got %d records", len(records))
	}
	if !c.Cursor().Exhausted {
		t.Error("totalCount 0 should exhaust after the first page")
	}
}

func TestFetchController_InFlightDropsTriggers(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(100))
	c := NewFetchController(fixture, testParams)

	cmd := c.Start(testOrigin)
	if cmd == nil {
		t.Fatal("Start should return the first fetch")
	}
	if c.State() != model.FetchInFlight {
		t.Fatalf("state = %s, want in_flight", c.State())
	}

	for i := 0; i < 5; i++ {
		if extra := c.OnViewportSettled(); extra != nil {
			t.Fatalf("trigger %d while in flight returned a command", i)
		}
	}

	msg := cmd().(model.PageFetchedMsg)
	c.HandleResult(msg)
	if fixture.Calls() != 1 {
		t.Errorf("searcher called %d times, want 1", fixture.Calls())
	}
	if c.Cursor().PageOffset != 25 {
		t.Errorf("offset = %d, want 25", c.Cursor().PageOffset)
	}
}

func TestFetchController_FailureLeavesCursor(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(100))
	c := NewFetchController(fixture, testParams)

	c.HandleResult(mustFetch(t, c, true))
	before := c.Cursor()

	boom := errors.New("backend down")
	fixture.FailWith(boom)
	records := c.HandleResult(mustFetch(t, c, false))

	if records != nil {
		t.Errorf("failed fetch returned %d records", len(records))
	}
	if c.Cursor() != before {
		t.Errorf("cursor = %+v, want unchanged %+v", c.Cursor(), before)
	}
	if c.State() != model.FetchIdle {
		t.Errorf("state = %s, want idle", c.State())
	}
	if !errors.Is(c.LastError(), boom) {
		t.Errorf("LastError = %v", c.LastError())
	}
	if fixture.Calls() != 2 {
		t.Errorf("failure was retried: %d calls", fixture.Calls())
	}

	fixture.FailWith(nil)
	msg := mustFetch(t, c, false)
	if msg.Query.PageOffset != before.PageOffset {
		t.Errorf("next trigger requested offset %d, want %d", msg.Query.PageOffset, before.PageOffset)
	}
	c.HandleResult(msg)
	if c.LastError() != nil {
		t.Errorf("LastError should clear after success, got %v", c.LastError())
	}
}

func TestFetchController_StartOnlyOnce(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(100))
	c := NewFetchController(fixture, testParams)

	c.HandleResult(mustFetch(t, c, true))
	other := model.Location{Latitude: 51.5, Longitude: -0.12}
	if cmd := c.Start(other); cmd != nil {
		t.Fatal("second Start returned a command")
	}
	if c.Origin() != testOrigin {
		t.Errorf("origin changed to %v", c.Origin())
	}

	msg := mustFetch(t, c, false)
	if msg.Query.Origin != testOrigin {
		t.Errorf("next page used origin %v, want %v", msg.Query.Origin, testOrigin)
	}
}

func TestFetchController_NotStarted(t *testing.T) {
	fixture := search.NewFixtureSearcherFromRecords(makeRecords(10))
	c := NewFetchController(fixture, testParams)

	if cmd := c.OnViewportSettled(); cmd != nil {
		t.Fatal("trigger before Start returned a command")
	}
	if fixture.Calls() != 0 {
		t.Errorf("searcher called %d times", fixture.Calls())
	}
}

func TestFetchController_IgnoresUnexpectedResult(t *testing.T) {
	c := NewFetchController(search.NewFixtureSearcherFromRecords(makeRecords(10)), testParams)

	stray := model.PageFetchedMsg{Page: model.Page{TotalCount: 10, Atms: makeRecords(2)}}
	if records := c.HandleResult(stray); records != nil {
		t.Errorf("result while idle produced %d records", len(records))
	}
	if c.Cursor().PageOffset != 0 {
		t.Errorf("offset moved to %d", c.Cursor().PageOffset)
	}
}

func TestFetchController_DefaultPageLength(t *testing.T) {
	p := testParams
	p.PageLength = 0
	c := NewFetchController(search.NewFixtureSearcherFromRecords(nil), p)
	if c.Cursor().PageLength != DefaultPageLength {
		t.Errorf("PageLength = %d, want %d", c.Cursor().PageLength, DefaultPageLength)
	}
}
