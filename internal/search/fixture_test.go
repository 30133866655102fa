package search

import (
	"context"
	"errors"
	"testing"

	"atmfinder/internal/geo"
	"atmfinder/internal/model"
)

func TestFixtureSearcher_Paging(t *testing.T) {
	q := testQuery()
	f := NewFixtureSearcher(q.Origin, model.UnitKilometer, 30, 42)

	first, err := f.SearchAtms(context.Background(), q)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if first.TotalCount != 30 || len(first.Atms) != 25 {
		t.Fatalf("first page: total=%d len=%d, want 30/25", first.TotalCount, len(first.Atms))
	}

	q.PageOffset = 25
	second, err := f.SearchAtms(context.Background(), q)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Atms) != 5 || second.PageOffset != 25 {
		t.Fatalf("second page: offset=%d len=%d, want 25/5", second.PageOffset, len(second.Atms))
	}

	q.PageOffset = 50
	third, err := f.SearchAtms(context.Background(), q)
	if err != nil {
		t.Fatalf("third page: %v", err)
	}
	if len(third.Atms) != 0 {
		t.Errorf("past the end: got %d records", len(third.Atms))
	}

	if f.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", f.Calls())
	}
}

func TestFixtureSearcher_NearestFirstWithinRadius(t *testing.T) {
	origin := testQuery().Origin
	f := NewFixtureSearcher(origin, model.UnitKilometer, 40, 7)

	q := testQuery()
	q.PageLength = 40
	page, err := f.SearchAtms(context.Background(), q)
	if err != nil {
		t.Fatalf("SearchAtms: %v", err)
	}

	ids := map[string]bool{}
	for i, r := range page.Atms {
		if i > 0 && r.Distance < page.Atms[i-1].Distance {
			t.Fatalf("record %d closer than record %d", i, i-1)
		}
		d := geo.HaversineKm(origin.Latitude, origin.Longitude, r.Point.Latitude, r.Point.Longitude)
		if d > 4 {
			t.Errorf("record %d is %.2f km away", i, d)
		}
		if ids[r.ID] {
			t.Errorf("duplicate ID %s", r.ID)
		}
		ids[r.ID] = true
		if r.DistanceUnit != "kilometer" {
			t.Errorf("DistanceUnit = %q", r.DistanceUnit)
		}
	}
}

func TestFixtureSearcher_Deterministic(t *testing.T) {
	origin := testQuery().Origin
	a := NewFixtureSearcher(origin, model.UnitMile, 5, 99)
	b := NewFixtureSearcher(origin, model.UnitMile, 5, 99)

	pa, _ := a.SearchAtms(context.Background(), testQuery())
	pb, _ := b.SearchAtms(context.Background(), testQuery())

	for i := range pa.Atms {
		if pa.Atms[i].Point != pb.Atms[i].Point || pa.Atms[i].Services != pb.Atms[i].Services {
			t.Fatalf("record %d differs between identically seeded fixtures", i)
		}
		if pa.Atms[i].DistanceUnit != "mile" {
			t.Errorf("DistanceUnit = %q, want mile", pa.Atms[i].DistanceUnit)
		}
	}
}

func TestFixtureSearcher_FailWith(t *testing.T) {
	f := NewFixtureSearcherFromRecords(nil)
	boom := errors.New("boom")
	f.FailWith(boom)

	if _, err := f.SearchAtms(context.Background(), testQuery()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	f.FailWith(nil)
	page, err := f.SearchAtms(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("after clearing failure: %v", err)
	}
	if page.TotalCount != 0 {
		t.Errorf("TotalCount = %d, want 0", page.TotalCount)
	}
}
