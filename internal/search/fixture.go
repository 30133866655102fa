package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"atmfinder/internal/geo"
	"atmfinder/internal/model"

	"github.com/google/uuid"
)

var fixtureStreets = []string{
	"W 14th St", "8th Ave", "W 23rd St", "9th Ave", "Hudson St",
	"7th Ave", "W 18th St", "Greenwich Ave", "10th Ave", "Bleecker St",
}

// FixtureSearcher serves a fixed, in-memory result set. It backs demo mode
// and tests; pagination and totalCount behave like the real backend.
type FixtureSearcher struct {
	mu      sync.Mutex
	records []model.AtmRecord
	delay   time.Duration
	err     error
	calls   int
}

// NewFixtureSearcher generates count deterministic ATMs scattered within a few
// kilometers of origin, nearest first.
func NewFixtureSearcher(origin model.Location, unit model.DistanceUnit, count int, seed int64) *FixtureSearcher {
	rng := rand.New(rand.NewSource(seed))
	records := make([]model.AtmRecord, 0, count)

	for i := 0; i < count; i++ {
		north := (rng.Float64()*2 - 1) * 2.5
		east := (rng.Float64()*2 - 1) * 2.5
		lat, lng := geo.Offset(origin.Latitude, origin.Longitude, north, east)

		distance := geo.HaversineKm(origin.Latitude, origin.Longitude, lat, lng)
		distanceUnit := "kilometer"
		if unit == model.UnitMile {
			distance /= geo.KilometersPerMile
			distanceUnit = "mile"
		}

		line2 := ""
		if rng.Intn(3) == 0 {
			line2 = fmt.Sprintf("Suite %d", 100+rng.Intn(800))
		}

		records = append(records, model.AtmRecord{
			ID:           uuid.NewString(),
			Distance:     math.Round(distance*100) / 100,
			DistanceUnit: distanceUnit,
			Address: model.Address{
				Line1:           fmt.Sprintf("%d %s", 10+rng.Intn(490), fixtureStreets[rng.Intn(len(fixtureStreets))]),
				Line2:           line2,
				City:            "New York",
				SubdivisionCode: "NY",
				SubdivisionName: "New York",
				PostalCode:      "10011",
				CountryCode:     "USA",
				CountryName:     "United States",
			},
			Point: model.Location{Latitude: lat, Longitude: lng},
			Services: model.ServiceFlags{
				HandicapAccessible:           rng.Intn(2) == 0,
				Camera:                       rng.Intn(2) == 0,
				SharedDeposit:                rng.Intn(4) == 0,
				SurchargeFreeAlliance:        rng.Intn(4) == 0,
				SupportEMV:                   rng.Intn(3) != 0,
				InternationalMaestroAccepted: rng.Intn(3) == 0,
			},
			Availability: "UNKNOWN",
			AccessFees:   "UNKNOWN",
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Distance < records[j].Distance
	})
	for i := range records {
		records[i].Name = fmt.Sprintf("Demo ATM Location %d", i+1)
	}

	return &FixtureSearcher{records: records}
}

// NewFixtureSearcherFromRecords serves exactly the given records.
func NewFixtureSearcherFromRecords(records []model.AtmRecord) *FixtureSearcher {
	return &FixtureSearcher{records: append([]model.AtmRecord(nil), records...)}
}

// WithDelay makes every search sleep before answering (demo mode uses it to
// make the loading state visible).
func (f *FixtureSearcher) WithDelay(d time.Duration) *FixtureSearcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	return f
}

// FailWith makes every following search return err until cleared with nil.
func (f *FixtureSearcher) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns how many searches have been issued.
func (f *FixtureSearcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// SearchAtms returns the slice of the fixture at the query's page window.
func (f *FixtureSearcher) SearchAtms(ctx context.Context, q model.SearchQuery) (model.Page, error) {
	if err := Validate(q); err != nil {
		return model.Page{}, err
	}

	f.mu.Lock()
	f.calls++
	delay, failure := f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Page{}, ctx.Err()
		}
	}
	if failure != nil {
		return model.Page{}, failure
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	page := model.Page{PageOffset: q.PageOffset, TotalCount: len(f.records)}
	if q.PageOffset >= len(f.records) {
		page.Atms = []model.AtmRecord{}
		return page, nil
	}
	end := q.PageOffset + q.PageLength
	if end > len(f.records) {
		end = len(f.records)
	}
	page.Atms = append([]model.AtmRecord(nil), f.records[q.PageOffset:end]...)
	return page, nil
}
