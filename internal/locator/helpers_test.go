package locator

import (
	"fmt"

	"atmfinder/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

type panMsg struct{ to model.Location }

type fakeViewport struct {
	origin      *model.Location
	markers     []string
	points      map[string]model.Location
	pans        []model.Location
	armed       int
	highlighted string
}

func newFakeViewport() *fakeViewport {
	return &fakeViewport{points: map[string]model.Location{}}
}

func (v *fakeViewport) SetOriginMarker(p model.Location) { v.origin = &p }

func (v *fakeViewport) AddMarker(id string, p model.Location) {
	v.markers = append(v.markers, id)
	v.points[id] = p
}

func (v *fakeViewport) PanTo(p model.Location) tea.Cmd {
	v.pans = append(v.pans, p)
	return func() tea.Msg { return panMsg{to: p} }
}

func (v *fakeViewport) ArmSettledListener() { v.armed++ }

func (v *fakeViewport) HighlightMarker(id string) { v.highlighted = id }

// drain runs cmd and any batched commands, returning every message produced.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// fetched returns the single PageFetchedMsg among msgs.
func fetched(msgs []tea.Msg) (model.PageFetchedMsg, bool) {
	for _, m := range msgs {
		if pf, ok := m.(model.PageFetchedMsg); ok {
			return pf, true
		}
	}
	return model.PageFetchedMsg{}, false
}

var testOrigin = model.Location{Latitude: 40.742859, Longitude: -74.000284}

var testParams = Params{
	Unit:       model.UnitKilometer,
	PostalCode: "10011",
	Country:    "USA",
	PageLength: 25,
}

func makeRecords(n int) []model.AtmRecord {
	records := make([]model.AtmRecord, n)
	for i := range records {
		records[i] = model.AtmRecord{
			ID:           fmt.Sprintf("atm-%02d", i),
			Name:         fmt.Sprintf("ATM %d", i),
			Distance:     float64(i) / 10,
			DistanceUnit: "kilometer",
			Address: model.Address{
				Line1:           fmt.Sprintf("%d W 14th St", 100+i),
				City:            "New York",
				SubdivisionCode: "NY",
				PostalCode:      "10011",
			},
			Point: model.Location{
				Latitude:  testOrigin.Latitude + float64(i)*0.001,
				Longitude: testOrigin.Longitude,
			},
		}
	}
	return records
}
