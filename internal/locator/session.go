package locator

import (
	"atmfinder/internal/model"
	"atmfinder/internal/search"

	tea "github.com/charmbracelet/bubbletea"
)

// Session wires the fetch controller to the list/map sync.
type Session struct {
	Fetch *FetchController
	Sync  *ListMapSync
}

// NewSession creates a session that has not started yet.
func NewSession(searcher search.Searcher, params Params, vp Viewport) *Session {
	return &Session{
		Fetch: NewFetchController(searcher, params),
		Sync:  NewListMapSync(vp),
	}
}

// Start renders the origin and requests the first page. Later calls do nothing.
func (s *Session) Start(origin model.Location) tea.Cmd {
	if s.Fetch.Started() {
		return nil
	}
	return tea.Batch(s.Sync.RenderOrigin(origin), s.Fetch.Start(origin))
}

// OnViewportSettled requests the next page if the controller allows it.
func (s *Session) OnViewportSettled() tea.Cmd {
	return s.Fetch.OnViewportSettled()
}

// HandlePage applies a fetch result and renders its records. It returns the
// number of records added.
func (s *Session) HandlePage(msg model.PageFetchedMsg) int {
	records := s.Fetch.HandleResult(msg)
	for _, r := range records {
		s.Sync.RenderRecord(r)
	}
	return len(records)
}

// Focus forwards a focus request to the list/map sync.
func (s *Session) Focus(id string, source model.FocusSource) tea.Cmd {
	return s.Sync.Focus(id, source)
}
