package locator

import (
	"context"

	"atmfinder/internal/logging"
	"atmfinder/internal/model"
	"atmfinder/internal/search"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultPageLength is used when Params.PageLength is not positive.
const DefaultPageLength = 25

var (
	fetchDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atm_fetch_triggers_dropped_total",
		Help: "Fetch triggers ignored by the fetch controller, by reason",
	}, []string{"reason"})

	fetchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atm_fetch_pages_total",
		Help: "Completed page fetches by result",
	}, []string{"result"})
)

// Params are the query fields that stay fixed for a session.
type Params struct {
	Unit       model.DistanceUnit
	PostalCode string
	Country    string
	PageLength int
}

// FetchController pages through search results for one fixed origin.
// All methods must be called from the Bubble Tea Update goroutine; the
// search itself runs inside the returned tea.Cmd.
type FetchController struct {
	searcher search.Searcher
	params   Params

	origin  model.Location
	started bool

	state   model.FetchState
	cursor  model.SearchCursor
	lastErr error

	logger zerolog.Logger
}

// NewFetchController creates an idle controller that has not started yet.
func NewFetchController(searcher search.Searcher, params Params) *FetchController {
	if params.PageLength <= 0 {
		params.PageLength = DefaultPageLength
	}
	return &FetchController{
		searcher: searcher,
		params:   params,
		state:    model.FetchIdle,
		cursor:   model.SearchCursor{PageLength: params.PageLength},
		logger:   logging.NewLogger("fetch"),
	}
}

// Start fixes the search origin and requests the first page. Only the first
// call has any effect.
func (c *FetchController) Start(origin model.Location) tea.Cmd {
	if c.started {
		c.logger.Debug().Msg("start ignored: already started")
		return nil
	}
	c.started = true
	c.origin = origin
	c.logger.Info().Str("origin", origin.String()).Int("page_length", c.cursor.PageLength).Msg("search session started")
	return c.fetchNextPage()
}

// OnViewportSettled requests the next page for the fixed origin.
func (c *FetchController) OnViewportSettled() tea.Cmd {
	return c.fetchNextPage()
}

func (c *FetchController) fetchNextPage() tea.Cmd {
	switch {
	case !c.started:
		fetchDroppedTotal.WithLabelValues("not_started").Inc()
		return nil
	case c.state == model.FetchInFlight:
		fetchDroppedTotal.WithLabelValues("in_flight").Inc()
		c.logger.Debug().Int("page_offset", c.cursor.PageOffset).Msg("fetch dropped: request in flight")
		return nil
	case c.cursor.Exhausted:
		fetchDroppedTotal.WithLabelValues("exhausted").Inc()
		c.logger.Debug().Msg("fetch dropped: results exhausted")
		return nil
	}

	c.state = model.FetchInFlight
	q := model.SearchQuery{
		Origin:     c.origin,
		Unit:       c.params.Unit,
		PostalCode: c.params.PostalCode,
		Country:    c.params.Country,
		PageLength: c.cursor.PageLength,
		PageOffset: c.cursor.PageOffset,
	}
	searcher := c.searcher

	c.logger.Debug().Int("page_offset", q.PageOffset).Msg("requesting page")
	return func() tea.Msg {
		page, err := searcher.SearchAtms(context.Background(), q)
		return model.PageFetchedMsg{Query: q, Page: page, Err: err}
	}
}

// HandleResult applies a completed fetch and returns the records to render,
// in response order. A failed fetch leaves the cursor unchanged.
func (c *FetchController) HandleResult(msg model.PageFetchedMsg) []model.AtmRecord {
	if c.state != model.FetchInFlight || msg.Query.PageOffset != c.cursor.PageOffset {
		c.logger.Warn().
			Int("page_offset", msg.Query.PageOffset).
			Str("state", c.state.String()).
			Msg("ignoring unexpected fetch result")
		return nil
	}
	c.state = model.FetchIdle

	if msg.Err != nil {
		c.lastErr = msg.Err
		fetchPagesTotal.WithLabelValues("error").Inc()
		c.logger.Error().Err(msg.Err).Int("page_offset", msg.Query.PageOffset).Msg("fetch failed")
		return nil
	}

	c.lastErr = nil
	c.cursor.PageOffset += c.cursor.PageLength
	if msg.Page.TotalCount <= c.cursor.PageOffset {
		c.cursor.Exhausted = true
	}
	fetchPagesTotal.WithLabelValues("ok").Inc()

	c.logger.Info().
		Int("records", len(msg.Page.Atms)).
		Int("total_count", msg.Page.TotalCount).
		Int("next_offset", c.cursor.PageOffset).
		Bool("exhausted", c.cursor.Exhausted).
		Msg("page received")

	return msg.Page.Atms
}

// Cursor returns a copy of the pagination cursor.
func (c *FetchController) Cursor() model.SearchCursor { return c.cursor }

// State returns the current fetch state.
func (c *FetchController) State() model.FetchState { return c.state }

// Started reports whether Start has been called.
func (c *FetchController) Started() bool { return c.started }

// Origin returns the fixed search origin.
func (c *FetchController) Origin() model.Location { return c.origin }

// LastError returns the error of the most recent fetch, or nil if it
// succeeded. Nothing is retried automatically.
func (c *FetchController) LastError() error { return c.lastErr }
