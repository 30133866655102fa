package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"atmfinder/internal/locator"
	"atmfinder/internal/logging"
	"atmfinder/internal/mapview"
	"atmfinder/internal/model"
	"atmfinder/internal/search"
	"atmfinder/internal/util"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Config is everything the root model needs besides the searcher.
type Config struct {
	Origin     model.Location
	Params     locator.Params
	Zoom       int
	SourceName string
	PrefsDir   string
	// IdleDelay overrides the map settle debounce when positive.
	IdleDelay time.Duration
}

// Model is the root Bubble Tea model.
type Model struct {
	session *locator.Session
	mapView *mapview.Model
	origin  model.Location
	source  string

	pane   model.Pane
	gState GState

	width  int
	height int

	spinner     spinner.Model
	error       string
	info        string
	showingHelp bool

	keys     KeyMap
	prefs    UIPreferences
	prefsDir string
	logger   zerolog.Logger
}

// New creates a new root model.
func New(searcher search.Searcher, cfg Config) Model {
	mv := mapview.New(cfg.Origin, cfg.Zoom)
	if cfg.IdleDelay > 0 {
		mv.SetIdleDelay(cfg.IdleDelay)
	}

	prefs := loadUIPreferences(cfg.PrefsDir)
	pane := model.PaneList
	if prefs.Pane == "map" {
		pane = model.PaneMap
	}

	return Model{
		session:  locator.NewSession(searcher, cfg.Params, mv),
		mapView:  mv,
		origin:   cfg.Origin,
		source:   cfg.SourceName,
		pane:     pane,
		gState:   GStateIdle,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorAccent))),
		keys:     DefaultKeyMap(),
		prefs:    prefs,
		prefsDir: cfg.PrefsDir,
		logger:   logging.NewLogger("ui"),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.resizeMap()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case model.MapReadyMsg:
		m.info = "Searching near " + util.FormatCoordinate(m.origin)
		return m, m.session.Start(m.origin)

	case model.PageFetchedMsg:
		n := m.session.HandlePage(msg)
		if err := m.session.Fetch.LastError(); err != nil {
			m.error = fetchErrorText(err)
			m.info = ""
			return m, nil
		}
		m.error = ""
		m.info = fmt.Sprintf("Loaded %d more ATMs", n)
		if m.session.Fetch.Cursor().Exhausted {
			m.info += "  ·  all results loaded"
		}
		return m, nil

	case model.CenterSettledMsg:
		return m, m.session.OnViewportSettled()

	case model.FocusMsg:
		return m, m.session.Focus(msg.RecordID, msg.Source)

	case model.ErrorMsg:
		m.error = msg.Err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, m.mapView.Update(msg)
}

// fetchErrorText phrases a failed page for the banner.
func fetchErrorText(err error) string {
	var apiErr *search.APIError
	if errors.As(err, &apiErr) && apiErr.IsInputError() {
		return fmt.Sprintf("Search rejected, check the configured location: %s", apiErr.Reason)
	}
	return fmt.Sprintf("Could not load ATMs: %v", err)
}

// layout returns the inner list width, inner map width and inner body height.
func (m Model) layout() (listW, mapW, bodyH int) {
	// header (2) + status line (1) + footer (2) + pane borders (2)
	bodyH = max(1, m.height-7)
	outerList := m.width * m.prefs.normalized().ListWidthPct / 100
	listW = max(1, outerList-2)
	mapW = max(1, m.width-outerList-2)
	return listW, mapW, bodyH
}

func (m Model) resizeMap() tea.Cmd {
	if m.width == 0 || m.height == 0 {
		return nil
	}
	_, mapW, bodyH := m.layout()
	return m.mapView.SetSize(mapW, bodyH)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if key.Matches(msg, m.keys.Help) {
		m.showingHelp = !m.showingHelp
		return m, nil
	}
	if m.showingHelp {
		if msg.String() == "esc" {
			m.showingHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.SwitchPane):
		if m.pane == model.PaneList {
			m.pane = model.PaneMap
			m.prefs.Pane = "map"
		} else {
			m.pane = model.PaneList
			m.prefs.Pane = "list"
		}
		m.persistPrefs()
		return m, nil
	case key.Matches(msg, m.keys.WiderList):
		return m.resizeList(5)
	case key.Matches(msg, m.keys.NarrowerList):
		return m.resizeList(-5)
	}

	if m.pane == model.PaneMap {
		return m.handleMapKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) resizeList(delta int) (tea.Model, tea.Cmd) {
	before := m.prefs.normalized().ListWidthPct
	m.prefs.ListWidthPct = before + delta
	m.prefs = m.prefs.normalized()
	if m.prefs.ListWidthPct == before {
		return m, nil
	}
	m.persistPrefs()
	return m, m.resizeMap()
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sync := m.session.Sync

	// Handle "gg" state machine
	if msg.String() == "g" {
		if m.gState == GStateFirstG {
			m.gState = GStateIdle
			sync.JumpToTop()
			return m, nil
		}
		m.gState = GStateFirstG
		return m, nil
	}
	m.gState = GStateIdle

	switch {
	case key.Matches(msg, m.keys.Down):
		sync.MoveDown()
	case key.Matches(msg, m.keys.Up):
		sync.MoveUp()
	case key.Matches(msg, m.keys.Bottom):
		sync.JumpToBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		sync.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		sync.HalfPageUp()
	case key.Matches(msg, m.keys.Select):
		record, ok := sync.Selected()
		if !ok {
			return m, nil
		}
		id := record.ID
		return m, func() tea.Msg {
			return model.FocusMsg{RecordID: id, Source: model.FocusFromList}
		}
	case key.Matches(msg, m.keys.Back):
		sync.Collapse()
	}
	return m, nil
}

func (m Model) handleMapKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		return m, m.mapView.Pan(mapview.North)
	case key.Matches(msg, m.keys.Down):
		return m, m.mapView.Pan(mapview.South)
	case key.Matches(msg, m.keys.Left):
		return m, m.mapView.Pan(mapview.West)
	case key.Matches(msg, m.keys.Right):
		return m, m.mapView.Pan(mapview.East)
	case key.Matches(msg, m.keys.ZoomIn):
		return m, m.mapView.Zoom(1)
	case key.Matches(msg, m.keys.ZoomOut):
		return m, m.mapView.Zoom(-1)
	case key.Matches(msg, m.keys.NextMarker):
		m.describeMarker(m.mapView.SelectNext())
		return m, nil
	case key.Matches(msg, m.keys.PrevMarker):
		m.describeMarker(m.mapView.SelectPrev())
		return m, nil
	case key.Matches(msg, m.keys.Select):
		return m, m.mapView.ClickSelected()
	case key.Matches(msg, m.keys.Recenter):
		return m, m.mapView.PanTo(m.origin)
	}
	return m, nil
}

func (m *Model) describeMarker(id string) {
	if r, ok := m.session.Sync.Record(id); ok {
		m.info = fmt.Sprintf("Marker: %s (%s)", r.Name, util.FormatDistance(r.Distance, r.DistanceUnit))
	}
}

func (m *Model) persistPrefs() {
	if err := saveUIPreferences(m.prefsDir, m.prefs); err != nil {
		m.logger.Warn().Err(err).Msg("failed to save ui preferences")
	}
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	listW, mapW, bodyH := m.layout()

	emptyMsg := "Waiting for the map…"
	if m.session.Fetch.Started() {
		emptyMsg = "No ATMs found yet."
	}
	list := renderAtmList(m.session.Sync, listW, bodyH, m.pane == model.PaneList, emptyMsg)

	listStyle, mapStyle := PaneStyle, ActivePaneStyle
	if m.pane == model.PaneList {
		listStyle, mapStyle = ActivePaneStyle, PaneStyle
	}
	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listStyle.Width(listW).Height(bodyH).Render(list),
		mapStyle.Width(mapW).Height(bodyH).Render(m.mapView.View()),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderStatus(),
		body,
		RenderHelp(m.pane, m.width),
	)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("atmfinder")
	separator := BreadcrumbStyle.Render(" › ")
	left := "  " + title + separator + BreadcrumbActiveStyle.Render("near "+util.FormatCoordinate(m.origin))

	right := BreadcrumbStyle.Render(m.source) + "  "

	padding := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return TitleStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m Model) renderStatus() string {
	var left string
	switch {
	case m.error != "":
		left = ErrorStyle.Render("Error: " + m.error)
	case m.session.Fetch.State() == model.FetchInFlight:
		left = StatusBarStyle.Render(m.spinner.View() + " Loading ATMs…")
	case m.info != "":
		left = SuccessStyle.Render(m.info)
	}

	cursor := m.session.Fetch.Cursor()
	right := fmt.Sprintf("%d ATMs", m.session.Sync.Len())
	if cursor.Exhausted {
		right += "  ·  all loaded"
	}
	right = StatusBarStyle.Render(right)

	padding := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(left + strings.Repeat(" ", padding) + right)
}
