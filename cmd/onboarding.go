package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"atmfinder/internal/ui"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Data source modes chosen during onboarding.
const (
	ModeAPI  = "api"
	ModeDemo = "demo"
)

type OnboardingSettings struct {
	Completed bool   `json:"completed"`
	Mode      string `json:"mode"`
	APIURL    string `json:"api_url,omitempty"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	data, err := os.ReadFile(onboardingPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, err
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

func secureAPIKeyPath(configDir string) string {
	return filepath.Join(configDir, "api_key")
}

func saveSecureAPIKey(configDir, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	// Owner read/write only.
	return os.WriteFile(secureAPIKeyPath(configDir), []byte(strings.TrimSpace(key)+"\n"), 0600)
}

func loadSecureAPIKey(configDir string) (string, error) {
	data, err := os.ReadFile(secureAPIKeyPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func shouldRunOnboarding(settings OnboardingSettings) bool {
	if settings.Completed {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// validAPIURL accepts absolute http(s) URLs only.
func validAPIURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type onboardingStep int

const (
	stepMode onboardingStep = iota
	stepURL
	stepKey
	stepDone
)

type onboardingModel struct {
	step        onboardingStep
	useAPI      bool
	existingKey string
	urlInput    textinput.Model
	keyInput    textinput.Model
	settings    OnboardingSettings
	capturedKey string
	status      string
	warning     string
	width       int
	height      int
}

// Wizard styles reuse the app palette.
var (
	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(ui.ColorMuted)

	obTabInactive = ui.HelpDescStyle.Padding(0, 2)
	obTabActive   = ui.NormalRowStyle.Bold(true).Underline(true).Padding(0, 2)
	obPanelStyle  = ui.PaneStyle.Padding(1, 2)
	obInputStyle  = ui.ActivePaneStyle.Padding(0, 1)
	obWarnStyle   = lipgloss.NewStyle().Foreground(ui.ColorRed)
)

func newOnboardingInput(placeholder, prompt string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 300
	in.Prompt = prompt
	in.TextStyle = lipgloss.NewStyle().Foreground(ui.ColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(ui.ColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(ui.ColorText).Background(ui.ColorAccent)
	return in
}

func newOnboardingModel(existingURL, existingKey string) onboardingModel {
	urlInput := newOnboardingInput("https://atm-locator.example.com/api", "url> ")
	urlInput.SetValue(strings.TrimSpace(existingURL))
	urlInput.Focus()

	keyInput := newOnboardingInput("Paste API key here (optional)", "key> ")
	keyInput.EchoMode = textinput.EchoPassword

	return onboardingModel{
		step:        stepMode,
		useAPI:      true,
		existingKey: strings.TrimSpace(existingKey),
		urlInput:    urlInput,
		keyInput:    keyInput,
		settings: OnboardingSettings{
			Completed: true,
			Mode:      ModeAPI,
		},
	}
}

func (m onboardingModel) Init() tea.Cmd { return nil }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.cancel()
		}
		switch m.step {
		case stepMode:
			return m.updateMode(msg)
		case stepURL:
			return m.updateURL(msg)
		case stepKey:
			return m.updateKey(msg)
		}
	}
	return m, nil
}

func (m onboardingModel) updateMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "a", "A", "up", "k", "left", "h":
		m.useAPI = true
		if msg.String() == "a" || msg.String() == "A" {
			return m.nextStep()
		}
		return m, nil
	case "d", "D", "down", "j", "right", "l":
		m.useAPI = false
		if msg.String() == "d" || msg.String() == "D" {
			return m.nextStep()
		}
		return m, nil
	case "enter":
		return m.nextStep()
	case "q":
		return m.cancel()
	}
	return m, nil
}

func (m onboardingModel) updateURL(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		raw := strings.TrimRight(strings.TrimSpace(m.urlInput.Value()), "/")
		if !validAPIURL(raw) {
			m.warning = "Enter an http:// or https:// URL, or press esc to use demo data."
			return m, nil
		}
		m.warning = ""
		m.settings.APIURL = raw
		if m.existingKey != "" {
			m.capturedKey = m.existingKey
			m.status = "Using API key from environment/flags."
			m.step = stepDone
			return m, tea.Quit
		}
		m.urlInput.Blur()
		m.keyInput.Focus()
		m.step = stepKey
		return m, nil
	case "esc":
		m.settings.Mode = ModeDemo
		m.settings.APIURL = ""
		m.status = "No API configured. Showing demo ATMs."
		m.step = stepDone
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func (m onboardingModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.keyInput.Value())
		if key == "" {
			m.status = "No key entered. Requests will be sent without authorization."
		} else {
			m.capturedKey = key
			m.status = "API key saved."
		}
		m.step = stepDone
		return m, tea.Quit
	case "esc":
		m.status = "Skipped key setup. Requests will be sent without authorization."
		m.step = stepDone
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m onboardingModel) cancel() (tea.Model, tea.Cmd) {
	m.settings.Mode = ModeDemo
	m.settings.APIURL = ""
	m.capturedKey = ""
	m.status = "Setup canceled. Showing demo ATMs."
	m.step = stepDone
	return m, tea.Quit
}

func (m onboardingModel) nextStep() (tea.Model, tea.Cmd) {
	if !m.useAPI {
		m.settings.Mode = ModeDemo
		m.status = "Demo data selected."
		m.step = stepDone
		return m, tea.Quit
	}
	m.settings.Mode = ModeAPI
	m.step = stepURL
	return m, nil
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	contentHeight := max(height-6, 8)
	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(width),
		m.renderTabs(width),
		m.renderContent(width, contentHeight),
		m.renderFooter(width),
	)

	return lipgloss.NewStyle().
		Foreground(ui.ColorText).
		Width(width).
		Height(height).
		Render(view)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + ui.LabelStyle.Render("atmfinder") + " " + ui.HelpDescStyle.Render("› Setup")
	right := ui.HelpDescStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return ui.TitleStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderTabs(width int) string {
	labels := []struct {
		step  onboardingStep
		label string
	}{
		{stepMode, "Data Source"},
		{stepURL, "API URL"},
		{stepKey, "API Key"},
	}
	tabs := []string{"  "}
	for _, l := range labels {
		if l.step == m.step {
			tabs = append(tabs, obTabActive.Render(l.label))
		} else {
			tabs = append(tabs, obTabInactive.Render(l.label))
		}
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, tabs...))
}

func (m onboardingModel) renderFooter(width int) string {
	switch m.step {
	case stepMode:
		return ui.FooterStyle.Width(width).Render("↑↓/jk to navigate  a/d enter to confirm  q cancel")
	case stepURL:
		return ui.FooterStyle.Width(width).Render("enter next  esc use demo data  ctrl+c cancel")
	case stepKey:
		return ui.FooterStyle.Width(width).Render("enter save  esc skip  ctrl+c cancel")
	default:
		return ui.FooterStyle.Width(width).Render("Setup complete")
	}
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepMode:
		api := "Live ATM locator API"
		demo := "Demo ATMs around the start location"

		var apiDisplay, demoDisplay string
		if m.useAPI {
			apiDisplay = "  " + ui.LabelStyle.Render("→ "+api)
			demoDisplay = "    " + ui.NormalRowStyle.Render(demo)
		} else {
			apiDisplay = "    " + ui.NormalRowStyle.Render(api)
			demoDisplay = "  " + ui.LabelStyle.Render("→ "+demo)
		}

		body = lipgloss.JoinVertical(
			lipgloss.Left,
			ui.LabelStyle.Render("Where should ATMs come from?"),
			"",
			apiDisplay,
			demoDisplay,
			"",
			ui.HelpDescStyle.Render("Use arrow keys or j/k to navigate, a/d or Enter to confirm"),
			ui.HelpDescStyle.Render("You can change this later in ~/.atmfinder/onboarding.json"),
		)
	case stepURL:
		input := obInputStyle.Width(max(30, cardWidth-14)).Render(m.urlInput.View())
		lines := []string{
			ui.LabelStyle.Render("Locator API base URL"),
			"",
			ui.HelpDescStyle.Render("Searches are sent to GET <url>/atms."),
			"",
			input,
		}
		if m.warning != "" {
			lines = append(lines, "", obWarnStyle.Render(m.warning))
		}
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stepKey:
		input := obInputStyle.Width(max(30, cardWidth-14)).Render(m.keyInput.View())
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			ui.LabelStyle.Render("API Key"),
			"",
			ui.HelpDescStyle.Render("Sent as a bearer token. Stored in ~/.atmfinder/api_key (owner only)."),
			"",
			input,
			"",
			ui.HelpDescStyle.Render("Press Enter to save, Esc to skip."),
		)
	default:
		msg := ui.HelpDescStyle.Render(m.status)
		if m.settings.Mode == ModeDemo {
			msg = obWarnStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, ui.LabelStyle.Render("Onboarding Complete"), "", msg)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func runOnboarding(configDir, existingURL, existingKey string) (OnboardingSettings, error) {
	prog := tea.NewProgram(newOnboardingModel(existingURL, existingKey), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	return finishOnboarding(configDir, m)
}

// finishOnboarding persists the wizard's outcome.
func finishOnboarding(configDir string, m onboardingModel) (OnboardingSettings, error) {
	if m.settings.Mode == ModeAPI && m.capturedKey != "" {
		if err := saveSecureAPIKey(configDir, m.capturedKey); err != nil {
			return OnboardingSettings{}, err
		}
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
