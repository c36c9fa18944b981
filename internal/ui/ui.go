package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"moodify/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PromptView ViewState = iota
	LoadingView
	ResultsView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       tasks.Engine
	principalID  string
	width        int
	height       int
	input        textinput.Model
	spin         spinner.Model
	trackList    list.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.RecommendResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine tasks.Engine, principalID string) *Model {
	input := textinput.New()
	input.Placeholder = "How are you feeling today?"
	input.CharLimit = 280
	input.Width = 60
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.title

	return &Model{
		ctx:         ctx,
		view:        PromptView,
		engine:      engine,
		principalID: principalID,
		input:       input,
		spin:        spin,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init focuses the mood prompt.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PromptView:
			return m.handlePromptKeys(msg)
		case LoadingView:
			return m.handleLoadingKeys(msg)
		case ResultsView:
			return m.handleResultsKeys(msg)
		}

	case spinner.TickMsg:
		if m.view == LoadingView {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case recommendCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultsView
		m.progressChan = nil
		if msg.err == nil && msg.result != nil {
			items := make([]list.Item, len(msg.result.Tracks))
			for i, track := range msg.result.Tracks {
				items[i] = trackItem{track: track}
			}
			m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.trackList.Title = "Recommended Tracks"
			m.trackList.SetSize(m.width-4, m.height-8)
		}
		return m, nil
	}

	return m.updateActive(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PromptView:
		return m.renderPrompt()
	case LoadingView:
		return m.renderLoading()
	case ResultsView:
		return m.renderResults()
	default:
		return ""
	}
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		m.view = LoadingView
		m.err = nil
		return m, tea.Batch(m.spin.Tick, m.startRecommend(m.input.Value()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleLoadingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r", "esc":
		m.view = PromptView
		m.result = nil
		m.err = nil
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PromptView:
		m.input, cmd = m.input.Update(msg)
	case ResultsView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) startRecommend(moodText string) tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 8)
	progressChan := m.progressChan

	go func() {
		result, err := m.engine.Recommend(m.ctx, progressChan, m.principalID, moodText)
		m.result = result
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		if progressChan == nil {
			return recommendCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-progressChan
		if !ok {
			return recommendCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPrompt() string {
	title := styles.title.Render("Moodify")
	prompt := "Describe a mood, a moment, or a vibe:"

	submitKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search"))
	helpView := m.help.ShortHelpView([]key.Binding{submitKey, m.keys.quit})

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, prompt, m.input.View(), helpView)
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("Finding your soundtrack")

	var phase string
	switch m.progress.Phase {
	case tasks.ResolveSession:
		phase = "Checking your session..."
	case tasks.SynthesizeQuery:
		phase = "Reading the room..."
	case tasks.SearchCatalog:
		phase = "Searching the catalog..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spin.View(), phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResults() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) +
			"\n\n" + styles.help.Render("Press r to try again, q to quit")
	}

	if m.result == nil || len(m.result.Tracks) == 0 {
		return styles.warn.Render("No tracks matched that mood.") +
			"\n\n" + styles.help.Render("Press r to try again, q to quit")
	}

	var summary string
	if m.result.Summary != "" {
		summary = "\n" + styles.help.Render(m.result.Summary)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s%s\n\n%s", m.trackList.View(), summary, helpView)
}
