package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LeaderboardView ViewState = iota
	DetailView
	ConfirmView
	BackfillView
	ResultView
)

// Stats is the read side the TUI browses.
type Stats interface {
	TopTracks(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	TrackStatistics(ctx context.Context, id string) (*models.TrackStats, error)
}

// Refresher re-fetches catalog metadata for stored tracks, see [tasks.Backfiller].
type Refresher interface {
	Run(ctx context.Context, prog chan<- tasks.ProgressUpdate, opts tasks.BackfillOpts) (*tasks.BackfillResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	stats        Stats
	refresher    Refresher
	limit        int
	width        int
	height       int
	entries      list.Model
	selected     *models.TrackStats
	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.BackfillResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. limit caps the leaderboard size; a nil refresher disables backfills.
func NewModel(ctx context.Context, stats Stats, refresher Refresher, limit int) *Model {
	return &Model{
		ctx:       ctx,
		view:      LeaderboardView,
		stats:     stats,
		refresher: refresher,
		limit:     limit,
		entries:   list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init initializes the TUI by loading the leaderboard.
func (m *Model) Init() tea.Cmd {
	return m.fetchLeaderboard()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.entries.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LeaderboardView:
			return m.handleLeaderboardKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == LeaderboardView {
		var cmd tea.Cmd
		m.entries, cmd = m.entries.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLeaderboardFetched:
		data := msg.data.(leaderboardData)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		cmd := m.entries.SetItems(entryItems(data.entries))
		m.entries.Title = fmt.Sprintf("🎵 Top %d Songs", len(data.entries))
		return m, cmd

	case MsgStatsFetched:
		data := msg.data.(statsData)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.selected = data.stats
		m.view = DetailView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgBackfillComplete:
		data := msg.data.(backfillData)
		m.result = data.result
		m.err = data.err
		m.progressChan, m.done = nil, nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress esc to go back, q to quit", m.err))
	}

	switch m.view {
	case LeaderboardView:
		return m.renderLeaderboard()
	case DetailView:
		return m.renderDetail()
	case ConfirmView:
		return m.renderConfirm()
	case BackfillView:
		return m.renderBackfill()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleLeaderboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entries.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.entries, cmd = m.entries.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchLeaderboard()
	case key.Matches(msg, m.keys.backfill):
		if m.refresher != nil {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.entries.SelectedItem().(entryItem); ok {
			return m, m.fetchStats(item.entry.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = LeaderboardView
		m.selected = nil
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = LeaderboardView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = BackfillView
		return m, m.startBackfill()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.reload):
		m.view = LeaderboardView
		m.result = nil
		m.err = nil
		return m, m.fetchLeaderboard()
	}
	return m, nil
}

func (m *Model) fetchLeaderboard() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.stats.TopTracks(m.ctx, m.limit)
		return leaderboardFetchedMsg(entries, err)
	}
}

func (m *Model) fetchStats(id string) tea.Cmd {
	return func() tea.Msg {
		stats, err := m.stats.TrackStatistics(m.ctx, id)
		return statsFetchedMsg(stats, err)
	}
}

// startBackfill runs the refresher in the background; updates arrive through waitForProgress.
func (m *Model) startBackfill() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan Msg, 1)

	progress, done := m.progressChan, m.done
	go func() {
		result, err := m.refresher.Run(m.ctx, progress, tasks.BackfillOpts{})
		done <- backfillCompleteMsg(result, err)
		close(progress)
	}()

	return m.waitForProgress()
}

// waitForProgress yields the next progress update, or the completion once the channel closes.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderLeaderboard() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.reload}
	if m.refresher != nil {
		helpKeys = append(helpKeys, m.keys.backfill)
	}
	helpKeys = append(helpKeys, m.keys.quit)

	if len(m.entries.Items()) == 0 {
		return fmt.Sprintf("%s\n\n%s\n\n%s", styles.title.Render("🎵 Top Songs"), styles.help.Render("No songs found in the database."), m.help.ShortHelpView(helpKeys))
	}
	return fmt.Sprintf("%s\n\n%s", m.entries.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}

	s := m.selected
	track := s.Track

	artists := "Unknown Artist"
	if names := track.ArtistNames(); len(names) > 0 {
		artists = strings.Join(names, ", ")
	}

	rating := "N/A"
	if s.Count > 0 {
		rating = fmt.Sprintf("%.1f", s.Mean)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(track.Title))
	fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Artists:"), artists)
	fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Album:"), track.Album)
	fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Shared by:"), track.User)
	fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Link:"), shared.TrackURL(track.ID))
	if track.HasCanonicalMessage() {
		fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Message:"), track.MessageLink)
	}
	fmt.Fprintf(&b, "\n\n%s %s (%d ratings)", styles.label.Render("Average:"), styles.As(rating, RatingColor(s.Mean)), s.Count)

	for _, r := range s.Ratings {
		fmt.Fprintf(&b, "\n  • %s %s", r.User, shared.RatingToSymbol(r.Value))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", b.String(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Backfill track metadata?")
	info := "\nTracks without artist credits will be re-fetched from Spotify.\n"

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderBackfill() string {
	title := styles.title.Render("Backfilling Metadata")

	var phase string
	switch m.progress.Phase {
	case tasks.ListTracks:
		phase = "Listing tracks..."
	case tasks.FetchMetadata:
		phase = fmt.Sprintf("Fetching metadata (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.UpdateTracks:
		phase = fmt.Sprintf("Updating tracks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Backfill failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Backfill Complete!")
	info := fmt.Sprintf("\nUpdated: %d/%d", m.result.Updated, m.result.Total)

	var failed string
	if m.result.Failed > 0 {
		failed = "\n\n" + styles.warn.Render(fmt.Sprintf("Failed to refresh %d tracks:", m.result.Failed))
		for _, r := range m.result.Results {
			if !r.Success {
				failed += fmt.Sprintf("\n  • %s: %v", r.TrackID, r.Error)
			}
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
