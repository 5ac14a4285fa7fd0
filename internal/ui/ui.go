package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/services"
	"github.com/desertthunder/djcsv/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ExportView
	ResultView
)

// PlaylistExporter exports one playlist, reporting progress on the given channel.
type PlaylistExporter interface {
	Export(ctx context.Context, ref models.PlaylistRef, progress chan<- tasks.ProgressUpdate) (*tasks.ExportResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	library      services.Library
	exporter     PlaylistExporter
	notices      *NoticeQueue
	width        int
	height       int
	loaded       bool
	playlistList list.Model
	selected     *models.Playlist
	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.ExportResult
	exportErr    error
	notice       *Notice
	err          error
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. Notices sent to notices are shown under the current view.
func NewModel(ctx context.Context, library services.Library, exporter PlaylistExporter, notices *NoticeQueue) *Model {
	if notices == nil {
		notices = NewNoticeQueue(8)
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.warn

	return &Model{
		ctx:      ctx,
		view:     PlaylistListView,
		library:  library,
		exporter: exporter,
		notices:  notices,
		width:    80,
		height:   24,
		spinner:  sp,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Err returns the error that stopped the TUI, if any.
func (m *Model) Err() error {
	return m.err
}

// Init fetches the user's playlists and starts listening for notices.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchPlaylists(), m.waitForNotice(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.loaded {
			m.resizeList()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Spotify Playlists"
		m.resizeList()
		m.loaded = true
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan, m.done)

	case MsgExportComplete:
		data := msg.data.(exportComplete)
		m.result = data.result
		m.exportErr = data.err
		m.progressChan = nil
		m.done = nil
		m.view = ResultView
		return m, nil

	case MsgNotice:
		n := msg.data.(Notice)
		m.notice = &n
		return m, m.waitForNotice()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.loaded {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.export):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				selected := pl.playlist
				m.selected = &selected
				m.notice = nil
				m.progress = tasks.ProgressUpdate{}
				m.view = ExportView
				return m, m.startExport(selected.Ref())
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.selected = nil
		m.result = nil
		m.exportErr = nil
		m.notice = nil
	}
	return m, nil
}

func (m *Model) resizeList() {
	m.playlistList.SetSize(max(m.width-4, 20), max(m.height-8, 5))
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.loaded || m.view != PlaylistListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.GetPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	ch := m.notices.ch
	return func() tea.Msg {
		return noticeMsg(<-ch)
	}
}

// startExport runs the export in the background. The result is sent on done before progress is
// closed, so waitForProgress always finds it.
func (m *Model) startExport(ref models.PlaylistRef) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.done = done

	go func() {
		result, err := m.exporter.Export(m.ctx, ref, progress)
		done <- exportCompleteMsg(result, err)
		close(progress)
	}()

	return waitForProgress(progress, done)
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) renderNotice() string {
	if m.notice == nil {
		return ""
	}
	return "\n" + m.notice.Render()
}

func (m *Model) renderPlaylistList() string {
	if !m.loaded {
		return fmt.Sprintf("%s Loading playlists...", m.spinner.View())
	}
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n%s\n\n%s", m.playlistList.View(), m.renderNotice(), helpView)
}

func (m *Model) renderExport() string {
	title := styles.title.Render(fmt.Sprintf("Exporting '%s'", m.selected.Name))

	status := "Starting..."
	if m.progress.Message != "" {
		status = fmt.Sprintf("(%d/%d) %s", m.progress.Step, m.progress.Total, m.progress.Message)
	}

	return fmt.Sprintf("%s\n%s %s\n%s", title, m.spinner.View(), status, m.renderNotice())
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	var b strings.Builder
	switch {
	case m.exportErr != nil:
		b.WriteString(styles.err.Render("✗ Export failed"))
		b.WriteString(fmt.Sprintf("\n\n%s", styles.help.Render(m.exportErr.Error())))
	case m.result == nil:
		b.WriteString(styles.err.Render("No result available"))
	case m.result.Empty:
		b.WriteString(styles.warn.Render(fmt.Sprintf("'%s' has no tracks to export", m.result.DisplayName())))
	default:
		b.WriteString(styles.ok.Render("✓ Export Complete!"))
		b.WriteString(fmt.Sprintf("\n\nPlaylist: %s\nTracks: %d\nFile: %s", m.result.DisplayName(), m.result.Tracks, m.result.Location))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", b.String(), m.renderNotice(), helpView)
}
