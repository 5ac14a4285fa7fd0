package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgProgressUpdate
	MsgExportComplete
	MsgNotice
)

type playlistsFetched struct {
	playlists []models.Playlist
	err       error
}

type exportComplete struct {
	result *tasks.ExportResult
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *tasks.ExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportComplete{result, err}}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n Notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}
