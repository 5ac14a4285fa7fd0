// Package ui implements the terminal front end: styled notices and an interactive playlist picker
// built on bubbletea's Elm architecture.
//
// The picker has three views:
//  1. [PlaylistListView] : Browse the user's playlists; enter exports the selection
//  2. [ExportView] : Spinner and live progress while the export runs
//  3. [ResultView] : File location, or why nothing was written
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the exporter. Notices go through a [NoticeQueue] so
// that nothing writes to the terminal behind the renderer's back.
//
// Outside the TUI, [Notifier] prints the same notices as single styled lines.
package ui
