package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tvx/internal/tasks"
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
	MsgInboxSynced MsgKind = iota
	MsgMutationDone
	MsgProgressUpdate
	MsgExportComplete
)

type mutation struct {
	op  string
	id  int64
	err error
}

type exportOutcome struct {
	result *tasks.ExportResult
	err    error
}

// inboxSyncedMsg is the constructor for [MsgInboxSynced]
func inboxSyncedMsg(err error) Msg {
	return Msg{kind: MsgInboxSynced, data: err}
}

// mutationDoneMsg is the constructor for [MsgMutationDone]
func mutationDoneMsg(op string, id int64, err error) Msg {
	return Msg{kind: MsgMutationDone, data: mutation{op: op, id: id, err: err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *tasks.ExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportOutcome{result: result, err: err}}
}
