// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is organized around the notification inbox:
//  1. [InboxView] : Browse notifications, mark them read, delete them, refresh
//  2. [ExportView] : Monitor a running library export
//  3. [ResultView] : Display export metrics and failed series
//
// The (view) [Model] implements the standard Init/Update/View pattern, receiving results of background work via the Msg union type.
// Marking a notification read renders immediately and the list is rebuilt from the store once the request settles.
//
// Keyboard bindings are intercepted before the list's own keymap so that r, d and R keep their inbox meaning.
package ui
