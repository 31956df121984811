// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a recall session:
//  1. [MenuView] : Pick recall tracks, random fill, recall artists, or history
//  2. [RunningView] : Spinner and progress bar fed by the engine's progress channel
//  3. [ResultView] : Browse the recalled tracks or artists
//  4. [ConfirmView] : Confirm saving the tracks as a new playlist
//  5. [SavedView] : Show the created playlist
//  6. [HistoryView] : Browse recorded runs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Engine calls run on a goroutine; their updates are read one at a time by a command until the channel closes,
// after which the final message is delivered.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
