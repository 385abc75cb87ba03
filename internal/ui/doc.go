// Package ui implements an interactive terminal leaderboard browser using bubbletea's Elm architecture.
//
// Views:
//  1. [LeaderboardView] : Browse and filter ranked tracks
//  2. [DetailView] : Ratings of the selected track
//  3. [ConfirmView] : Confirm a metadata backfill
//  4. [BackfillView] : Monitor backfill progress
//  5. [ResultView] : Display updated and failed tracks
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Backfill progress flows through a channel from the [Refresher], so the UI never blocks on catalog requests.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
