package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/tasks"
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
	MsgLeaderboardFetched MsgKind = iota
	MsgStatsFetched
	MsgProgressUpdate
	MsgBackfillComplete
)

type leaderboardData struct {
	entries []models.LeaderboardEntry
	err     error
}

type statsData struct {
	stats *models.TrackStats
	err   error
}

type backfillData struct {
	result *tasks.BackfillResult
	err    error
}

// leaderboardFetchedMsg is the constructor for [MsgLeaderboardFetched]
func leaderboardFetchedMsg(entries []models.LeaderboardEntry, err error) Msg {
	return Msg{kind: MsgLeaderboardFetched, data: leaderboardData{entries, err}}
}

// statsFetchedMsg is the constructor for [MsgStatsFetched]
func statsFetchedMsg(stats *models.TrackStats, err error) Msg {
	return Msg{kind: MsgStatsFetched, data: statsData{stats, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// backfillCompleteMsg is the constructor for [MsgBackfillComplete]
func backfillCompleteMsg(result *tasks.BackfillResult, err error) Msg {
	return Msg{kind: MsgBackfillComplete, data: backfillData{result, err}}
}
