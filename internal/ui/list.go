package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/ratebot/internal/formatter"
	"github.com/desertthunder/ratebot/internal/models"
)

var _ list.Item = entryItem{}

// entryItem wraps a ranked [models.LeaderboardEntry] to implement [list.Item].
type entryItem struct {
	rank  int
	entry models.LeaderboardEntry
}

func (i entryItem) FilterValue() string {
	return i.entry.Title + " " + strings.Join(i.entry.Artists, " ")
}

func (i entryItem) Title() string {
	return fmt.Sprintf("%s  %s", formatter.RankLabel(i.rank), i.entry.Title)
}

func (i entryItem) Description() string {
	rating := "N/A"
	if i.entry.Count > 0 {
		rating = fmt.Sprintf("%.1f", i.entry.Mean)
	}
	desc := fmt.Sprintf("%s • %d ratings", styles.As("⭐ "+rating, RatingColor(i.entry.Mean)), i.entry.Count)
	if len(i.entry.Artists) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.entry.Artists, ", "))
	}
	return desc
}

func entryItems(entries []models.LeaderboardEntry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{rank: i + 1, entry: e}
	}
	return items
}
