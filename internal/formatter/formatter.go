// package formatter renders leaderboards and statistics as Slack mrkdwn replies, plus CSV and JSON exports for the CLI.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// ErrMissingData is the reply used when a template cannot be rendered.
const ErrMissingData = "Error formatting message. Missing data."

const (
	DefaultLeaderboardTitle = "🎵 Top Songs Leaderboard"
	messageTimeLayout       = "2006-01-02 15:04:05"
	linkLabel               = "*_Go to song_*"
)

const trackStatsTemplate = `
*Song Details:*
🎵 {{.title}} by {{.artists}}
💿 {{.album}} | 👤 {{.user_name}} | 🕒 {{.message_time}}
🔗 {{.message_link}}

*Rating Stats:*
⭐ Average Rating: {{.average_rating}} ({{.reaction_count}} reactions)
👥 User Ratings:
{{.user_ratings}}
`

const userStatsTemplate = `
*📊 Statistics for {{.user_name}}*

*📈 Overview:*
• Songs submitted: {{.songs_submitted}}
• Ratings given: {{.ratings_given}}
• Songs rated: {{.songs_rated}}/{{.total_rateable_songs}} ({{printf "%.1f" .rating_percentage}}%)
• Average rating given: {{printf "%.1f" .avg_rating_given}}
• Average rating received: {{printf "%.1f" .avg_rating_received}}

{{.top_songs_section}}

{{.top_artists_section}}`

const artistStatsTemplate = `
*🎤 Statistics for {{.name}}*

*📈 Overview:*
• Songs submitted: {{.songs}}
• Ratings received: {{.reaction_count}}
• Average rating: {{.average_rating}}

{{.top_songs_section}}`

var (
	trackStatsTmpl  = mustParse("track_stats", trackStatsTemplate)
	userStatsTmpl   = mustParse("user_stats", userStatsTemplate)
	artistStatsTmpl = mustParse("artist_stats", artistStatsTemplate)
)

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=error").Parse(text))
}

// Render executes tmpl against data, returning [ErrMissingData] on any execution error.
func Render(tmpl *template.Template, data map[string]any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ErrMissingData
	}
	return buf.String()
}

// RankLabel returns the display rank for a 1-based position.
func RankLabel(i int) string {
	switch i {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", i)
	}
}

// Truncate shortens s to keep runes plus "..." when it is longer than limit runes.
func Truncate(s string, keep, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:keep]) + "..."
}

// SlackLink formats a mrkdwn link, or "#" when url is empty.
func SlackLink(url, label string) string {
	if url == "" {
		return "#"
	}
	return fmt.Sprintf("<%s|%s>", url, label)
}

func ratingDisplay(mean float64) string {
	if mean > 0 {
		return fmt.Sprintf("%.1f", mean)
	}
	return "N/A"
}

// LeaderboardTable renders entries as a fixed-width table inside a code block.
func LeaderboardTable(entries []models.LeaderboardEntry, title string) string {
	if title == "" {
		title = DefaultLeaderboardTitle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", title)
	b.WriteString("```")
	b.WriteString("Rank | Rating | Count | Song & Artist\n")
	b.WriteString("-----|--------|-------|----------------------------------------------\n")

	for i, e := range entries {
		titleArtist := Truncate(e.Title+" - "+strings.Join(e.Artists, ", "), 42, 45)
		fmt.Fprintf(&b, "%-4s | %-6s | %-5d | %s\n", RankLabel(i+1), ratingDisplay(e.Mean), e.Count, titleArtist)
	}

	b.WriteString("```")
	return b.String()
}

// UnratedTable renders the tracks userName has yet to rate.
func UnratedTable(tracks []models.UnratedTrack, userName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*🎵 Unrated Songs for %s 🎵*\n", userName)
	b.WriteString("```")
	b.WriteString("Title                          | Artists                  | Link\n")
	b.WriteString("-------------------------------|--------------------------|-----------------------------\n")

	for _, t := range tracks {
		title := Truncate(t.Title, 25, 28)
		artists := Truncate(strings.Join(t.Artists, ", "), 21, 24)
		fmt.Fprintf(&b, "%-30s | %-24s | %s\n", title, artists, SlackLink(t.MessageLink, linkLabel))
	}

	b.WriteString("```")
	return b.String()
}

// TrackView is the data shown by [TrackStats].
type TrackView struct {
	Stats     models.TrackStats
	Submitter string            // display name of the submitting user
	Posted    time.Time         // time of the canonical message, zero when unknown
	Names     map[string]string // rater id to display name
}

// TrackStats renders a track's details and its ratings.
func TrackStats(v TrackView) string {
	track := v.Stats.Track

	artists := "Unknown Artist"
	if names := track.ArtistNames(); len(names) > 0 {
		artists = strings.Join(names, ", ")
	}

	submitter := v.Submitter
	if submitter == "" {
		submitter = "Unknown User"
	}

	posted := "Unknown"
	if !v.Posted.IsZero() {
		posted = v.Posted.Format(messageTimeLayout)
	}

	average := "N/A"
	if v.Stats.Count > 0 {
		average = fmt.Sprintf("%.1f", v.Stats.Mean)
	}

	ratings := "No user ratings."
	if len(v.Stats.Ratings) > 0 {
		lines := make([]string, 0, len(v.Stats.Ratings))
		for _, r := range v.Stats.Ratings {
			name, ok := v.Names[r.User]
			if !ok || name == "" {
				name = r.User
			}
			lines = append(lines, fmt.Sprintf("%s: %s", name, shared.RatingToSymbol(r.Value)))
		}
		ratings = strings.Join(lines, "\n")
	}

	return Render(trackStatsTmpl, map[string]any{
		"title":          track.Title,
		"artists":        artists,
		"album":          track.Album,
		"user_name":      submitter,
		"message_time":   posted,
		"message_link":   SlackLink(track.MessageLink, linkLabel),
		"average_rating": average,
		"reaction_count": v.Stats.Count,
		"user_ratings":   ratings,
	})
}

// UserStats renders a user's overview with their top tracks and artists.
func UserStats(r models.UserReport) string {
	s := r.Stats
	return Render(userStatsTmpl, map[string]any{
		"user_name":            r.Name,
		"songs_submitted":      s.Submitted,
		"ratings_given":        s.RatingsGiven,
		"songs_rated":          s.Rated,
		"total_rateable_songs": s.Rateable,
		"rating_percentage":    s.PercentRated,
		"avg_rating_given":     s.AvgGiven,
		"avg_rating_received":  s.AvgReceived,
		"top_songs_section":    topTracksSection(r.TopTracks),
		"top_artists_section":  topArtistsSection(r.TopArtists),
	})
}

// ArtistStats renders an artist's totals and best rated tracks.
func ArtistStats(s models.ArtistStats) string {
	average := "N/A"
	if s.Count > 0 {
		average = fmt.Sprintf("%.1f", s.Mean)
	}

	return Render(artistStatsTmpl, map[string]any{
		"name":              s.Artist.Name,
		"songs":             s.Tracks,
		"reaction_count":    s.Count,
		"average_rating":    average,
		"top_songs_section": topTracksSection(s.TopTracks),
	})
}

func topTracksSection(tracks []models.TopTrack) string {
	var b strings.Builder
	b.WriteString("*🎵 Top Songs:*\n")
	if len(tracks) == 0 {
		b.WriteString("No rated songs yet")
		return b.String()
	}

	for i, t := range tracks {
		fmt.Fprintf(&b, "%d. %s - %s (%.1f⭐, %d ratings)\n", i+1, t.Title, strings.Join(t.Artists, ", "), t.Mean, t.Count)
	}
	return b.String()
}

func topArtistsSection(artists []models.TopArtist) string {
	var b strings.Builder
	b.WriteString("*🎤 Top Artists:*\n")
	if len(artists) == 0 {
		b.WriteString("No songs submitted yet")
		return b.String()
	}

	for i, a := range artists {
		fmt.Fprintf(&b, "%d. %s (%d songs, %.1f⭐ avg)\n", i+1, a.Name, a.Tracks, a.Mean)
	}
	return b.String()
}

// LeaderboardCSV converts entries to CSV with columns: Rank, ID, Title, Artists, Album, Rating, Count, Link
func LeaderboardCSV(entries []models.LeaderboardEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "ID", "Title", "Artists", "Album", "Rating", "Count", "Link"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, e := range entries {
		record := []string{
			strconv.Itoa(i + 1),
			e.ID,
			e.Title,
			strings.Join(e.Artists, "; "),
			e.Album,
			strconv.FormatFloat(e.Mean, 'f', 2, 64),
			strconv.Itoa(e.Count),
			e.MessageLink,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// LeaderboardJSON converts entries to indented JSON.
func LeaderboardJSON(entries []models.LeaderboardEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return shared.MarshalJSON(entries, true)
}
