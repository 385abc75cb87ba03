package shared

import (
	"regexp"
	"strings"
)

// TrackIDLength is the length of a Spotify catalog identifier.
const TrackIDLength = 22

var (
	trackLinkPattern = regexp.MustCompile(`https://open\.spotify\.com/track/([a-zA-Z0-9]+)`)
	catalogIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)
	mentionPattern   = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|([^>]*))?>`)
)

// ExtractTrackID returns the identifier of the first Spotify track link found in text.
//
// The captured segment is not length checked; use [IsValidID] for that.
func ExtractTrackID(text string) (string, bool) {
	m := trackLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsValidID reports whether candidate has the shape of a catalog identifier.
//
// Tracks, albums and artists share the format, so a true result does not prove the id names a track.
func IsValidID(candidate string) bool {
	return catalogIDPattern.MatchString(candidate)
}

// ExtractOrValidateTrackID accepts either text containing a track link or a bare identifier.
func ExtractOrValidateTrackID(input string) (string, bool) {
	if id, ok := ExtractTrackID(input); ok {
		return id, true
	}
	input = strings.TrimSpace(input)
	if IsValidID(input) {
		return input, true
	}
	return "", false
}

// TrackURL builds the public link for a track identifier.
func TrackURL(id string) string {
	return "https://open.spotify.com/track/" + id
}

// UserMention is a Slack user reference parsed from command text.
type UserMention struct {
	ID   string
	Name string
}

// ParseUserMention recovers the user id (and display name when present) from a
// Slack mention such as <@U123ABC|name> or <@U123ABC>.
func ParseUserMention(text string) (UserMention, bool) {
	m := mentionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return UserMention{}, false
	}
	return UserMention{ID: m[1], Name: m[2]}, true
}
