package tasks

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ratebot/internal/shared"
)

const microsPerSecond = 1_000_000

// NormalizeEventTS converts a Slack event timestamp ("1700000000.123456") to microseconds since the epoch.
//
// The fractional part is right-padded or truncated to six digits.
func NormalizeEventTS(ts string) (int64, error) {
	ts = strings.TrimSpace(ts)
	secPart, fracPart, _ := strings.Cut(ts, ".")

	if secPart == "" || !isDigits(secPart) || (fracPart != "" && !isDigits(fracPart)) {
		return 0, fmt.Errorf("%w: malformed event timestamp %q", shared.ErrInvalidInput, ts)
	}

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: event timestamp %q: %v", shared.ErrInvalidInput, ts, err)
	}

	if len(fracPart) > 6 {
		fracPart = fracPart[:6]
	}
	fracPart += strings.Repeat("0", 6-len(fracPart))

	micros, _ := strconv.ParseInt(fracPart, 10, 64)
	if sec > (math.MaxInt64-micros)/microsPerSecond {
		return 0, fmt.Errorf("%w: event timestamp %q out of range", shared.ErrInvalidInput, ts)
	}
	return sec*microsPerSecond + micros, nil
}

// LinkTimestamp extracts the message timestamp encoded in a Slack permalink, in microseconds since the epoch.
//
// Permalinks end in a segment such as "p1700000000123456", optionally followed by a query string.
func LinkTimestamp(link string) (int64, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return 0, fmt.Errorf("%w: malformed permalink %q: %v", shared.ErrInvalidInput, link, err)
	}

	segment := path.Base(u.Path)
	digits, ok := strings.CutPrefix(segment, "p")
	if !ok || digits == "" || !isDigits(digits) {
		return 0, fmt.Errorf("%w: permalink %q has no message timestamp", shared.ErrInvalidInput, link)
	}

	micros, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: permalink %q: %v", shared.ErrInvalidInput, link, err)
	}
	return micros, nil
}

// FormatEventTS renders microseconds since the epoch in Slack's "seconds.micros" form.
func FormatEventTS(micros int64) string {
	return fmt.Sprintf("%d.%06d", micros/microsPerSecond, micros%microsPerSecond)
}

// LinkEventTS returns the Slack event timestamp of the message a permalink points at.
func LinkEventTS(link string) (string, error) {
	micros, err := LinkTimestamp(link)
	if err != nil {
		return "", err
	}
	return FormatEventTS(micros), nil
}

// MessageTime returns the wall-clock time a permalinked message was posted.
func MessageTime(link string) (time.Time, error) {
	micros, err := LinkTimestamp(link)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(micros).UTC(), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
