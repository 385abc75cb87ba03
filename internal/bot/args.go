package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/ratebot/internal/shared"
)

// Options are the parsed flags of a slash command.
//
// A flag followed by words takes them as its value up to the next flag;
// a flag with no value is recorded as present with an empty value.
type Options struct {
	Public bool
	Count  int // 0 when --count was not given
	User   string
	Song   string
	Artist string
	Extra  map[string]string // unrecognised flags

	seen map[string]bool
}

// Has reports whether flag appeared in the command text, with or without a value.
func (o Options) Has(flag string) bool {
	return o.seen[flag]
}

// ParseArgs parses "--flag value" and bare "--flag" tokens.
//
// A --count that is not a positive integer returns [shared.ErrInvalidFlag]; the other
// fields are still filled in.
func ParseArgs(text string) (Options, error) {
	opts := Options{Extra: map[string]string{}, seen: map[string]bool{}}

	var (
		key    string
		values []string
		err    error
	)

	flush := func() {
		if key == "" {
			return
		}
		value := strings.Join(values, " ")
		opts.seen[key] = true

		switch key {
		case "public":
			opts.Public = true
		case "count":
			n, convErr := strconv.Atoi(value)
			if convErr != nil || n <= 0 {
				err = fmt.Errorf("%w: count must be a positive integer, got %q", shared.ErrInvalidFlag, value)
				break
			}
			opts.Count = n
		case "user":
			opts.User = value
		case "song":
			opts.Song = value
		case "artist":
			opts.Artist = value
		default:
			opts.Extra[key] = value
		}
		key, values = "", nil
	}

	for _, part := range strings.Fields(text) {
		if name, ok := strings.CutPrefix(part, "--"); ok && name != "" {
			flush()
			key = strings.ToLower(name)
			continue
		}
		if key != "" {
			values = append(values, part)
		}
	}
	flush()

	return opts, err
}
