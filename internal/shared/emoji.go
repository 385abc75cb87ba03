package shared

import "strconv"

// MinRating and MaxRating bound the rating scale.
const (
	MinRating = 1
	MaxRating = 10
)

// ratingSymbols is the closed vocabulary of Slack reaction names that count as ratings.
var ratingSymbols = map[string]int{
	"one":        1,
	"two":        2,
	"three":      3,
	"four":       4,
	"five":       5,
	"six":        6,
	"seven":      7,
	"eight":      8,
	"nine":       9,
	"ten":        10,
	"keycap_ten": 10,
}

var ratingGlyphs = [...]string{
	1:  "1️⃣",
	2:  "2️⃣",
	3:  "3️⃣",
	4:  "4️⃣",
	5:  "5️⃣",
	6:  "6️⃣",
	7:  "7️⃣",
	8:  "8️⃣",
	9:  "9️⃣",
	10: "🔟",
}

// SymbolToRating decodes a reaction name into a rating.
// Names outside the vocabulary decode to 0.
func SymbolToRating(symbol string) int {
	return ratingSymbols[symbol]
}

// IsRatingSymbol reports whether symbol decodes to a rating.
func IsRatingSymbol(symbol string) bool {
	return SymbolToRating(symbol) != 0
}

// RatingToSymbol renders a rating as its keycap glyph.
// Values outside 1..10 render as their decimal string.
func RatingToSymbol(value int) string {
	if value < MinRating || value > MaxRating {
		return strconv.Itoa(value)
	}
	return ratingGlyphs[value]
}

// RatingSymbolName returns the reaction name for a rating, the inverse of [SymbolToRating].
func RatingSymbolName(value int) (string, bool) {
	if value < MinRating || value > MaxRating {
		return "", false
	}
	return ratingNames[value], true
}

var ratingNames = [...]string{
	1:  "one",
	2:  "two",
	3:  "three",
	4:  "four",
	5:  "five",
	6:  "six",
	7:  "seven",
	8:  "eight",
	9:  "nine",
	10: "keycap_ten",
}
