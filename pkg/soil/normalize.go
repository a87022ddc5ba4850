package soil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var upper = cases.Upper(language.Spanish)

// NormalizeName folds a crop or territory name into a comparison key:
// accents stripped, upper-cased, inner whitespace collapsed. "café",
// "Cafe " and "CAFÉ" all become "CAFE".
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(upper.String(folded)), " ")
}
