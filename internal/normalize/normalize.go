// Package normalize converts upstream locale-specific literals into
// canonical values. Upstream numbers use Brazilian separators
// ("1.234,56"), dates arrive as dd/mm/yyyy, yyyy-mm-dd or month/year
// references, and text fields carry accents and placeholder markers.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrValueAbsent marks an empty or placeholder value field.
	ErrValueAbsent = errors.New("value absent")

	// ErrMalformedValue marks a value literal that cannot be parsed.
	ErrMalformedValue = errors.New("malformed value")

	// ErrMalformedDate marks a date literal that cannot be parsed.
	ErrMalformedDate = errors.New("malformed date")
)

// groupedThousands matches dot-only literals where every dot separates
// a 3-digit group ("12.345.678"). Anything else with a lone dot is
// taken as a decimal point.
var groupedThousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// placeholders upstream uses for "no data".
var placeholders = map[string]bool{
	"":             true,
	"-":            true,
	"N/A":          true,
	"N/D":          true,
	"N.D":          true,
	"NAO DEFINIDO": true,
	"NÃO DEFINIDO": true,
}

// ParseNumber parses a numeric literal in Brazilian convention.
// When both separators are present the dot is the thousands separator
// and the comma the decimal one; a lone comma is decimal; a lone dot is
// taken as decimal since upstream drops thousands grouping on small
// values. Absent values and unparsable values fail with distinct
// errors so callers can count them separately.
func ParseNumber(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if placeholders[strings.ToUpper(t)] {
		return 0, fmt.Errorf("%w: %q", ErrValueAbsent, s)
	}

	switch {
	case strings.Contains(t, ",") && strings.Contains(t, "."):
		t = strings.ReplaceAll(t, ".", "")
		t = strings.Replace(t, ",", ".", 1)
	case strings.Contains(t, ","):
		t = strings.Replace(t, ",", ".", 1)
	case groupedThousands.MatchString(t):
		t = strings.ReplaceAll(t, ".", "")
	}

	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedValue, s)
	}
	return v, nil
}

// ParsePercent parses a percentage literal like "5,00%" into 5.0.
func ParsePercent(s string) (float64, error) {
	t := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return ParseNumber(t)
}

// ParseDate parses a date literal. Day-level formats dd/mm/yyyy and
// yyyy-mm-dd map to that day; a month/year reference mm/yyyy maps to
// the last calendar day of that month.
func ParseDate(s string) (time.Time, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return time.Time{}, fmt.Errorf("%w: empty literal", ErrMalformedDate)
	}

	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if d, err := time.Parse(layout, t); err == nil {
			return d, nil
		}
	}

	if d, err := time.Parse("01/2006", t); err == nil {
		return EndOfMonth(d), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// ParseReferenceDate parses the primary date literal, falling back to
// the secondary when the primary is absent or malformed.
func ParseReferenceDate(primary, fallback string) (time.Time, error) {
	d, err := ParseDate(primary)
	if err == nil {
		return d, nil
	}
	if strings.TrimSpace(fallback) != "" {
		return ParseDate(fallback)
	}
	return time.Time{}, err
}

// EndOfMonth returns the last calendar day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
}

// CutoffDate returns the last day of the last fully completed calendar
// month relative to now. Records referencing dates after this cutoff
// are provisional: the upstream figure may still change.
func CutoffDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, now.Location())
}

// Provisional reports whether a reference date falls after the cutoff.
func Provisional(ref, cutoff time.Time) bool {
	return ref.After(cutoff)
}

var stripAccents = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// CleanText strips diacritics and title-cases a free-text field such
// as a sector name. Placeholder markers collapse to "Outros".
func CleanText(s string) string {
	t := strings.TrimSpace(s)
	if placeholders[strings.ToUpper(t)] {
		return "Outros"
	}
	cleaned, _, err := transform.String(stripAccents, t)
	if err != nil {
		cleaned = t
	}
	return cases.Title(language.BrazilianPortuguese).String(cleaned)
}
