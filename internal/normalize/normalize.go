// Package normalize maps noisy spreadsheet text to the controlled
// vocabulary used by the rest of the system. Every function is total:
// unrecognized input degrades to a passthrough or default value.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/attendance-ledger-api/internal/models"
)

// alias maps every folded input containing all of Needles, or matching
// Pattern when set, to Value
type alias[T any] struct {
	Needles []string
	Pattern *regexp.Regexp
	Value   T
}

// Order matters: the first alias whose needles all occur wins.
var centerAliases = []alias[models.Center]{
	{Needles: []string{"belen"}, Value: models.CenterCalleBelen},
	{Needles: []string{"nudo"}, Value: models.CenterNudoANudo},
	{Needles: []string{"maranatha"}, Value: models.CenterCasaMaranatha},
	{Needles: []string{"marana"}, Value: models.CenterCasaMaranatha},
}

// A negation only counts as a whole word ahead of the verb, so "asiste
// normalmente" is not a refusal. Explicit frequencies are tried first.
var frequencyAliases = []alias[models.Frequency]{
	{Needles: []string{"diar"}, Value: models.FrequencyDaily},
	{Needles: []string{"daily"}, Value: models.FrequencyDaily},
	{Needles: []string{"seman"}, Value: models.FrequencyWeekly},
	{Needles: []string{"week"}, Value: models.FrequencyWeekly},
	{Needles: []string{"mens"}, Value: models.FrequencyMonthly},
	{Needles: []string{"month"}, Value: models.FrequencyMonthly},
	{Pattern: regexp.MustCompile(`\bno\b.*asist`), Value: models.FrequencyDoesNotAttend},
	{Pattern: regexp.MustCompile(`\bnot\b.*attend`), Value: models.FrequencyDoesNotAttend},
}

var dayTypeAliases = []alias[models.DayType]{
	{Needles: []string{"cerr"}, Value: models.DayTypeClosed},
	{Needles: []string{"clos"}, Value: models.DayTypeClosed},
	{Needles: []string{"espec"}, Value: models.DayTypeSpecial},
	{Needles: []string{"special"}, Value: models.DayTypeSpecial},
}

// CleanCell collapses runs of whitespace (including newlines and tabs) to a
// single space and trims the result.
func CleanCell(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))

	space := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Fold returns the matching form of raw: cleaned, lower-cased, accents removed
func Fold(raw string) string {
	cleaned := CleanCell(raw)
	if cleaned == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, cleaned)
	if err != nil {
		folded = cleaned
	}
	return strings.ToLower(folded)
}

// NormalizeCenter returns the canonical center for raw, or the cleaned raw
// text when no alias matches.
func NormalizeCenter(raw string) models.Center {
	if c, ok := match(centerAliases, Fold(raw)); ok {
		return c
	}
	return models.Center(CleanCell(raw))
}

// NormalizeFrequency returns the canonical frequency for raw, or
// FrequencyUnset when no alias matches.
func NormalizeFrequency(raw string) models.Frequency {
	if f, ok := match(frequencyAliases, Fold(raw)); ok {
		return f
	}
	return models.FrequencyUnset
}

// NormalizeDayType returns the canonical day type for raw. Anything
// unrecognized, including empty input, is a regular day.
func NormalizeDayType(raw string) models.DayType {
	if d, ok := match(dayTypeAliases, Fold(raw)); ok {
		return d
	}
	return models.DayTypeRegular
}

func match[T any](aliases []alias[T], folded string) (T, bool) {
	var zero T
	if folded == "" {
		return zero, false
	}
	for _, a := range aliases {
		if a.Pattern != nil {
			if a.Pattern.MatchString(folded) {
				return a.Value, true
			}
			continue
		}
		if containsAll(folded, a.Needles) {
			return a.Value, true
		}
	}
	return zero, false
}

func containsAll(s string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(s, n) {
			return false
		}
	}
	return true
}
