// Package roster turns pasted or exported roster text into clean Person rows.
package roster

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
)

// Split modes, in the order they are tried
const (
	ModeTab       = "tab"
	ModeSemicolon = "semicolon"
	ModeComma     = "comma"
	ModeSpaces    = "spaces"
)

var (
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
	spaceRunsRe = regexp.MustCompile(` {2,}`)
	headerWords = []string{"nombre", "name", "frecuencia", "frequency"}
	lineBreaks  = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// SkippedLine describes a line that produced no row
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

// Meta summarizes a parse. LinesTotal = Parsed + Skipped + Duplicates.
type Meta struct {
	LinesTotal   int            `json:"lines_total"`
	Parsed       int            `json:"parsed"`
	Skipped      int            `json:"skipped"`
	Duplicates   int            `json:"duplicates"`
	HeaderFound  bool           `json:"header_found"`
	ModeUsed     string         `json:"mode_used,omitempty"`
	ModeCounts   map[string]int `json:"mode_counts,omitempty"`
	SkippedLines []SkippedLine  `json:"skipped_lines,omitempty"`
}

type splitter struct {
	mode  string
	split func(line string) ([]string, bool)
}

var splitters = []splitter{
	{ModeTab, splitOn('\t')},
	{ModeSemicolon, splitOn(';')},
	{ModeComma, splitComma},
	{ModeSpaces, splitSpaceRuns},
}

// ParseBytes decodes b and parses it. Input that is not valid UTF-8 is read
// as Windows-1252, the usual encoding of spreadsheet exports on the
// machines the roster comes from.
func ParseBytes(b []byte) ([]models.Person, Meta) {
	text, err := Decode(b)
	if err != nil {
		return nil, Meta{}
	}
	return ParseText(text)
}

// Decode returns b as a string, falling back to Windows-1252 when b is not
// valid UTF-8.
func Decode(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode roster text: %w", err)
	}
	return string(decoded), nil
}

// ParseText parses a roster blob of unknown delimiter into normalized,
// de-duplicated people. Lines that cannot be decomposed are skipped and
// reported in Meta; they never fail the batch.
func ParseText(text string) ([]models.Person, Meta) {
	meta := Meta{ModeCounts: make(map[string]int)}
	if strings.TrimSpace(text) == "" {
		meta.ModeCounts = nil
		return nil, meta
	}

	var people []models.Person
	seen := make(map[models.PersonKey]bool)
	firstContent := true

	for i, line := range strings.Split(lineBreaks.Replace(text), "\n") {
		lineNum := i + 1
		if strings.TrimSpace(line) == "" {
			continue
		}
		if firstContent {
			firstContent = false
			if isHeader(line) {
				meta.HeaderFound = true
				continue
			}
		}
		meta.LinesTotal++

		fields, mode, ok := splitLine(line)
		if !ok {
			meta.skip(lineNum, "line does not split into name, frequency and center", line)
			continue
		}

		person := models.Person{
			Name:      normalize.CleanCell(fields[0]),
			Frequency: normalize.NormalizeFrequency(fields[1]),
			Center:    normalize.NormalizeCenter(fields[2]),
			Active:    true,
		}
		if person.Name == "" {
			meta.skip(lineNum, "empty name", line)
			continue
		}
		if seen[person.Key()] {
			meta.Duplicates++
			continue
		}
		seen[person.Key()] = true

		meta.ModeCounts[mode]++
		people = append(people, person)
	}

	meta.Parsed = len(people)
	meta.ModeUsed = dominantMode(meta.ModeCounts)
	return people, meta
}

func (m *Meta) skip(line int, reason, text string) {
	m.Skipped++
	m.SkippedLines = append(m.SkippedLines, SkippedLine{
		Line:   line,
		Reason: reason,
		Text:   normalize.CleanCell(text),
	})
}

// splitLine tries every splitter in order and returns the first result with
// three non-empty fields.
func splitLine(line string) ([]string, string, bool) {
	for _, s := range splitters {
		fields, ok := s.split(line)
		if !ok {
			continue
		}
		fields = trimFields(fields)
		if len(fields) >= 3 && fields[0] != "" && fields[1] != "" && fields[2] != "" {
			return fields, s.mode, true
		}
	}
	return nil, "", false
}

func splitOn(sep rune) func(string) ([]string, bool) {
	return func(line string) ([]string, bool) {
		if strings.Count(line, string(sep)) < 2 {
			return nil, false
		}
		return strings.Split(line, string(sep)), true
	}
}

// splitComma tokenizes with a quote-aware CSV reader. More than three fields
// means the name carried unescaped commas: the last two fields are frequency
// and center and everything before them is the name.
func splitComma(line string) ([]string, bool) {
	if !strings.Contains(line, ",") {
		return nil, false
	}
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	record, err := reader.Read()
	if err != nil {
		return nil, false
	}
	record = trimFields(record)
	if len(record) < 3 {
		return nil, false
	}
	if len(record) == 3 {
		return record, true
	}

	n := len(record)
	name := strings.Join(nonEmpty(record[:n-2]), ", ")
	return []string{name, record[n-2], record[n-1]}, true
}

func splitSpaceRuns(line string) ([]string, bool) {
	fields := spaceRunsRe.Split(strings.TrimSpace(line), -1)
	if len(fields) < 3 {
		return nil, false
	}
	return fields, true
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range headerWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func trimFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.Trim(strings.TrimSpace(f), `"`)
	}
	return out
}

func nonEmpty(fields []string) []string {
	out := fields[:0:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// dominantMode returns the most used mode; ties go to the earlier splitter.
func dominantMode(counts map[string]int) string {
	best, bestCount := "", 0
	for _, s := range splitters {
		if counts[s.mode] > bestCount {
			best, bestCount = s.mode, counts[s.mode]
		}
	}
	return best
}
