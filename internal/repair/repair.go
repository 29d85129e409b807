// Package repair detects ledger rows whose cells were shifted by a manual
// spreadsheet edit and rebuilds the intended field assignment.
//
// Detection is an ordered table of named rules. Each rule pairs a predicate
// with a repair action; the first rule whose predicate holds is applied and
// the rest are ignored. Every row, repaired or not, is then canonicalized.
// Repairing an already repaired row is a no-op.
package repair

import (
	"strconv"
	"strings"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
)

// Rule names
const (
	RuleCenterInYear            = "center-in-year-column"
	RuleCoordinatorInHeadcount  = "coordinator-in-headcount-column"
	RuleCoordinatorInHeadcountT = "coordinator-in-headcount-column-tail"
)

// Rule pairs a shift detector with the action that undoes the shift
type Rule struct {
	Name    string
	Matches func(row models.LedgerRow, vocab Vocabulary) bool
	Apply   func(row models.LedgerRow) models.LedgerRow
}

// Outcome reports which rule, if any, repaired a row
type Outcome struct {
	Repaired bool
	Rule     string
}

// Vocabulary holds the known values the detectors compare cells against
type Vocabulary struct {
	coordinators map[string]bool
}

// NewVocabulary builds a vocabulary from the known coordinator names
func NewVocabulary(coordinators []string) Vocabulary {
	v := Vocabulary{coordinators: make(map[string]bool, len(coordinators))}
	for _, c := range coordinators {
		if c = normalize.CleanCell(c); c != "" {
			v.coordinators[c] = true
		}
	}
	return v
}

// IsCoordinator reports whether s is exactly a known coordinator name
func (v Vocabulary) IsCoordinator(s string) bool {
	return v.coordinators[normalize.CleanCell(s)]
}

// IsCenter reports whether s names a known center
func (v Vocabulary) IsCenter(s string) bool {
	return normalize.NormalizeCenter(s).Known()
}

// rules is tried in order and the first match wins. The two shiftFromDate
// rules only fire when year is not a number: a row whose date and year are
// intact lost a cell further right, and shifting it from date would throw
// away a good date. Those rows fall through to the space-level shift.
var rules = []Rule{
	{
		// The date cell was deleted: the year sits in date and the center in year.
		Name: RuleCenterInYear,
		Matches: func(row models.LedgerRow, vocab Vocabulary) bool {
			return !isInt(row.Year) && isInt(row.Date) &&
				!vocab.IsCenter(row.Center) && vocab.IsCenter(row.Year)
		},
		Apply: shiftFromDate,
	},
	{
		// Same deletion, detected from the other end of the row.
		Name: RuleCoordinatorInHeadcount,
		Matches: func(row models.LedgerRow, vocab Vocabulary) bool {
			return coordinatorInHeadcount(row, vocab) && !isInt(row.Year)
		},
		Apply: shiftFromDate,
	},
	{
		// Date, year and center are intact; a cell between center and
		// coordinator was deleted.
		Name: RuleCoordinatorInHeadcountT,
		Matches: func(row models.LedgerRow, vocab Vocabulary) bool {
			return coordinatorInHeadcount(row, vocab)
		},
		Apply: shiftFromSpace,
	},
}

// Rules returns a copy of the ordered rule table
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Repairer applies the rule table against a fixed vocabulary
type Repairer struct {
	vocab Vocabulary
	rules []Rule
}

// New creates a Repairer using the default rule table
func New(vocab Vocabulary) *Repairer {
	return &Repairer{vocab: vocab, rules: rules}
}

// Repair detects and undoes a column shift, then canonicalizes the row.
// It never fails; at worst the row comes back only canonicalized.
func (r *Repairer) Repair(row models.LedgerRow) (models.LedgerRow, Outcome) {
	var outcome Outcome
	for _, rule := range r.rules {
		if rule.Matches(row, r.vocab) {
			row = rule.Apply(row)
			row.Action = string(models.ActionRepair)
			outcome = Outcome{Repaired: true, Rule: rule.Name}
			break
		}
	}
	return canonicalize(row), outcome
}

// DetectAndRepair is Repair without the outcome
func DetectAndRepair(row models.LedgerRow, vocab Vocabulary) models.LedgerRow {
	repaired, _ := New(vocab).Repair(row)
	return repaired
}

func coordinatorInHeadcount(row models.LedgerRow, vocab Vocabulary) bool {
	return !isInt(row.Headcount) &&
		normalize.CleanCell(row.Coordinator) == "" &&
		vocab.IsCoordinator(row.Headcount)
}

// shiftFromDate moves every cell from year to coordinator one column right,
// recovering the lost date from whichever cell still holds one.
func shiftFromDate(row models.LedgerRow) models.LedgerRow {
	out := row
	out.Date = ""
	for _, candidate := range []string{row.Date, row.Timestamp} {
		if d, ok := normalize.ParseDate(candidate); ok {
			out.Date = d
			break
		}
	}
	out.Year = ""
	if isInt(row.Date) {
		out.Year = normalize.CleanCell(row.Date)
	}
	out.Center = row.Year
	out.Space = row.Center
	out.Headcount = row.Space
	out.Coordinator = row.Headcount
	if normalize.CleanCell(row.Coordinator) != "" {
		out.Notes = row.Coordinator
	}
	return out
}

// shiftFromSpace handles a deletion after the center column. A numeric space
// is the displaced headcount; otherwise the headcount itself was lost.
func shiftFromSpace(row models.LedgerRow) models.LedgerRow {
	out := row
	if isInt(row.Space) {
		out.Headcount = row.Space
		out.Space = ""
	} else {
		out.Headcount = ""
	}
	out.Coordinator = row.Headcount
	if normalize.CleanCell(row.Coordinator) != "" {
		out.Notes = row.Coordinator
	}
	return out
}

// canonicalize applies the uniform post-processing every row goes through
func canonicalize(row models.LedgerRow) models.LedgerRow {
	row.Date, _ = normalize.ParseDate(row.Date)

	row.Year = normalize.CleanCell(row.Year)
	if !isInt(row.Year) {
		row.Year = ""
		if row.Date != "" {
			row.Year = row.Date[:4]
		}
	}

	row.Center = string(normalize.NormalizeCenter(row.Center))

	row.Space = normalize.CleanCell(row.Space)
	if row.Space == "" {
		row.Space = models.GeneralSpace
	}

	row.Headcount = strconv.Itoa(Headcount(row.Headcount))
	row.Coordinator = normalize.CleanCell(row.Coordinator)
	row.SubmittedBy = normalize.CleanCell(row.SubmittedBy)
	row.Notes = strings.TrimSpace(row.Notes)
	row.Timestamp = strings.TrimSpace(row.Timestamp)
	return row
}

// Headcount coerces a cell to a non-negative integer, defaulting to 0
func Headcount(raw string) int {
	n, err := strconv.Atoi(normalize.CleanCell(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func isInt(s string) bool {
	_, err := strconv.Atoi(normalize.CleanCell(s))
	return err == nil
}
