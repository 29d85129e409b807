package ledger

import (
	"fmt"

	"github.com/attendance-ledger-api/internal/models"
)

// GuardOptions configures the duplicate key
type GuardOptions struct {
	// MatchSubmitter also requires the same SubmittedBy for a duplicate
	MatchSubmitter bool
}

// CheckDuplicate looks for a current record sharing the candidate's logical key
func CheckDuplicate(current []models.AttendanceRecord, candidate models.AttendanceRecord, opts GuardOptions) (bool, *models.AttendanceRecord) {
	want := KeyFor(candidate, opts.MatchSubmitter)
	for i := range current {
		if KeyFor(current[i], opts.MatchSubmitter) == want {
			existing := current[i]
			return true, &existing
		}
	}
	return false, nil
}

// Decision is the guard's verdict on a candidate write
type Decision struct {
	Accept               bool
	Action               models.Action
	Existing             *models.AttendanceRecord
	RequiresConfirmation bool
	Reason               string
}

// Guard decides whether a candidate may be appended to the ledger
type Guard struct {
	opts GuardOptions
}

// NewGuard creates a Guard
func NewGuard(opts GuardOptions) Guard {
	return Guard{opts: opts}
}

// Decide accepts a new key as a Create. A key that already has a current
// record is only accepted as an Overwrite when confirmOverwrite is set.
func (g Guard) Decide(current []models.AttendanceRecord, candidate models.AttendanceRecord, confirmOverwrite bool) Decision {
	dup, existing := CheckDuplicate(current, candidate, g.opts)
	if !dup {
		return Decision{Accept: true, Action: models.ActionCreate}
	}
	if !confirmOverwrite {
		return Decision{
			Accept:               false,
			Existing:             existing,
			RequiresConfirmation: true,
			Reason: fmt.Sprintf("attendance for %s at %s / %s was already recorded by %s; confirm overwrite to replace it",
				existing.Date, existing.Center, existing.Space, submitterOrUnknown(existing.SubmittedBy)),
		}
	}
	return Decision{
		Accept:   true,
		Action:   models.ActionOverwrite,
		Existing: existing,
		Reason:   "overwrites record " + existing.RecordID,
	}
}

func submitterOrUnknown(s string) string {
	if s == "" {
		return "an unknown submitter"
	}
	return s
}
