// Package ledger computes the current view of the append-only attendance
// ledger and guards new submissions against duplicating it.
package ledger

import (
	"sort"
	"time"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/repair"
)

// Options configures how records are grouped
type Options struct {
	// KeyIncludesSubmitter extends the logical key with SubmittedBy. The
	// current view then holds one record per submitter for a date, center
	// and space.
	KeyIncludesSubmitter bool
	// Location is used for timestamps written without an offset
	Location *time.Location
}

// Stats describes one reconciliation pass
type Stats struct {
	Rows                int            `json:"rows"`
	Keys                int            `json:"keys"`
	Repaired            int            `json:"repaired"`
	MalformedTimestamps int            `json:"malformed_timestamps"`
	Rules               map[string]int `json:"rules,omitempty"`
	// RepairedKeys maps each key whose winning row needed repair to the rule used
	RepairedKeys map[models.LogicalKey]string `json:"-"`
}

// Reconciler collapses ledger history into one current record per key
type Reconciler struct {
	repairer *repair.Repairer
	opts     Options
}

// NewReconciler creates a Reconciler that repairs rows against vocab
func NewReconciler(vocab repair.Vocabulary, opts Options) *Reconciler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Reconciler{repairer: repair.New(vocab), opts: opts}
}

// CurrentView returns the latest record for every logical key in rows
func CurrentView(rows []models.LedgerRow, vocab repair.Vocabulary) []models.AttendanceRecord {
	records, _ := NewReconciler(vocab, Options{}).Reconcile(rows)
	return records
}

// CurrentView returns the latest record for every logical key in rows
func (r *Reconciler) CurrentView(rows []models.LedgerRow) []models.AttendanceRecord {
	records, _ := r.Reconcile(rows)
	return records
}

// Reconcile repairs and decodes every row, then keeps, per logical key, the
// record with the greatest write timestamp. Unparseable timestamps rank
// below every parseable one; remaining ties go to the later row. The input
// order is otherwise irrelevant. Output is sorted by date, center, space.
func (r *Reconciler) Reconcile(rows []models.LedgerRow) ([]models.AttendanceRecord, Stats) {
	stats := Stats{
		Rows:         len(rows),
		Rules:        make(map[string]int),
		RepairedKeys: make(map[models.LogicalKey]string),
	}

	type candidate struct {
		record models.AttendanceRecord
		index  int
		rule   string
	}
	best := make(map[models.LogicalKey]candidate, len(rows))

	for i, raw := range rows {
		fixed, outcome := r.repairer.Repair(raw)
		if outcome.Repaired {
			stats.Repaired++
			stats.Rules[outcome.Rule]++
		}

		rec := Decode(fixed, r.opts.Location)
		if !rec.TimestampValid {
			stats.MalformedTimestamps++
		}

		key := KeyFor(rec, r.opts.KeyIncludesSubmitter)
		current, seen := best[key]
		if !seen || newer(rec, i, current.record, current.index) {
			best[key] = candidate{record: rec, index: i, rule: outcome.Rule}
		}
	}

	out := make([]models.AttendanceRecord, 0, len(best))
	for key, c := range best {
		if c.rule != "" {
			stats.RepairedKeys[key] = c.rule
		}
		out = append(out, c.record)
	}
	SortRecords(out)

	stats.Keys = len(out)
	return out, stats
}

// KeyFor returns the logical key of rec, optionally including the submitter
func KeyFor(rec models.AttendanceRecord, includeSubmitter bool) models.LogicalKey {
	key := rec.Key()
	if includeSubmitter {
		key.SubmittedBy = rec.SubmittedBy
	}
	return key
}

// newer reports whether a (at input position ai) supersedes b (at bi)
func newer(a models.AttendanceRecord, ai int, b models.AttendanceRecord, bi int) bool {
	if a.TimestampValid != b.TimestampValid {
		return a.TimestampValid
	}
	if a.TimestampValid && !a.WriteTimestamp.Equal(b.WriteTimestamp) {
		return a.WriteTimestamp.After(b.WriteTimestamp)
	}
	return ai > bi
}

// SortRecords orders records by date, center, space and submitter
func SortRecords(records []models.AttendanceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Center != b.Center {
			return a.Center < b.Center
		}
		if a.Space != b.Space {
			return a.Space < b.Space
		}
		return a.SubmittedBy < b.SubmittedBy
	})
}
