package models

import (
	"time"
)

// Action records why a ledger row was written
type Action string

const (
	ActionCreate    Action = "Create"
	ActionOverwrite Action = "Overwrite"
	ActionRepair    Action = "Repair"
)

// DateLayout is the canonical business date format
const DateLayout = "2006-01-02"

// TimestampLayout is the write timestamp format stored in the ledger
const TimestampLayout = "2006-01-02 15:04:05.000"

// LedgerRow is the untyped, order-significant form of a ledger line as it
// sits in the spreadsheet. Cells may be shifted or malformed.
type LedgerRow struct {
	Timestamp   string `json:"timestamp"`
	Date        string `json:"date"`
	Year        string `json:"year"`
	Center      string `json:"center"`
	Space       string `json:"space"`
	Headcount   string `json:"headcount"`
	Coordinator string `json:"coordinator"`
	DayType     string `json:"day_type"`
	Notes       string `json:"notes"`
	SubmittedBy string `json:"submitted_by"`
	Action      string `json:"action"`
	RecordID    string `json:"record_id"`
}

// AttendanceRecord is one typed version of an attendance fact
type AttendanceRecord struct {
	RecordID       string    `json:"record_id"`
	Date           string    `json:"date"`
	Year           int       `json:"year"`
	Center         Center    `json:"center"`
	Space          string    `json:"space"`
	Headcount      int       `json:"headcount"`
	Coordinator    string    `json:"coordinator"`
	DayType        DayType   `json:"day_type"`
	Notes          string    `json:"notes,omitempty"`
	SubmittedBy    string    `json:"submitted_by"`
	WriteTimestamp time.Time `json:"write_timestamp"`
	TimestampValid bool      `json:"-"`
	Action         Action    `json:"action"`
}

// LogicalKey identifies the same real-world attendance fact across versions.
// SubmittedBy is only populated when the stricter key is configured.
type LogicalKey struct {
	Date        string
	Center      Center
	Space       string
	SubmittedBy string
}

// Key returns the (date, center, space) logical key of r
func (r AttendanceRecord) Key() LogicalKey {
	return LogicalKey{Date: r.Date, Center: r.Center, Space: r.Space}
}

// AttendanceFilter narrows the current view
type AttendanceFilter struct {
	Center      Center `form:"center"`
	Space       string `form:"space"`
	From        string `form:"from"` // inclusive, YYYY-MM-DD
	To          string `form:"to"`   // inclusive, YYYY-MM-DD
	SubmittedBy string `form:"submitted_by"`
}

// Matches reports whether r passes every non-empty filter field
func (f AttendanceFilter) Matches(r AttendanceRecord) bool {
	if f.Center != "" && r.Center != f.Center {
		return false
	}
	if f.Space != "" && r.Space != f.Space {
		return false
	}
	if f.SubmittedBy != "" && r.SubmittedBy != f.SubmittedBy {
		return false
	}
	// Canonical dates compare correctly as strings
	if f.From != "" && (r.Date == "" || r.Date < f.From) {
		return false
	}
	if f.To != "" && (r.Date == "" || r.Date > f.To) {
		return false
	}
	return true
}

// SubmitRequest is a candidate attendance submission
type SubmitRequest struct {
	Date             string   `json:"date" binding:"required"`
	Center           string   `json:"center" binding:"required"`
	Space            string   `json:"space"`
	Headcount        *int     `json:"headcount" binding:"required"`
	Coordinator      string   `json:"coordinator"`
	DayType          string   `json:"day_type"`
	Notes            string   `json:"notes"`
	ConfirmOverwrite bool     `json:"confirm_overwrite"`
	NewAttendees     []string `json:"new_attendees,omitempty"`
}

// SubmitResult reports the outcome of a submission
type SubmitResult struct {
	Accepted             bool              `json:"accepted"`
	Reason               string            `json:"reason,omitempty"`
	RequiresConfirmation bool              `json:"requires_confirmation,omitempty"`
	Record               *AttendanceRecord `json:"record,omitempty"`
	Existing             *AttendanceRecord `json:"existing,omitempty"`
	Errors               []ValidationError `json:"errors,omitempty"`
	AddedPeople          int               `json:"added_people,omitempty"`
}

// DailyTotal is the summed headcount of one center on one date
type DailyTotal struct {
	Date      string `json:"date"`
	Headcount int    `json:"headcount"`
	Records   int    `json:"records"`
}

// RepairReport summarizes a ledger repair pass
type RepairReport struct {
	Rows     int                `json:"rows"`
	Repaired int                `json:"repaired"`
	Appended int                `json:"appended"`
	Rules    map[string]int     `json:"rules,omitempty"`
	Records  []AttendanceRecord `json:"records,omitempty"`
}
