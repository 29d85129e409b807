package models

import (
	"time"
)

// ImportStatus represents the status of a roster import run
type ImportStatus string

const (
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportRun is the audit record of one roster import
type ImportRun struct {
	ID             string       `json:"import_id"`
	Status         ImportStatus `json:"status"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
	SubmittedBy    string       `json:"submitted_by"`
	LinesTotal     int          `json:"lines_total"`
	Parsed         int          `json:"parsed"`
	Skipped        int          `json:"skipped"`
	Duplicates     int          `json:"duplicates"`
	Added          int          `json:"added"`
	Updated        int          `json:"updated"`
	FinalTotal     int          `json:"final_total"`
	ModeUsed       string       `json:"mode_used,omitempty"`
	DurationMs     int64        `json:"duration_ms"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ValidationError represents a single rejected line or field
type ValidationError struct {
	Line    int         `json:"line,omitempty"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ImportResult is returned to the caller of a roster import
type ImportResult struct {
	ImportRun
	Errors      []ValidationError `json:"errors,omitempty"`
	ErrorReport string            `json:"error_report_url,omitempty"`
}
