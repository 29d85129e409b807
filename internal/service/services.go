package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/policy"
	"github.com/attendance-ledger-api/internal/repository"
	"github.com/attendance-ledger-api/internal/validation"
)

// ErrNoSubmitter is returned when a write is attempted without a session submitter
var ErrNoSubmitter = errors.New("session has no submitter")

// ErrPersonNotFound is returned when a roster entry does not exist
var ErrPersonNotFound = errors.New("person not found")

// RosterService defines the interface for roster operations
type RosterService interface {
	ImportRoster(ctx context.Context, sess models.Session, data []byte, idempotencyKey string) (*models.ImportResult, error)
	GetImport(ctx context.Context, id string) (*models.ImportRun, error)
	GetImportByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error)
	GetImportErrors(ctx context.Context, id string) ([]models.ValidationError, error)
	AddPerson(ctx context.Context, sess models.Session, req *models.PersonRequest) (*models.Person, []models.ValidationError, error)
	ListPeople(ctx context.Context, center models.Center, includeInactive bool) ([]models.Person, error)
	SetPersonActive(ctx context.Context, sess models.Session, req *models.PersonStatusRequest) (*models.Person, error)
}

// AttendanceService defines the interface for ledger operations
type AttendanceService interface {
	SubmitAttendance(ctx context.Context, sess models.Session, req *models.SubmitRequest) (*models.SubmitResult, error)
	GetCurrentAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	DailyTotals(ctx context.Context, center models.Center, days int) ([]models.DailyTotal, error)
	RepairLedger(ctx context.Context, sess models.Session, apply bool) (*models.RepairReport, error)
	CheckAccess(center models.Center, space, submitter string) policy.Decision
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamAttendance(ctx context.Context, w http.ResponseWriter, filter models.AttendanceFilter, format string) error
	StreamDailyTotals(ctx context.Context, w http.ResponseWriter, center models.Center, days int, format string) error
	StreamRoster(ctx context.Context, w http.ResponseWriter, center models.Center, format string) error
}

// Services holds all service interfaces
type Services struct {
	Roster     RosterService
	Attendance AttendanceService
	Export     ExportService
	Policy     *policy.Table
}

// Option customizes NewServices
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock used for write timestamps and report windows
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, table *policy.Table, cfg *config.Config, log zerolog.Logger, opts ...Option) *Services {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	validator := validation.NewValidator(table)
	rosterSvc := newRosterService(repos, validator, cfg, log, o.now)
	attendanceSvc := newAttendanceService(repos, table, validator, rosterSvc, cfg, log, o.now)
	exportSvc := newExportService(attendanceSvc, rosterSvc, log)

	return &Services{
		Roster:     rosterSvc,
		Attendance: attendanceSvc,
		Export:     exportSvc,
		Policy:     table,
	}
}
