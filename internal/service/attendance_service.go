package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/ledger"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
	"github.com/attendance-ledger-api/internal/policy"
	"github.com/attendance-ledger-api/internal/repair"
	"github.com/attendance-ledger-api/internal/repository"
	"github.com/attendance-ledger-api/internal/validation"
)

// attendanceService is the concrete implementation of AttendanceService
type attendanceService struct {
	repos      *repository.Repositories
	table      *policy.Table
	validator  *validation.Validator
	roster     *rosterService
	reconciler *ledger.Reconciler
	guard      ledger.Guard
	loc        *time.Location
	windowDays int
	strictKey  bool
	log        zerolog.Logger
	now        func() time.Time
}

// newAttendanceService creates a new AttendanceService
func newAttendanceService(repos *repository.Repositories, table *policy.Table, validator *validation.Validator,
	roster *rosterService, cfg *config.Config, log zerolog.Logger, now func() time.Time) *attendanceService {
	loc := cfg.Ledger.Location()
	strict := cfg.Ledger.KeyIncludesSubmitter
	return &attendanceService{
		repos:     repos,
		table:     table,
		validator: validator,
		roster:    roster,
		reconciler: ledger.NewReconciler(
			repair.NewVocabulary(table.Coordinators()),
			ledger.Options{KeyIncludesSubmitter: strict, Location: loc},
		),
		guard:      ledger.NewGuard(ledger.GuardOptions{MatchSubmitter: strict}),
		loc:        loc,
		windowDays: cfg.Ledger.ReportWindowDays,
		strictKey:  strict,
		log:        log.With().Str("service", "attendance").Logger(),
		now:        now,
	}
}

// SubmitAttendance validates, authorizes and duplicate-checks a submission
// against a fresh read of the ledger, then appends it. Rejections come back
// as a SubmitResult; only storage failures are errors.
func (s *attendanceService) SubmitAttendance(ctx context.Context, sess models.Session, req *models.SubmitRequest) (*models.SubmitResult, error) {
	if sess.Anonymous() {
		return nil, ErrNoSubmitter
	}

	if errs := s.validator.ValidateAttendance(req); len(errs) > 0 {
		return &models.SubmitResult{Reason: "validation failed", Errors: errs}, nil
	}

	center := normalize.NormalizeCenter(req.Center)
	space := normalize.CleanCell(req.Space)
	if !s.table.Subdivided(center) {
		space = models.GeneralSpace
	}

	if sess.Center != "" && sess.Center != center {
		return &models.SubmitResult{
			Reason: fmt.Sprintf("session is bound to %s", sess.Center),
		}, nil
	}

	if decision := s.table.CanSubmit(center, space, sess.Submitter); !decision.Allowed {
		s.log.Warn().
			Str("center", string(center)).
			Str("space", space).
			Str("submitter", sess.Submitter).
			Str("reason", decision.Reason).
			Msg("Submission not authorized")
		return &models.SubmitResult{Reason: decision.Reason}, nil
	}

	rows, err := s.repos.Ledger.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	current := s.reconciler.CurrentView(rows)

	date, _ := normalize.ParseDate(req.Date)
	candidate := models.AttendanceRecord{
		Date:           date,
		Year:           yearOf(date),
		Center:         center,
		Space:          space,
		Headcount:      *req.Headcount,
		Coordinator:    normalize.CleanCell(req.Coordinator),
		DayType:        normalize.NormalizeDayType(req.DayType),
		Notes:          strings.TrimSpace(req.Notes),
		SubmittedBy:    sess.Submitter,
		WriteTimestamp: s.now().In(s.loc).Truncate(time.Millisecond),
		TimestampValid: true,
	}
	if candidate.Coordinator == "" {
		candidate.Coordinator = sess.Submitter
	}

	decision := s.guard.Decide(current, candidate, req.ConfirmOverwrite)
	if !decision.Accept {
		return &models.SubmitResult{
			Reason:               decision.Reason,
			RequiresConfirmation: decision.RequiresConfirmation,
			Existing:             decision.Existing,
		}, nil
	}

	candidate.Action = decision.Action
	if decision.Existing != nil {
		candidate.RecordID = decision.Existing.RecordID
	} else {
		candidate.RecordID = uuid.New().String()
	}

	if err := s.repos.Ledger.Append(ctx, ledger.Encode(candidate, s.loc)); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("record_id", candidate.RecordID).
		Str("date", candidate.Date).
		Str("center", string(candidate.Center)).
		Str("space", candidate.Space).
		Int("headcount", candidate.Headcount).
		Str("action", string(candidate.Action)).
		Str("submitter", sess.Submitter).
		Msg("Attendance recorded")

	result := &models.SubmitResult{
		Accepted: true,
		Reason:   decision.Reason,
		Record:   &candidate,
		Existing: decision.Existing,
	}

	// The record is already in the ledger; a roster failure must not undo it
	added, err := s.roster.addAttendees(ctx, center, req.NewAttendees)
	if err != nil {
		s.log.Error().Err(err).Str("record_id", candidate.RecordID).Msg("Failed to add new attendees")
	}
	result.AddedPeople = added

	return result, nil
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(date[:4])
	return y
}

// GetCurrentAttendance returns the current view narrowed by filter
func (s *attendanceService) GetCurrentAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	rows, err := s.repos.Ledger.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	filter = normalizeFilter(filter)
	current := s.reconciler.CurrentView(rows)
	out := make([]models.AttendanceRecord, 0, len(current))
	for _, rec := range current {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// normalizeFilter lets callers filter with the same spellings they submit with
func normalizeFilter(f models.AttendanceFilter) models.AttendanceFilter {
	if f.Center != "" {
		f.Center = normalize.NormalizeCenter(string(f.Center))
	}
	if d, ok := normalize.ParseDate(f.From); ok {
		f.From = d
	}
	if d, ok := normalize.ParseDate(f.To); ok {
		f.To = d
	}
	f.Space = normalize.CleanCell(f.Space)
	return f
}

// DailyTotals sums current headcounts per date over the last days days,
// today included. days <= 0 uses the configured window.
func (s *attendanceService) DailyTotals(ctx context.Context, center models.Center, days int) ([]models.DailyTotal, error) {
	if days <= 0 {
		days = s.windowDays
	}
	today := s.now().In(s.loc)
	filter := models.AttendanceFilter{
		Center: center,
		From:   today.AddDate(0, 0, -(days - 1)).Format(models.DateLayout),
		To:     today.Format(models.DateLayout),
	}

	records, err := s.GetCurrentAttendance(ctx, filter)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.DailyTotal)
	for _, rec := range records {
		t, ok := byDate[rec.Date]
		if !ok {
			t = &models.DailyTotal{Date: rec.Date}
			byDate[rec.Date] = t
		}
		t.Headcount += rec.Headcount
		t.Records++
	}

	out := make([]models.DailyTotal, 0, len(byDate))
	for _, t := range byDate {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// RepairLedger reports rows whose cells were shifted. With apply it appends
// a repaired version for every key whose current record needed repair, so
// the current view no longer depends on the heuristic. History is untouched.
func (s *attendanceService) RepairLedger(ctx context.Context, sess models.Session, apply bool) (*models.RepairReport, error) {
	if apply && sess.Anonymous() {
		return nil, ErrNoSubmitter
	}

	rows, err := s.repos.Ledger.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	current, stats := s.reconciler.Reconcile(rows)

	report := &models.RepairReport{
		Rows:     stats.Rows,
		Repaired: stats.Repaired,
		Rules:    stats.Rules,
	}

	ts := s.now().In(s.loc).Truncate(time.Millisecond)
	for _, rec := range current {
		if _, repaired := stats.RepairedKeys[ledger.KeyFor(rec, s.strictKey)]; !repaired {
			continue
		}
		rec.Action = models.ActionRepair
		if apply {
			rec.WriteTimestamp = ts
			rec.TimestampValid = true
			if err := s.repos.Ledger.Append(ctx, ledger.Encode(rec, s.loc)); err != nil {
				return report, err
			}
			report.Appended++
		}
		report.Records = append(report.Records, rec)
	}

	s.log.Info().
		Int("rows", report.Rows).
		Int("repaired", report.Repaired).
		Int("appended", report.Appended).
		Bool("apply", apply).
		Str("submitter", sess.Submitter).
		Msg("Ledger repair pass finished")

	return report, nil
}

// CheckAccess exposes the access policy decision without submitting
func (s *attendanceService) CheckAccess(center models.Center, space, submitter string) policy.Decision {
	center = normalize.NormalizeCenter(string(center))
	space = normalize.CleanCell(space)
	if space == "" && !s.table.Subdivided(center) {
		space = models.GeneralSpace
	}
	return s.table.CanSubmit(center, space, submitter)
}
