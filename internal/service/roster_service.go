package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
	"github.com/attendance-ledger-api/internal/repository"
	"github.com/attendance-ledger-api/internal/roster"
	"github.com/attendance-ledger-api/internal/validation"
)

// rosterService is the concrete implementation of RosterService
type rosterService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	cfg       *config.Config
	log       zerolog.Logger
	now       func() time.Time
}

// newRosterService creates a new RosterService
func newRosterService(repos *repository.Repositories, validator *validation.Validator, cfg *config.Config, log zerolog.Logger, now func() time.Time) *rosterService {
	return &rosterService{
		repos:     repos,
		validator: validator,
		cfg:       cfg,
		log:       log.With().Str("service", "roster").Logger(),
		now:       now,
	}
}

// ImportRoster parses a pasted or uploaded roster and merges it into the
// stored one by (name, center). Existing people are updated in place, new
// ones are added, nobody is removed. A repeated idempotency key returns the
// earlier run without importing again.
func (s *rosterService) ImportRoster(ctx context.Context, sess models.Session, data []byte, idempotencyKey string) (*models.ImportResult, error) {
	if sess.Anonymous() {
		return nil, ErrNoSubmitter
	}

	if idempotencyKey != "" {
		existing, err := s.repos.Import.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.log.Info().
				Str("import_id", existing.ID).
				Str("idempotency_key", idempotencyKey).
				Msg("Returning existing import for idempotency key")
			return s.resultFor(ctx, existing)
		}
	}

	start := s.now()
	parsed, meta := roster.ParseBytes(data)

	run := &models.ImportRun{
		ID:             uuid.New().String(),
		Status:         models.ImportStatusCompleted,
		IdempotencyKey: idempotencyKey,
		SubmittedBy:    sess.Submitter,
		LinesTotal:     meta.LinesTotal,
		Parsed:         meta.Parsed,
		Skipped:        meta.Skipped,
		Duplicates:     meta.Duplicates,
		ModeUsed:       meta.ModeUsed,
		CreatedAt:      start,
	}

	current, err := s.repos.Roster.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	merged, added, updated := mergeRoster(current, parsed)
	run.Added = added
	run.Updated = updated
	run.FinalTotal = len(merged)

	var writeErr error
	if added > 0 || updated > 0 {
		writeErr = s.repos.Roster.ReplaceAll(ctx, merged)
	}
	if writeErr != nil {
		run.Status = models.ImportStatusFailed
		run.FinalTotal = len(current)
	}
	run.DurationMs = s.now().Sub(start).Milliseconds()

	lineErrors := make([]models.ValidationError, 0, len(meta.SkippedLines))
	for _, sl := range meta.SkippedLines {
		lineErrors = append(lineErrors, models.ValidationError{
			Line:    sl.Line,
			Field:   "line",
			Message: sl.Reason,
			Value:   sl.Text,
		})
	}

	if err := s.repos.Import.Create(ctx, run); err != nil {
		s.log.Error().Err(err).Str("import_id", run.ID).Msg("Failed to record import")
	} else if err := s.repos.Import.AddErrors(ctx, run.ID, lineErrors); err != nil {
		s.log.Error().Err(err).Str("import_id", run.ID).Msg("Failed to record import errors")
	}

	if writeErr != nil {
		s.log.Error().Err(writeErr).Str("import_id", run.ID).Msg("Roster import failed")
		return nil, writeErr
	}

	s.log.Info().
		Str("import_id", run.ID).
		Str("submitted_by", run.SubmittedBy).
		Int("lines", run.LinesTotal).
		Int("parsed", run.Parsed).
		Int("skipped", run.Skipped).
		Int("duplicates", run.Duplicates).
		Int("added", run.Added).
		Int("updated", run.Updated).
		Int("final_total", run.FinalTotal).
		Str("mode", run.ModeUsed).
		Int64("duration_ms", run.DurationMs).
		Msg("Roster import completed")

	return &models.ImportResult{ImportRun: *run, Errors: s.limitErrors(lineErrors)}, nil
}

func (s *rosterService) resultFor(ctx context.Context, run *models.ImportRun) (*models.ImportResult, error) {
	errs, err := s.repos.Import.GetErrors(ctx, run.ID, s.cfg.Import.MaxErrors)
	if err != nil {
		return nil, err
	}
	return &models.ImportResult{ImportRun: *run, Errors: errs}, nil
}

func (s *rosterService) limitErrors(errs []models.ValidationError) []models.ValidationError {
	if limit := s.cfg.Import.MaxErrors; limit > 0 && len(errs) > limit {
		return errs[:limit]
	}
	return errs
}

// mergeRoster folds incoming into current keeping current's order. An
// incoming entry updates the frequency when it names one and reactivates
// the person.
func mergeRoster(current, incoming []models.Person) (merged []models.Person, added, updated int) {
	merged = make([]models.Person, len(current), len(current)+len(incoming))
	copy(merged, current)

	index := make(map[models.PersonKey]int, len(merged))
	for i, p := range merged {
		if _, seen := index[p.Key()]; !seen {
			index[p.Key()] = i
		}
	}

	for _, p := range incoming {
		i, ok := index[p.Key()]
		if !ok {
			p.Active = true
			index[p.Key()] = len(merged)
			merged = append(merged, p)
			added++
			continue
		}
		before := merged[i]
		if p.Frequency != models.FrequencyUnset {
			merged[i].Frequency = p.Frequency
		}
		merged[i].Active = true
		if merged[i] != before {
			updated++
		}
	}
	return merged, added, updated
}

// GetImport retrieves an import run by ID
func (s *rosterService) GetImport(ctx context.Context, id string) (*models.ImportRun, error) {
	return s.repos.Import.GetByID(ctx, id)
}

// GetImportByIdempotencyKey retrieves an import run by idempotency key
func (s *rosterService) GetImportByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	return s.repos.Import.GetByIdempotencyKey(ctx, key)
}

// GetImportErrors retrieves every rejected line of an import
func (s *rosterService) GetImportErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	return s.repos.Import.GetErrors(ctx, id, 0)
}

// AddPerson adds one person by hand. Adding someone already on the roster
// updates them instead.
func (s *rosterService) AddPerson(ctx context.Context, sess models.Session, req *models.PersonRequest) (*models.Person, []models.ValidationError, error) {
	if sess.Anonymous() {
		return nil, nil, ErrNoSubmitter
	}
	if errs := s.validator.ValidatePerson(req); len(errs) > 0 {
		return nil, errs, nil
	}

	person := models.Person{
		Name:      normalize.CleanCell(req.Name),
		Frequency: normalize.NormalizeFrequency(req.Frequency),
		Center:    normalize.NormalizeCenter(req.Center),
		Active:    true,
	}

	current, err := s.repos.Roster.ReadAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	merged, added, updated := mergeRoster(current, []models.Person{person})

	switch {
	case added > 0:
		err = s.repos.Roster.Append(ctx, person)
	case updated > 0:
		err = s.repos.Roster.ReplaceAll(ctx, merged)
	}
	if err != nil {
		return nil, nil, err
	}

	for _, p := range merged {
		if p.Key() == person.Key() {
			person = p
			break
		}
	}

	s.log.Info().
		Str("name", person.Name).
		Str("center", string(person.Center)).
		Str("submitted_by", sess.Submitter).
		Bool("added", added > 0).
		Msg("Person saved")

	return &person, nil, nil
}

// ListPeople returns the roster sorted by center and name
func (s *rosterService) ListPeople(ctx context.Context, center models.Center, includeInactive bool) ([]models.Person, error) {
	people, err := s.repos.Roster.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if center != "" {
		center = normalize.NormalizeCenter(string(center))
	}

	out := make([]models.Person, 0, len(people))
	for _, p := range people {
		if center != "" && p.Center != center {
			continue
		}
		if !includeInactive && !p.Active {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Center != out[j].Center {
			return out[i].Center < out[j].Center
		}
		return normalize.Fold(out[i].Name) < normalize.Fold(out[j].Name)
	})
	return out, nil
}

// SetPersonActive marks a person active or inactive. People are never deleted.
func (s *rosterService) SetPersonActive(ctx context.Context, sess models.Session, req *models.PersonStatusRequest) (*models.Person, error) {
	if sess.Anonymous() {
		return nil, ErrNoSubmitter
	}

	key := models.PersonKey{
		Name:   normalize.CleanCell(req.Name),
		Center: normalize.NormalizeCenter(req.Center),
	}

	people, err := s.repos.Roster.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	found := -1
	for i := range people {
		if people[i].Key() == key {
			found = i
			break
		}
	}
	if found < 0 {
		return nil, ErrPersonNotFound
	}

	person := people[found]
	if person.Active != req.Active {
		people[found].Active = req.Active
		person.Active = req.Active
		if err := s.repos.Roster.ReplaceAll(ctx, people); err != nil {
			return nil, err
		}
		s.log.Info().
			Str("name", person.Name).
			Str("center", string(person.Center)).
			Bool("active", person.Active).
			Str("submitted_by", sess.Submitter).
			Msg("Person status changed")
	}
	return &person, nil
}

// addAttendees appends the names not yet on the roster of center. Names are
// cleaned the same way imports clean them.
func (s *rosterService) addAttendees(ctx context.Context, center models.Center, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	current, err := s.repos.Roster.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[models.PersonKey]bool, len(current))
	for _, p := range current {
		known[p.Key()] = true
	}

	added := 0
	for _, raw := range names {
		p := models.Person{Name: normalize.CleanCell(raw), Center: center, Active: true}
		if p.Name == "" || known[p.Key()] {
			continue
		}
		if err := s.repos.Roster.Append(ctx, p); err != nil {
			return added, err
		}
		known[p.Key()] = true
		added++
	}
	return added, nil
}
