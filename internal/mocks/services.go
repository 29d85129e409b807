package mocks

import (
	"context"
	"net/http"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/policy"
	"github.com/attendance-ledger-api/internal/service"
)

// MockRosterService is a mock implementation of RosterService
type MockRosterService struct {
	ImportFunc    func(ctx context.Context, sess models.Session, data []byte, key string) (*models.ImportResult, error)
	AddPersonFunc func(ctx context.Context, sess models.Session, req *models.PersonRequest) (*models.Person, []models.ValidationError, error)
	SetActiveFunc func(ctx context.Context, sess models.Session, req *models.PersonStatusRequest) (*models.Person, error)

	Imports map[string]*models.ImportRun
	Errors  map[string][]models.ValidationError
	People  []models.Person

	ImportCalls int
	LastSession models.Session
}

// Verify interface compliance
var _ service.RosterService = (*MockRosterService)(nil)

func NewMockRosterService() *MockRosterService {
	return &MockRosterService{
		Imports: make(map[string]*models.ImportRun),
		Errors:  make(map[string][]models.ValidationError),
	}
}

func (m *MockRosterService) ImportRoster(ctx context.Context, sess models.Session, data []byte, key string) (*models.ImportResult, error) {
	m.ImportCalls++
	m.LastSession = sess
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, sess, data, key)
	}
	run := models.ImportRun{
		ID:             "test-import-id",
		Status:         models.ImportStatusCompleted,
		IdempotencyKey: key,
		SubmittedBy:    sess.Submitter,
	}
	m.Imports[run.ID] = &run
	return &models.ImportResult{ImportRun: run}, nil
}

func (m *MockRosterService) GetImport(ctx context.Context, id string) (*models.ImportRun, error) {
	return m.Imports[id], nil
}

func (m *MockRosterService) GetImportByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	for _, run := range m.Imports {
		if run.IdempotencyKey == key {
			return run, nil
		}
	}
	return nil, nil
}

func (m *MockRosterService) GetImportErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	return m.Errors[id], nil
}

func (m *MockRosterService) AddPerson(ctx context.Context, sess models.Session, req *models.PersonRequest) (*models.Person, []models.ValidationError, error) {
	m.LastSession = sess
	if m.AddPersonFunc != nil {
		return m.AddPersonFunc(ctx, sess, req)
	}
	p := models.Person{Name: req.Name, Center: models.Center(req.Center), Frequency: models.Frequency(req.Frequency), Active: true}
	m.People = append(m.People, p)
	return &p, nil, nil
}

func (m *MockRosterService) ListPeople(ctx context.Context, center models.Center, includeInactive bool) ([]models.Person, error) {
	out := make([]models.Person, 0, len(m.People))
	for _, p := range m.People {
		if center != "" && p.Center != center {
			continue
		}
		if !includeInactive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MockRosterService) SetPersonActive(ctx context.Context, sess models.Session, req *models.PersonStatusRequest) (*models.Person, error) {
	m.LastSession = sess
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, sess, req)
	}
	for i := range m.People {
		if m.People[i].Name == req.Name && string(m.People[i].Center) == req.Center {
			m.People[i].Active = req.Active
			p := m.People[i]
			return &p, nil
		}
	}
	return nil, service.ErrPersonNotFound
}

// MockAttendanceService is a mock implementation of AttendanceService
type MockAttendanceService struct {
	SubmitFunc func(ctx context.Context, sess models.Session, req *models.SubmitRequest) (*models.SubmitResult, error)
	RepairFunc func(ctx context.Context, sess models.Session, apply bool) (*models.RepairReport, error)
	AccessFunc func(center models.Center, space, submitter string) policy.Decision

	Records []models.AttendanceRecord
	Totals  []models.DailyTotal

	Submitted   []*models.SubmitRequest
	LastSession models.Session
	LastFilter  models.AttendanceFilter
	LastDays    int
}

// Verify interface compliance
var _ service.AttendanceService = (*MockAttendanceService)(nil)

func NewMockAttendanceService() *MockAttendanceService {
	return &MockAttendanceService{}
}

func (m *MockAttendanceService) SubmitAttendance(ctx context.Context, sess models.Session, req *models.SubmitRequest) (*models.SubmitResult, error) {
	m.LastSession = sess
	m.Submitted = append(m.Submitted, req)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sess, req)
	}
	rec := models.AttendanceRecord{
		RecordID:    "test-record-id",
		Date:        req.Date,
		Center:      models.Center(req.Center),
		Space:       req.Space,
		SubmittedBy: sess.Submitter,
		Action:      models.ActionCreate,
	}
	if req.Headcount != nil {
		rec.Headcount = *req.Headcount
	}
	return &models.SubmitResult{Accepted: true, Record: &rec}, nil
}

func (m *MockAttendanceService) GetCurrentAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	m.LastFilter = filter
	out := make([]models.AttendanceRecord, 0, len(m.Records))
	for _, r := range m.Records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockAttendanceService) DailyTotals(ctx context.Context, center models.Center, days int) ([]models.DailyTotal, error) {
	m.LastDays = days
	return m.Totals, nil
}

func (m *MockAttendanceService) RepairLedger(ctx context.Context, sess models.Session, apply bool) (*models.RepairReport, error) {
	m.LastSession = sess
	if m.RepairFunc != nil {
		return m.RepairFunc(ctx, sess, apply)
	}
	return &models.RepairReport{}, nil
}

func (m *MockAttendanceService) CheckAccess(center models.Center, space, submitter string) policy.Decision {
	if m.AccessFunc != nil {
		return m.AccessFunc(center, space, submitter)
	}
	return policy.Decision{Allowed: true}
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamAttendanceFunc  func(ctx context.Context, w http.ResponseWriter, filter models.AttendanceFilter, format string) error
	StreamDailyTotalsFunc func(ctx context.Context, w http.ResponseWriter, center models.Center, days int, format string) error
	StreamRosterFunc      func(ctx context.Context, w http.ResponseWriter, center models.Center, format string) error
	LastFormat            string
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{}
}

func (m *MockExportService) StreamAttendance(ctx context.Context, w http.ResponseWriter, filter models.AttendanceFilter, format string) error {
	m.LastFormat = format
	if m.StreamAttendanceFunc != nil {
		return m.StreamAttendanceFunc(ctx, w, filter, format)
	}
	return nil
}

func (m *MockExportService) StreamDailyTotals(ctx context.Context, w http.ResponseWriter, center models.Center, days int, format string) error {
	m.LastFormat = format
	if m.StreamDailyTotalsFunc != nil {
		return m.StreamDailyTotalsFunc(ctx, w, center, days, format)
	}
	return nil
}

func (m *MockExportService) StreamRoster(ctx context.Context, w http.ResponseWriter, center models.Center, format string) error {
	m.LastFormat = format
	if m.StreamRosterFunc != nil {
		return m.StreamRosterFunc(ctx, w, center, format)
	}
	return nil
}
