package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/models"
)

// Export formats
const (
	FormatCSV    = "csv"
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	attendance AttendanceService
	roster     RosterService
	log        zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(attendance AttendanceService, roster RosterService, log zerolog.Logger) *exportService {
	return &exportService{
		attendance: attendance,
		roster:     roster,
		log:        log.With().Str("service", "export").Logger(),
	}
}

// StreamAttendance streams the current view in the specified format
func (s *exportService) StreamAttendance(ctx context.Context, w http.ResponseWriter, filter models.AttendanceFilter, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	s.log.Info().Str("format", format).Msg("Starting attendance export")

	records, err := s.attendance.GetCurrentAttendance(ctx, filter)
	if err != nil {
		return err
	}

	header := []string{"id_registro", "fecha", "centro", "espacio", "presentes", "coordinador",
		"tipo_dia", "notas", "usuario", "accion", "timestamp"}
	err = stream(w, "asistencia", format, header, records, func(r models.AttendanceRecord) []string {
		ts := ""
		if r.TimestampValid {
			ts = r.WriteTimestamp.Format(models.TimestampLayout)
		}
		return []string{
			r.RecordID, r.Date, string(r.Center), r.Space, strconv.Itoa(r.Headcount), r.Coordinator,
			string(r.DayType), r.Notes, r.SubmittedBy, string(r.Action), ts,
		}
	})

	s.log.Info().Int("count", len(records)).Msg("Attendance export completed")
	return err
}

// StreamDailyTotals streams the per-date headcount report
func (s *exportService) StreamDailyTotals(ctx context.Context, w http.ResponseWriter, center models.Center, days int, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	totals, err := s.attendance.DailyTotals(ctx, center, days)
	if err != nil {
		return err
	}

	return stream(w, "reporte_diario", format, []string{"fecha", "presentes", "registros"}, totals,
		func(t models.DailyTotal) []string {
			return []string{t.Date, strconv.Itoa(t.Headcount), strconv.Itoa(t.Records)}
		})
}

// StreamRoster streams the active roster
func (s *exportService) StreamRoster(ctx context.Context, w http.ResponseWriter, center models.Center, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	people, err := s.roster.ListPeople(ctx, center, true)
	if err != nil {
		return err
	}

	return stream(w, "personas", format, []string{"nombre", "frecuencia", "centro", "estado"}, people,
		func(p models.Person) []string {
			status := models.StatusActive
			if !p.Active {
				status = models.StatusInactive
			}
			return []string{p.Name, string(p.Frequency), string(p.Center), status}
		})
}

func checkFormat(format string) error {
	switch format {
	case FormatCSV, FormatNDJSON, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// stream writes items with download headers. CSV uses toRow; the JSON
// formats marshal the items themselves.
func stream[T any](w http.ResponseWriter, name, format string, header []string, items []T, toRow func(T) []string) error {
	switch format {
	case FormatNDJSON:
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", "attachment; filename="+name+".ndjson")

		flusher, _ := w.(http.Flusher)
		for i, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			w.Write(data)
			w.Write([]byte("\n"))

			// Flush every 100 records for streaming
			if (i+1)%100 == 0 && flusher != nil {
				flusher.Flush()
			}
		}
		return nil

	case FormatJSON:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename="+name+".json")

		w.Write([]byte("["))
		for i, item := range items {
			if i > 0 {
				w.Write([]byte(","))
			}
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			w.Write(data)
		}
		w.Write([]byte("]"))
		return nil

	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+name+".csv")

		writer := csv.NewWriter(w)
		if err := writer.Write(header); err != nil {
			return err
		}
		for _, item := range items {
			if err := writer.Write(toRow(item)); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	}
}
