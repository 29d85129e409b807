package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
	"github.com/attendance-ledger-api/internal/repair"
)

// LedgerHeader is the header row of the attendance table. Column order is
// significant; RecordID trails so older sheets without it stay readable.
var LedgerHeader = []string{
	"timestamp", "fecha", "anio", "centro", "espacio", "presentes",
	"coordinador", "tipo_dia", "notas", "usuario", "accion", "id_registro",
}

// RosterHeader is the header row of the people table
var RosterHeader = []string{"nombre", "frecuencia", "centro", "estado"}

// RowFromCells maps spreadsheet cells onto a LedgerRow. Short rows are
// padded. A row without a record ID gets a stable one derived from its
// cells so repeated reads agree.
func RowFromCells(cells []string) models.LedgerRow {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	row := models.LedgerRow{
		Timestamp:   get(0),
		Date:        get(1),
		Year:        get(2),
		Center:      get(3),
		Space:       get(4),
		Headcount:   get(5),
		Coordinator: get(6),
		DayType:     get(7),
		Notes:       get(8),
		SubmittedBy: get(9),
		Action:      get(10),
		RecordID:    strings.TrimSpace(get(11)),
	}
	if row.RecordID == "" {
		row.RecordID = LegacyRecordID(cells)
	}
	return row
}

// LegacyRecordID derives a deterministic ID for rows written without one
func LegacyRecordID(cells []string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(cells, "\x1f"))).String()
}

// Cells serializes a LedgerRow in LedgerHeader order
func Cells(row models.LedgerRow) []string {
	return []string{
		row.Timestamp, row.Date, row.Year, row.Center, row.Space, row.Headcount,
		row.Coordinator, row.DayType, row.Notes, row.SubmittedBy, row.Action, row.RecordID,
	}
}

// Decode types a canonicalized row. Run rows through the repairer first.
func Decode(row models.LedgerRow, loc *time.Location) models.AttendanceRecord {
	ts, valid := normalize.ParseTimestamp(row.Timestamp, loc)
	year, _ := strconv.Atoi(row.Year)
	return models.AttendanceRecord{
		RecordID:       row.RecordID,
		Date:           row.Date,
		Year:           year,
		Center:         models.Center(row.Center),
		Space:          row.Space,
		Headcount:      repair.Headcount(row.Headcount),
		Coordinator:    row.Coordinator,
		DayType:        normalize.NormalizeDayType(row.DayType),
		Notes:          row.Notes,
		SubmittedBy:    row.SubmittedBy,
		WriteTimestamp: ts,
		TimestampValid: valid,
		Action:         decodeAction(row.Action),
	}
}

// Encode renders a record as a ledger row, formatting the write timestamp in loc
func Encode(rec models.AttendanceRecord, loc *time.Location) models.LedgerRow {
	if loc == nil {
		loc = time.UTC
	}
	row := models.LedgerRow{
		Date:        rec.Date,
		Center:      string(rec.Center),
		Space:       rec.Space,
		Headcount:   strconv.Itoa(rec.Headcount),
		Coordinator: rec.Coordinator,
		DayType:     string(rec.DayType),
		Notes:       rec.Notes,
		SubmittedBy: rec.SubmittedBy,
		Action:      string(rec.Action),
		RecordID:    rec.RecordID,
	}
	if rec.Year != 0 {
		row.Year = strconv.Itoa(rec.Year)
	}
	if !rec.WriteTimestamp.IsZero() {
		row.Timestamp = rec.WriteTimestamp.In(loc).Format(models.TimestampLayout)
	}
	return row
}

func decodeAction(raw string) models.Action {
	switch normalize.Fold(raw) {
	case "overwrite":
		return models.ActionOverwrite
	case "repair":
		return models.ActionRepair
	default:
		return models.ActionCreate
	}
}

// PersonFromCells maps a roster row. Rows without a name are rejected.
func PersonFromCells(cells []string) (models.Person, bool) {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	p := models.Person{
		Name:      normalize.CleanCell(get(0)),
		Frequency: normalize.NormalizeFrequency(get(1)),
		Center:    normalize.NormalizeCenter(get(2)),
		Active:    normalize.Fold(get(3)) != models.StatusInactive,
	}
	return p, p.Name != ""
}

// PersonCells serializes a person in RosterHeader order
func PersonCells(p models.Person) []string {
	status := models.StatusActive
	if !p.Active {
		status = models.StatusInactive
	}
	return []string{p.Name, string(p.Frequency), string(p.Center), status}
}
