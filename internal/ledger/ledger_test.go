package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/repair"
)

var testVocab = repair.NewVocabulary([]string{"Natasha Carrari", "Camila Prada", "Florencia"})

func row(ts, date, center, space, headcount, submitter, id string) models.LedgerRow {
	return models.LedgerRow{
		Timestamp:   ts,
		Date:        date,
		Center:      center,
		Space:       space,
		Headcount:   headcount,
		SubmittedBy: submitter,
		Action:      "Create",
		RecordID:    id,
	}
}

func TestCurrentView_LatestTimestampWins(t *testing.T) {
	rows := []models.LedgerRow{
		row("2024-03-01 18:00:00", "2024-03-01", "Calle Belén", "", "10", "ana", "r1"),
		row("2024-03-01 20:00:00", "2024-03-01", "Calle Belén", "General", "14", "luis", "r1"),
		row("2024-03-01 19:00:00", "2024-03-01", "Calle Belén", "General", "12", "ana", "r1"),
	}

	got := CurrentView(rows, testVocab)
	require.Len(t, got, 1)
	assert.Equal(t, 14, got[0].Headcount)
	assert.Equal(t, "luis", got[0].SubmittedBy)
}

func TestCurrentView_MalformedTimestampRanksLowest(t *testing.T) {
	rows := []models.LedgerRow{
		row("2024-03-01 08:00:00", "2024-03-01", "Nudo a Nudo", "", "5", "ana", "a"),
		row("ayer a la tarde", "2024-03-01", "Nudo a Nudo", "", "99", "ana", "a"),
	}

	got, stats := NewReconciler(testVocab, Options{}).Reconcile(rows)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Headcount)
	assert.Equal(t, 1, stats.MalformedTimestamps)
}

func TestCurrentView_TieGoesToLaterRow(t *testing.T) {
	tests := []struct {
		name string
		ts   string
	}{
		{"equal timestamps", "2024-03-01 08:00:00"},
		{"both malformed", "sin hora"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []models.LedgerRow{
				row(tt.ts, "2024-03-01", "Nudo a Nudo", "", "5", "ana", "a"),
				row(tt.ts, "2024-03-01", "Nudo a Nudo", "", "6", "ana", "a"),
			}
			got := CurrentView(rows, testVocab)
			require.Len(t, got, 1)
			assert.Equal(t, 6, got[0].Headcount)
		})
	}
}

func TestCurrentView_DeterministicUnderShuffle(t *testing.T) {
	rows := []models.LedgerRow{
		row("2024-03-01 08:00:00", "2024-03-01", "Nudo a Nudo", "", "5", "ana", "a"),
		row("2024-03-01 09:00:00", "2024-03-01", "Nudo a Nudo", "", "7", "ana", "a"),
		row("2024-03-02 09:00:00", "02/03/2024", "nudo", "", "3", "ana", "b"),
		row("2024-03-01 10:00:00", "2024-03-01", "Casa Maranatha", "FINES", "8", "flor", "c"),
		row("2024-03-01 11:00:00", "2024-03-01", "Casa Maranatha", "La Ronda", "4", "flor", "d"),
		row("2024-03-01 12:00:00", "2024-03-01", "Casa Maranatha", "FINES", "9", "flor", "c"),
		row("2024-02-28 12:00:00", "2024-02-28", "Calle Belén", "", "20", "nati", "e"),
	}

	want := CurrentView(rows, testVocab)
	require.Len(t, want, 5)
	assert.Equal(t, "2024-02-28", want[0].Date)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffled := make([]models.LedgerRow, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := CurrentView(shuffled, testVocab)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("current view depends on input order (-want +got):\n%s", diff)
		}
	}
}

func TestCurrentView_RepairsShiftedRows(t *testing.T) {
	shifted := models.LedgerRow{
		Timestamp:   "2024-03-01 18:30:00",
		Date:        "2024",
		Year:        "Casa Maranatha",
		Center:      "General",
		Space:       "12",
		Headcount:   "Florencia",
		SubmittedBy: "Florencia",
		Action:      "Create",
		RecordID:    "x",
	}

	got, stats := NewReconciler(testVocab, Options{}).Reconcile([]models.LedgerRow{shifted})
	require.Len(t, got, 1)
	assert.Equal(t, models.CenterCasaMaranatha, got[0].Center)
	assert.Equal(t, 12, got[0].Headcount)
	assert.Equal(t, models.ActionRepair, got[0].Action)
	assert.Equal(t, 1, stats.Repaired)
	assert.Equal(t, repair.RuleCenterInYear, stats.RepairedKeys[got[0].Key()])
}

func TestReconcile_KeyIncludesSubmitter(t *testing.T) {
	rows := []models.LedgerRow{
		row("2024-03-01 08:00:00", "2024-03-01", "Calle Belén", "", "10", "ana", "a"),
		row("2024-03-01 09:00:00", "2024-03-01", "Calle Belén", "", "11", "luis", "b"),
	}

	loose := NewReconciler(testVocab, Options{}).CurrentView(rows)
	strict := NewReconciler(testVocab, Options{KeyIncludesSubmitter: true}).CurrentView(rows)

	assert.Len(t, loose, 1)
	require.Len(t, strict, 2)
	assert.Equal(t, "ana", strict[0].SubmittedBy)
	assert.Equal(t, "luis", strict[1].SubmittedBy)
}

func TestGuard_DuplicateScenario(t *testing.T) {
	current := CurrentView([]models.LedgerRow{
		row("2024-03-01 18:00:00", "2024-03-01", "Calle Belén", "General", "15", "Natasha Carrari", "r1"),
	}, testVocab)

	candidate := models.AttendanceRecord{
		Date:        "2024-03-01",
		Center:      models.CenterCalleBelen,
		Space:       models.GeneralSpace,
		Headcount:   18,
		SubmittedBy: "Estefanía Eberle",
	}

	g := NewGuard(GuardOptions{})

	rejected := g.Decide(current, candidate, false)
	assert.False(t, rejected.Accept)
	assert.True(t, rejected.RequiresConfirmation)
	require.NotNil(t, rejected.Existing)
	assert.Equal(t, "r1", rejected.Existing.RecordID)
	assert.Contains(t, rejected.Reason, "Natasha Carrari")

	confirmed := g.Decide(current, candidate, true)
	assert.True(t, confirmed.Accept)
	assert.Equal(t, models.ActionOverwrite, confirmed.Action)
	require.NotNil(t, confirmed.Existing)
	assert.Equal(t, "r1", confirmed.Existing.RecordID)

	fresh := candidate
	fresh.Date = "2024-03-02"
	created := g.Decide(current, fresh, false)
	assert.True(t, created.Accept)
	assert.Equal(t, models.ActionCreate, created.Action)
	assert.Nil(t, created.Existing)
}

func TestCheckDuplicate_MatchSubmitter(t *testing.T) {
	current := []models.AttendanceRecord{{
		Date: "2024-03-01", Center: models.CenterNudoANudo, Space: models.GeneralSpace, SubmittedBy: "ana",
	}}
	candidate := models.AttendanceRecord{
		Date: "2024-03-01", Center: models.CenterNudoANudo, Space: models.GeneralSpace, SubmittedBy: "luis",
	}

	dup, _ := CheckDuplicate(current, candidate, GuardOptions{})
	assert.True(t, dup)

	dup, existing := CheckDuplicate(current, candidate, GuardOptions{MatchSubmitter: true})
	assert.False(t, dup)
	assert.Nil(t, existing)
}

func TestCodec_EncodeDecode(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Skip("timezone database not available")
	}

	rec := models.AttendanceRecord{
		RecordID:       "2f1e8f6c-5a57-4d0c-8a8a-2c1a0f3b9d11",
		Date:           "2024-03-01",
		Year:           2024,
		Center:         models.CenterCasaMaranatha,
		Space:          "FINES",
		Headcount:      9,
		Coordinator:    "Florencia",
		DayType:        models.DayTypeSpecial,
		Notes:          "acto escolar",
		SubmittedBy:    "Florencia",
		WriteTimestamp: time.Date(2024, 3, 1, 18, 30, 0, 125e6, loc),
		TimestampValid: true,
		Action:         models.ActionOverwrite,
	}

	cells := Cells(Encode(rec, loc))
	require.Len(t, cells, len(LedgerHeader))
	assert.Equal(t, "2024-03-01 18:30:00.125", cells[0])

	back := Decode(repair.DetectAndRepair(RowFromCells(cells), testVocab), loc)
	assert.True(t, back.WriteTimestamp.Equal(rec.WriteTimestamp))
	back.WriteTimestamp = rec.WriteTimestamp
	if diff := cmp.Diff(rec, back); diff != "" {
		t.Errorf("record changed through the ledger codec (-want +got):\n%s", diff)
	}
}

func TestRowFromCells_LegacyRowsGetStableIDs(t *testing.T) {
	cells := []string{"2024-03-01 18:00:00", "2024-03-01", "2024", "Calle Belén", "General", "15"}

	a := RowFromCells(cells)
	b := RowFromCells(cells)
	assert.NotEmpty(t, a.RecordID)
	assert.Equal(t, a.RecordID, b.RecordID)
	assert.Equal(t, "", a.SubmittedBy)

	other := RowFromCells([]string{"2024-03-01 18:00:00", "2024-03-01", "2024", "Calle Belén", "General", "16"})
	assert.NotEqual(t, a.RecordID, other.RecordID)
}

func TestPersonCodec(t *testing.T) {
	p, ok := PersonFromCells([]string{" Ana  Gómez ", "semanal", "belen"})
	require.True(t, ok)
	assert.Equal(t, models.Person{
		Name: "Ana Gómez", Frequency: models.FrequencyWeekly, Center: models.CenterCalleBelen, Active: true,
	}, p)

	p.Active = false
	back, ok := PersonFromCells(PersonCells(p))
	require.True(t, ok)
	assert.Equal(t, p, back)

	_, ok = PersonFromCells([]string{"", "Diaria", "Nudo a Nudo"})
	assert.False(t, ok)
}
