package benchmark

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/ledger"
	"github.com/attendance-ledger-api/internal/mocks"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/policy"
	"github.com/attendance-ledger-api/internal/repair"
	"github.com/attendance-ledger-api/internal/roster"
	"github.com/attendance-ledger-api/internal/service"
)

var centers = []string{"Calle Belén", "Nudo a Nudo", "Casa Maranatha"}

// ledgerRows builds n rows over n/4 keys, every tenth one shifted
func ledgerRows(n int) []models.LedgerRow {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rows := make([]models.LedgerRow, n)
	for i := 0; i < n; i++ {
		key := i % (n/4 + 1)
		date := base.AddDate(0, 0, key/len(centers)).Format(models.DateLayout)
		row := models.LedgerRow{
			Timestamp:   base.Add(time.Duration(i) * time.Minute).Format(models.TimestampLayout),
			Date:        date,
			Year:        "2024",
			Center:      centers[key%len(centers)],
			Space:       "General",
			Headcount:   strconv.Itoa(i % 40),
			Coordinator: "Natasha Carrari",
			SubmittedBy: "Natasha Carrari",
			Action:      "Create",
		}
		if i%10 == 0 {
			row = models.LedgerRow{
				Timestamp:   row.Timestamp,
				Date:        "2024",
				Year:        row.Center,
				Center:      "General",
				Space:       row.Headcount,
				Headcount:   "Natasha Carrari",
				SubmittedBy: "Natasha Carrari",
			}
		}
		rows[i] = row
	}
	return rows
}

// BenchmarkCurrentView benchmarks repair plus reconciliation
func BenchmarkCurrentView(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			rows := ledgerRows(n)
			reconciler := ledger.NewReconciler(
				repair.NewVocabulary([]string{"Natasha Carrari", "Camila Prada", "Florencia"}),
				ledger.Options{},
			)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				reconciler.CurrentView(rows)
			}

			b.ReportMetric(float64(n*b.N)/b.Elapsed().Seconds(), "rows/sec")
		})
	}
}

// BenchmarkRepair benchmarks the shift heuristic on a shifted row
func BenchmarkRepair(b *testing.B) {
	repairer := repair.New(repair.NewVocabulary([]string{"Natasha Carrari"}))
	row := ledgerRows(1)[0]

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		repairer.Repair(row)
	}
}

// BenchmarkRosterParsing benchmarks delimiter detection and normalization
func BenchmarkRosterParsing(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("Nombre;Frecuencia;Centro\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "Persona %d;Semanal;%s\n", i, centers[i%len(centers)])
	}
	text := sb.String()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))

	for i := 0; i < b.N; i++ {
		roster.ParseText(text)
	}
}

// BenchmarkSubmitAttendance benchmarks the full submission path on an
// in-memory ledger
func BenchmarkSubmitAttendance(b *testing.B) {
	table, err := policy.Default()
	if err != nil {
		b.Fatal(err)
	}
	repos, _ := mocks.NewMockRepositories()
	for _, row := range ledgerRows(1000) {
		repos.Ledger.Append(context.Background(), row)
	}
	cfg := &config.Config{Ledger: config.LedgerConfig{ReportWindowDays: 30, Timezone: "UTC"}}
	services := service.NewServices(repos, table, cfg, zerolog.Nop())
	sess := models.Session{Submitter: "Natasha Carrari"}
	headcount := 10

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		req := &models.SubmitRequest{
			Date:             "2025-06-01",
			Center:           "Calle Belén",
			Headcount:        &headcount,
			ConfirmOverwrite: true,
		}
		if _, err := services.Attendance.SubmitAttendance(context.Background(), sess, req); err != nil {
			b.Fatal(err)
		}
	}
}
