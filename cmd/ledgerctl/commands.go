package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/database"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/service"
)

func (c *cli) importRosterCommand() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "import-roster FILE",
		Short: "Merge a roster file into the stored roster",
		Long: `import-roster parses a roster export (tab, semicolon, comma or space
separated; "-" reads stdin) and merges it into the stored roster by name and
center. Nobody is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading roster: %w", err)
			}

			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			result, err := a.Services.Roster.ImportRoster(cmd.Context(), c.session(), data, key)
			if err != nil {
				return err
			}
			return c.printJSON(result)
		},
	}
	cmd.Flags().StringVar(&key, "idempotency-key", "", "replaying a key returns the earlier import")
	return cmd
}

func (c *cli) currentCommand() *cobra.Command {
	var (
		filter models.AttendanceFilter
		center string
		format string
	)
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Print the current attendance view",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			filter.Center = models.Center(center)
			return a.Services.Export.StreamAttendance(cmd.Context(), newStreamWriter(c.out), filter, format)
		},
	}
	cmd.Flags().StringVar(&center, "center", "", "only this center")
	cmd.Flags().StringVar(&filter.Space, "space", "", "only this space")
	cmd.Flags().StringVar(&filter.From, "from", "", "first date, inclusive")
	cmd.Flags().StringVar(&filter.To, "to", "", "last date, inclusive")
	cmd.Flags().StringVar(&filter.SubmittedBy, "submitted-by", "", "only records written by this submitter")
	cmd.Flags().StringVarP(&format, "format", "o", service.FormatCSV, "csv, ndjson or json")
	return cmd
}

func (c *cli) dailyCommand() *cobra.Command {
	var (
		center string
		days   int
		format string
	)
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Print headcount totals per date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.Services.Export.StreamDailyTotals(cmd.Context(), newStreamWriter(c.out), models.Center(center), days, format)
		},
	}
	cmd.Flags().StringVar(&center, "center", "", "only this center")
	cmd.Flags().IntVar(&days, "days", 0, "window size in days, today included (default REPORT_WINDOW_DAYS)")
	cmd.Flags().StringVarP(&format, "format", "o", service.FormatCSV, "csv, ndjson or json")
	return cmd
}

func (c *cli) submitCommand() *cobra.Command {
	var (
		req       models.SubmitRequest
		headcount int
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record attendance for a date, center and space",
		Long: `submit runs a submission through validation, the access policy and the
duplicate check. A duplicate is only written with --confirm-overwrite.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			req.Headcount = &headcount
			result, err := a.Services.Attendance.SubmitAttendance(cmd.Context(), c.session(), &req)
			if err != nil {
				return err
			}
			if err := c.printJSON(result); err != nil {
				return err
			}
			if !result.Accepted {
				return fmt.Errorf("submission rejected: %s", result.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Date, "date", "", "business date (YYYY-MM-DD or DD/MM/YYYY)")
	cmd.Flags().StringVar(&req.Center, "center", "", "center name")
	cmd.Flags().StringVar(&req.Space, "space", "", "space within a subdivided center")
	cmd.Flags().IntVar(&headcount, "headcount", 0, "number of people present")
	cmd.Flags().StringVar(&req.Coordinator, "coordinator", "", "coordinator in charge (default the submitter)")
	cmd.Flags().StringVar(&req.DayType, "day-type", "", "Regular, Especial or Cerrado")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "free text notes")
	cmd.Flags().BoolVar(&req.ConfirmOverwrite, "confirm-overwrite", false, "replace an existing record for the same key")
	cmd.Flags().StringArrayVar(&req.NewAttendees, "attendee", nil, "add a first-time attendee to the roster (repeatable)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("center")
	_ = cmd.MarkFlagRequired("headcount")
	return cmd
}

func (c *cli) repairCommand() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Report shifted ledger rows, optionally appending repaired versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := a.Services.Attendance.RepairLedger(cmd.Context(), c.session(), apply)
			if errors.Is(err, service.ErrNoSubmitter) {
				return errors.New("--submitter is required with --apply")
			}
			if err != nil {
				return err
			}
			return c.printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "append the repaired records to the ledger")
	return cmd
}

func (c *cli) accessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "access CENTER SPACE SUBMITTER",
		Short: "Check whether SUBMITTER may record attendance for CENTER / SPACE",
		Long:  `access evaluates the access policy. Pass "" as SPACE for centers without spaces.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			decision := a.Services.Attendance.CheckAccess(models.Center(args[0]), args[1], args[2])
			if err := c.printJSON(decision); err != nil {
				return err
			}
			if !decision.Allowed {
				return errors.New("not allowed")
			}
			return nil
		},
	}
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the Postgres schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Storage.Backend != config.BackendPostgres {
				return fmt.Errorf("migrate needs STORAGE_BACKEND=%s", config.BackendPostgres)
			}
			db, err := database.New(&c.cfg.Database, c.log)
			if err != nil {
				return err
			}
			defer db.Close()

			if args[0] == "down" {
				return db.MigrateDown(c.cfg.Database.MigrationsPath)
			}
			return db.RunMigrations(c.cfg.Database.MigrationsPath)
		},
	}
}
