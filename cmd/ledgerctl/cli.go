package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/attendance-ledger-api/internal/app"
	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/normalize"
	"github.com/attendance-ledger-api/pkg/logger"
)

type cli struct {
	out    io.Writer
	errOut io.Writer

	submitter string
	center    string
	logLevel  string

	cfg *config.Config
	log zerolog.Logger
	app *app.App
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{out: out, errOut: errOut}
}

func (c *cli) execute(ctx context.Context, args []string) error {
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	defer c.close()
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Attendance ledger and roster operations",
		Long: `ledgerctl reads and writes the attendance ledger and the roster in the
storage selected by STORAGE_BACKEND, using the same rules as the API server.

Writes are attributed to --submitter (or LEDGER_SUBMITTER).`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&c.submitter, "submitter", os.Getenv("LEDGER_SUBMITTER"), "name the writes are attributed to")
	root.PersistentFlags().StringVar(&c.center, "center-binding", "", "restrict the session to one center")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	root.AddCommand(
		c.importRosterCommand(),
		c.currentCommand(),
		c.dailyCommand(),
		c.submitCommand(),
		c.repairCommand(),
		c.accessCommand(),
		c.migrateCommand(),
	)
	return root
}

// setup loads configuration and the logger. Storage is opened lazily by the
// commands that need it.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	c.cfg = cfg
	c.log = logger.NewWithWriter(c.errOut, cfg.Log)
	return nil
}

func (c *cli) open(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(ctx, c.cfg, c.log)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil {
			c.log.Error().Err(err).Msg("Failed to close storage")
		}
		c.app = nil
	}
}

func (c *cli) session() models.Session {
	sess := models.Session{Submitter: normalize.CleanCell(c.submitter)}
	if c.center != "" {
		sess.Center = normalize.NormalizeCenter(c.center)
	}
	return sess
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// streamWriter lets the export service stream to a plain writer
type streamWriter struct {
	io.Writer
	header http.Header
}

func newStreamWriter(w io.Writer) *streamWriter {
	return &streamWriter{Writer: w, header: make(http.Header)}
}

func (w *streamWriter) Header() http.Header { return w.header }

func (w *streamWriter) WriteHeader(int) {}
