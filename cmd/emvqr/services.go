package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"emvqr/internal/api"
	"emvqr/internal/checker"
	"emvqr/internal/feed"
	"emvqr/internal/logging"
	"emvqr/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Check payment QR events from NATS",
	Args:  cobra.NoArgs,
	RunE:  runConsume,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Check the QR of every pending payment in PostgreSQL",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the local check history",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config)")

	sweepCmd.Flags().Int("limit", 100, "Maximum payments to check")
	sweepCmd.Flags().String("payment", "", "Check only this payment id")
	sweepCmd.Flags().BoolVar(&jsonOutput, "json", false, "Write the summary as JSON")

	f := historyCmd.Flags()
	f.String("payment", "", "Filter by payment id")
	f.String("run", "", "Filter by run id")
	f.String("source", "", "Filter by source (cli, api, nats, sweep)")
	f.String("code", "", "Filter by finding code")
	f.Bool("critical", false, "Only checks with critical findings")
	f.Bool("changed", false, "Only checks whose CRC was repaired")
	f.Int("limit", 20, "Maximum rows")
	f.Bool("stats", false, "Show aggregate statistics instead of rows")
	f.Duration("since", 24*time.Hour, "Window for ClickHouse finding counts in --stats")
	f.BoolVar(&jsonOutput, "json", false, "Write JSON output")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	port := cfg.API.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}

	var history api.HistoryReader
	if db.History != nil {
		history = db.History
	}

	srv := api.NewServer(newChecker(db), history, api.Config{
		Port:        port,
		AuthEnabled: cfg.API.AuthEnabled,
		APIKeys:     cfg.API.APIKeys,
	}, logging.Component(logger, "api"))
	return srv.Run(ctx)
}

func runConsume(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	fc := feed.Config{
		URL:           cfg.NATS.URL,
		Subject:       cfg.NATS.Subject,
		ResultSubject: cfg.NATS.ResultSubject,
		Queue:         cfg.NATS.Queue,
	}
	log := logging.Component(logger, "feed")

	nc, err := feed.Connect(fc, log)
	if err != nil {
		return err
	}
	defer nc.Close()

	return feed.NewConsumer(nc, newChecker(db), fc, log).Run(ctx)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if !cfg.Postgres.Enabled {
		return errors.New("sweep needs postgres.enabled: true")
	}

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if id, _ := cmd.Flags().GetString("payment"); id != "" {
		o, err := newChecker(db).CheckPayment(ctx, db.PG, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, o)
		}
		fmt.Fprintf(out, "%s  %s  %s\n", o.PaymentID, outcomeStatus(o), storage.JoinCodes(o.Report.Findings))
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	sum, err := newChecker(db).Sweep(ctx, db.PG, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, sum)
	}

	fmt.Fprintf(out, "run %s: checked=%d repaired=%d rendered=%d render_failed=%d with_critical=%d\n",
		sum.RunID, sum.Checked, sum.Repaired, sum.Rendered, sum.RenderFailed, sum.WithCritical)
	for _, o := range sum.Outcomes {
		if !o.Report.Repair.Changed && o.Report.Critical == 0 {
			continue
		}
		fmt.Fprintf(out, "  %s  %s  %s\n", o.PaymentID, outcomeStatus(o), storage.JoinCodes(o.Report.Findings))
	}
	return nil
}

func outcomeStatus(o checker.Outcome) string {
	switch {
	case o.Rendered:
		return "repaired"
	case o.RenderError != "":
		return "render failed"
	case o.Report.Repair.Changed:
		return "crc corrected"
	case o.Report.Critical > 0:
		return "critical"
	}
	return "ok"
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.SQLite.Enabled {
		return errors.New("history needs sqlite.enabled: true")
	}
	h, err := storage.OpenHistory(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()
	f := cmd.Flags()

	if showStats, _ := f.GetBool("stats"); showStats {
		st, err := h.GetStats()
		if err != nil {
			return err
		}
		res := historyStats{Local: st}
		if cfg.ClickHouse.Enabled {
			since, _ := f.GetDuration("since")
			res.Since = time.Now().Add(-since).UTC()
			if res.Codes, err = countFindings(cmd, res.Since); err != nil {
				return err
			}
		}
		return writeJSON(out, res)
	}

	var p storage.QueryParams
	p.PaymentID, _ = f.GetString("payment")
	p.RunID, _ = f.GetString("run")
	p.Source, _ = f.GetString("source")
	p.Code, _ = f.GetString("code")
	p.OnlyCritical, _ = f.GetBool("critical")
	p.OnlyChanged, _ = f.GetBool("changed")
	p.Limit, _ = f.GetInt("limit")

	checks, err := h.Query(p)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, checks)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHECKED\tSOURCE\tPAYMENT\tCRC\tCRIT\tWARN\tCODES")
	for _, c := range checks {
		crc := c.DeclaredCRC
		if c.Changed {
			crc += "->" + c.ComputedCRC
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			c.ID, c.CheckedAt.Format("2006-01-02 15:04:05"), c.Source, c.PaymentID, crc,
			c.Critical, c.Warnings, c.Codes())
	}
	return tw.Flush()
}

type historyStats struct {
	Local *storage.Stats      `json:"local"`
	Since time.Time           `json:"since,omitzero"`
	Codes []storage.CodeCount `json:"codes,omitempty"`
}

// countFindings aggregates findings across every instance from ClickHouse.
func countFindings(cmd *cobra.Command, since time.Time) ([]storage.CodeCount, error) {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	ch, err := storage.OpenClickHouse(ctx, cfg.Storage().ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	defer ch.Close()
	return ch.CountByCode(ctx, since)
}
