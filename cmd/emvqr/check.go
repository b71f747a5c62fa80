package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"emvqr/internal/checker"
	"emvqr/internal/feed"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a JSON-lines stream of payloads or payment records",
	Long: `Read one JSON object per line: a request {"payload": ..., "qr_code": ...,
"payment_id": ...}, a payment record with gateway_metadata.qr_payload, or a
payment event {"payment": {...}}. Each line is checked, recorded to the
configured storage and written to the output as a JSON outcome.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringP("input", "i", "", "Input JSONL file (default: stdin)")
	f.StringP("output", "o", "", "Output JSONL file (default: stdout)")
	f.Bool("stats", false, "Print counters to stderr")
	f.Bool("no-store", false, "Do not record outcomes")
}

// checkStats counts the lines of a check run.
type checkStats struct {
	Lines    int
	Skipped  int
	Checked  int
	Repaired int
	Rendered int
	Critical int
}

func runCheck(cmd *cobra.Command, args []string) error {
	inPath, _ := cmd.Flags().GetString("input")
	outPath, _ := cmd.Flags().GetString("output")
	showStats, _ := cmd.Flags().GetBool("stats")
	noStore, _ := cmd.Flags().GetBool("no-store")

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var r io.Reader = cmd.InOrStdin()
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	c := newChecker(nil)
	if !noStore {
		db, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		c = newChecker(db)
	}

	scanner := bufio.NewScanner(r)
	// Payment records may embed PNG data URLs; allow long lines.
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	enc := json.NewEncoder(w)
	st := &checkStats{}

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		st.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req, err := feed.DecodeRequest([]byte(line))
		if err != nil {
			st.Skipped++
			logger.Debug().Err(err).Int("line", st.Lines).Msg("skipped")
			continue
		}
		req.Source = checker.SourceCLI

		out := c.Check(ctx, req)
		st.Checked++
		if out.Report.Repair.Changed {
			st.Repaired++
		}
		if out.Rendered {
			st.Rendered++
		}
		if out.Report.Critical > 0 {
			st.Critical++
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("write outcome: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input read error: %w", err)
	}

	if showStats {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"stats: lines=%d checked=%d skipped=%d repaired=%d rendered=%d critical=%d\n",
			st.Lines, st.Checked, st.Skipped, st.Repaired, st.Rendered, st.Critical,
		)
	}
	return ctx.Err()
}
