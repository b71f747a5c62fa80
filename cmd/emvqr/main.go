// Command emvqr decodes, validates and repairs EMV merchant-presented QR
// payloads, and runs the QR check services.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"emvqr/internal/checker"
	"emvqr/internal/config"
	"emvqr/internal/logging"
	"emvqr/internal/qrimage"
	"emvqr/internal/storage"
	"emvqr/internal/validate"
)

var version = "dev"

// errFindings makes the process exit non-zero without printing an error;
// the findings have already been written.
var errFindings = errors.New("critical findings")

var (
	configPath string
	logLevel   string
	logFormat  string
	country    string
	currency   string

	cfg    *config.Config
	logger zerolog.Logger
	opts   []validate.Option

	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "emvqr",
		Short: "EMV merchant-presented QR codec, validator and repairer",
		Long: `emvqr decodes EMV merchant-presented QR payloads, reports structural and
content problems, repairs wrong CRCs and runs the payment QR check services
(REST API, NATS consumer and database sweep).`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default: ./"+config.DefaultPath+" if present)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console or json (overrides config)")
	pf.StringVar(&country, "country", "", "Expected merchant country (overrides config)")
	pf.StringVar(&currency, "currency", "", "Expected transaction currency (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	if country != "" {
		c.Policy.Country = strings.ToUpper(country)
	}
	if currency != "" {
		c.Policy.Currency = currency
	}

	l, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}

	p, err := c.ValidationPolicy()
	if err != nil {
		return err
	}

	cfg = c
	logger = l
	opts = []validate.Option{validate.WithPolicy(p)}
	return nil
}

func registerCommands() {
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(sealCmd)
	rootCmd.AddCommand(fixTerminalCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.Version = version
}

func main() {
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// readPayload returns the payload argument, or the first non-empty line of
// stdin when the argument is missing or "-".
func readPayload(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	sc := bufio.NewScanner(stdin)
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r\n"); strings.TrimSpace(line) != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no payload given")
}

// openStorage opens the enabled backends.
func openStorage(ctx context.Context) (*storage.DB, error) {
	db, err := storage.Open(ctx, cfg.Storage())
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchemas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newChecker builds a checker recording to every open backend of db.
func newChecker(db *storage.DB) *checker.Checker {
	var c *checker.Checker
	if cfg.Render.Enabled {
		c = checker.New(qrimage.New(cfg.Render.Scale), logging.Component(logger, "checker"))
	} else {
		c = checker.New(nil, logging.Component(logger, "checker"))
	}
	c.Options = opts
	if cfg.Render.Timeout > 0 {
		c.RenderTimeout = cfg.Render.Timeout
	}

	if db == nil {
		return c
	}
	if db.History != nil {
		c.History = db.History
	}
	if db.PG != nil {
		c.Auditor = db.PG
	}
	if db.CH != nil {
		c.Analytics = db.CH
	}
	return c
}
