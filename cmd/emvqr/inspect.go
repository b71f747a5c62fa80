package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"emvqr/internal/emv"
	"emvqr/internal/registry"
	"emvqr/internal/repair"
	"emvqr/internal/report"
	"emvqr/internal/validate"
)

var jsonOutput bool

var decodeCmd = &cobra.Command{
	Use:   "decode [payload|-]",
	Short: "Decode a payload into its fields",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDecode,
}

var validateCmd = &cobra.Command{
	Use:   "validate [payload|-]",
	Short: "List validation findings; exits 1 on critical findings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

var repairCmd = &cobra.Command{
	Use:   "repair [payload|-]",
	Short: "Print the payload with its CRC corrected",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRepair,
}

var reportCmd = &cobra.Command{
	Use:   "report [payload|-]",
	Short: "Print the full diagnostics report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

var sealCmd = &cobra.Command{
	Use:   "seal ID=VALUE...",
	Short: "Encode fields and append a computed CRC",
	Long: `Encode the given fields in order and append "6304" with the computed CRC.
A field 63 among the arguments is ignored. Example:

  emvqr seal 00=01 01=11 26=0002AR0122... 52=5492 53=032 58=AR 59=shop 60=city`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeal,
}

var fixTerminalCmd = &cobra.Command{
	Use:   "fix-terminal [payload|-]",
	Short: "Replace the merchant account terminal id and reseal the CRC",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFixTerminal,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the registered validation rules",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	for _, c := range []*cobra.Command{decodeCmd, validateCmd, repairCmd, reportCmd, fixTerminalCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Write JSON output")
	}
	validateCmd.Flags().Bool("trace", false, "Show every rule evaluation")
	fixTerminalCmd.Flags().String("terminal", "", "Fixed terminal id to write (required)")
	_ = fixTerminalCmd.MarkFlagRequired("terminal")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDecode(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	rep := report.Build(payload, opts...)
	if rep.Error != nil {
		return fmt.Errorf("decode failed at offset %d: %s", rep.Error.Offset, rep.Error.Message)
	}
	if jsonOutput {
		return writeJSON(out, rep.Fields)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLEN\tVALUE")
	for _, f := range rep.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.ID, f.Name, f.Length, f.Value)
		for _, s := range f.Subfields {
			fmt.Fprintf(tw, "%s.%s\t  %s\t%d\t%s\n", f.ID, s.ID, s.Name, s.Length, s.Value)
		}
	}
	if rep.Trailing != "" {
		fmt.Fprintf(tw, "--\ttrailing data\t%d\t%s\n", len(rep.Trailing), rep.Trailing)
	}
	return tw.Flush()
}

func runValidate(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	d, findings, err := validate.Payload(payload, opts...)
	if err != nil {
		return err
	}

	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		for _, tr := range validate.Trace(d.Fields, opts...) {
			field := tr.FieldID
			if field == "" {
				field = "*"
			}
			fmt.Fprintf(out, "%-10s %-3s %d finding(s)\n", tr.Rule, field, len(tr.Findings))
		}
		fmt.Fprintln(out)
	}

	if jsonOutput {
		if err := writeJSON(out, findings); err != nil {
			return err
		}
	} else {
		for _, f := range findings {
			fmt.Fprintln(out, f.String())
		}
		if len(findings) == 0 {
			fmt.Fprintln(out, "OK")
		}
	}

	if findings.HasCritical() {
		return errFindings
	}
	return nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	res := repair.Repair(payload)
	if jsonOutput {
		return writeJSON(out, res)
	}
	if res.Changed {
		logger.Info().Str("declared", res.Declared).Str("computed", res.Computed).Msg("CRC corrected")
	} else if res.Reason != repair.ReasonValid {
		logger.Warn().Str("reason", string(res.Reason)).Msg("payload not repaired")
	}
	fmt.Fprintln(out, res.Corrected)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	rep := report.Build(payload, opts...)
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), rep)
	}
	return report.WriteText(cmd.OutOrStdout(), rep)
}

func parseFieldArgs(args []string) (emv.Payload, error) {
	fields := make(emv.Payload, 0, len(args))
	for _, a := range args {
		id, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid field %q (want ID=VALUE)", a)
		}
		fields = append(fields, emv.NewField(id, value))
	}
	return fields, nil
}

func runSeal(cmd *cobra.Command, args []string) error {
	fields, err := parseFieldArgs(args)
	if err != nil {
		return err
	}
	payload, err := emv.Seal(fields)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), payload)
	return nil
}

func runFixTerminal(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	terminal, _ := cmd.Flags().GetString("terminal")

	res, err := repair.ReplaceTerminalID(payload, terminal)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Corrected)
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	reg := registry.Default()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tPRIORITY\tFIELDS")
	for _, r := range reg.AllRules() {
		fields := strings.Join(r.FieldIDs(), ",")
		if fields == "" {
			fields = "*"
		}
		if len(fields) > 40 {
			fields = fields[:37] + "..."
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Name(), r.Priority(), fields)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%d rules over %d field ids\n",
		reg.RuleCount(), len(reg.RegisteredFieldIDs()))
	return err
}
