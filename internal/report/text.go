package report

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteText renders r for a terminal.
func WriteText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Payload (%d chars)\n%s\n\n", r.Length, r.Payload)

	if r.Error != nil {
		fmt.Fprintf(tw, "DECODE ERROR at offset %d: %s\n", r.Error.Offset, r.Error.Message)
		if r.Error.ASCIIHint != "" {
			fmt.Fprintf(tw, "ASCII suggestion (re-seal after applying):\n%s\n", r.Error.ASCIIHint)
		}
		fmt.Fprintln(tw)
	}

	if len(r.Fields) > 0 {
		fmt.Fprintln(tw, "ID\tNAME\tLEN\tVALUE")
		for _, f := range r.Fields {
			fmt.Fprintf(tw, "%s\t%s\t%02d\t%s\n", f.ID, f.Name, f.Length, f.Value)
			for _, s := range f.Subfields {
				fmt.Fprintf(tw, "  %s.%s\t  %s\t%02d\t%s\n", f.ID, s.ID, s.Name, s.Length, s.Value)
			}
			if f.TemplateError != "" {
				fmt.Fprintf(tw, "  %s\t  (template error)\t\t%s\n", f.ID, f.TemplateError)
			}
		}
		if r.Trailing != "" {
			fmt.Fprintf(tw, "--\ttrailing data\t%02d\t%s\n", len(r.Trailing), r.Trailing)
		}
		fmt.Fprintln(tw)
	}

	if r.CRC != nil {
		status := "VALID"
		if !r.CRC.Valid {
			status = "MISMATCH"
		}
		fmt.Fprintf(tw, "CRC\tdeclared %s\tcomputed %s\t%s\n\n", r.CRC.Declared, r.CRC.Computed, status)
	}

	fmt.Fprintf(tw, "FINDINGS (%d critical, %d warning)\n", r.Critical, r.Warnings)
	for _, f := range r.Findings {
		where := f.FieldID
		if f.SubfieldID != "" {
			where += "." + f.SubfieldID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Severity, f.Code, where, f.Message)
	}

	if r.Repair.Changed {
		fmt.Fprintf(tw, "\nREPAIRED (CRC %s -> %s)\n%s\n", r.Repair.Declared, r.Repair.Computed, r.Repair.Corrected)
	}

	return tw.Flush()
}
