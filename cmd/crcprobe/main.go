// Command crcprobe identifies which CRC-16 algorithm and input range a QR
// producer used when the declared CRC of a payload does not verify.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"emvqr/internal/crc"
	"emvqr/internal/emv"
)

// Result is the probe outcome for one payload.
type Result struct {
	Payload  string      `json:"payload"`
	Declared string      `json:"declared"`
	Values   []Value     `json:"values"`
	Matches  []crc.Match `json:"matches"`
	Error    string      `json:"error,omitempty"`
}

// Value is one variant computed over the canonical input.
type Value struct {
	Variant string `json:"variant"`
	CRC     string `json:"crc"`
}

func main() {
	asJSON := flag.Bool("json", false, "Write one JSON result per payload")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: crcprobe [-json] [payload...]\n\nPayloads are read from stdin, one per line, when none are given.\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	payloads := flag.Args()
	if len(payloads) == 0 {
		var err error
		payloads, err = readLines(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	failed := false
	for _, p := range payloads {
		res := probe(p)
		if res.Error != "" {
			failed = true
		}
		if *asJSON {
			_ = enc.Encode(res)
			continue
		}
		writeResult(os.Stdout, res)
	}
	if failed {
		os.Exit(1)
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// inputs returns the byte ranges producers are known to checksum.
func inputs(payload string, crcOffset int) []crc.Input {
	return []crc.Input{
		{Label: "through 6304", Data: payload[:crcOffset+len(emv.CRCTag)]},
		{Label: "before 6304", Data: payload[:crcOffset]},
		{Label: "through 63", Data: payload[:crcOffset+2]},
	}
}

func probe(payload string) Result {
	res := Result{Payload: payload}

	d, err := emv.Decode(payload)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	f, ok := d.Fields.Find(emv.IDCRC)
	if !ok {
		res.Error = "no CRC field"
		return res
	}
	res.Declared = f.Value

	declared, ok := crc.Parse(f.Value)
	if !ok {
		res.Error = fmt.Sprintf("declared CRC %q is not 4 hex digits", f.Value)
		return res
	}

	in := inputs(payload, f.Offset)
	for _, v := range crc.Variants {
		res.Values = append(res.Values, Value{
			Variant: v.Name,
			CRC:     crc.Format(v.Checksum([]byte(in[0].Data))),
		})
	}
	res.Matches = crc.Probe(in, declared)
	return res
}

func writeResult(w io.Writer, res Result) {
	fmt.Fprintf(w, "\nPayload: ...%s\n", res.Payload[max(0, len(res.Payload)-40):])
	if res.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", res.Error)
		return
	}
	fmt.Fprintf(w, "Declared CRC: %s\n", res.Declared)
	fmt.Fprintf(w, "  (through 6304)\n")
	for _, v := range res.Values {
		fmt.Fprintf(w, "  %-12s %s\n", v.Variant+":", v.CRC)
	}

	if len(res.Matches) == 0 {
		fmt.Fprintln(w, "  no variant reproduces the declared CRC")
		return
	}
	for _, m := range res.Matches {
		marker := ""
		if m.Variant == crc.EMV.Name && m.Input == "through 6304" {
			marker = " (valid EMV CRC)"
		}
		fmt.Fprintf(w, "  match: %s over %s%s\n", m.Variant, m.Input, marker)
	}
}
