package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"emvqr/internal/checker"
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/repair"
	"emvqr/internal/report"
	"emvqr/internal/storage"
)

// PayloadRequest is the body of the single-payload endpoints.
type PayloadRequest struct {
	Payload string `json:"payload"`
}

// DecodeResponse is the decoded structure of a payload.
type DecodeResponse struct {
	Payload  string         `json:"payload"`
	Length   int            `json:"length"`
	Fields   []report.Field `json:"fields"`
	Trailing string         `json:"trailing,omitempty"`
	CRC      *report.CRC    `json:"crc,omitempty"`
}

// ValidateResponse lists the findings for a payload.
type ValidateResponse struct {
	Valid    bool         `json:"valid"`
	Critical int          `json:"critical"`
	Warnings int          `json:"warnings"`
	Findings finding.List `json:"findings"`
}

// DecodeErrorResponse is returned with 422 when a payload cannot be decoded.
type DecodeErrorResponse struct {
	Error     string `json:"error"`
	Offset    int    `json:"offset"`
	ASCIIHint string `json:"ascii_hint,omitempty"`
}

// SealRequest lists the fields of a payload to encode. Any field 63 is
// replaced by a freshly computed CRC.
type SealRequest struct {
	Fields []SealField `json:"fields"`
}

// SealField is one field of a SealRequest.
type SealField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// TerminalRequest asks for the terminal id of a payload to be replaced.
type TerminalRequest struct {
	Payload    string `json:"payload"`
	TerminalID string `json:"terminal_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PayloadRequest
	if !decodeBody(w, r, &req) {
		return "", false
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return "", false
	}
	return req.Payload, true
}

func writeDecodeError(w http.ResponseWriter, e *report.DecodeError) {
	writeJSON(w, http.StatusUnprocessableEntity, DecodeErrorResponse{
		Error:     e.Message,
		Offset:    e.Offset,
		ASCIIHint: e.ASCIIHint,
	})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	rep := report.Build(payload, s.opts...)
	if rep.Error != nil {
		writeDecodeError(w, rep.Error)
		return
	}

	writeJSON(w, http.StatusOK, DecodeResponse{
		Payload:  rep.Payload,
		Length:   rep.Length,
		Fields:   rep.Fields,
		Trailing: rep.Trailing,
		CRC:      rep.CRC,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	rep := report.Build(payload, s.opts...)
	if rep.Error != nil {
		writeDecodeError(w, rep.Error)
		return
	}

	findings := rep.Findings
	if findings == nil {
		findings = finding.List{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    rep.OK(),
		Critical: rep.Critical,
		Warnings: rep.Warnings,
		Findings: findings,
	})
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, repair.Repair(payload))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.Build(payload, s.opts...))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checker.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}
	req.Source = checker.SourceAPI

	writeJSON(w, http.StatusOK, s.checker.Check(r.Context(), req))
}

func (s *Server) handleSeal(w http.ResponseWriter, r *http.Request) {
	var req SealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "No fields specified")
		return
	}

	fields := make(emv.Payload, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, emv.NewField(f.ID, f.Value))
	}

	payload, err := emv.Seal(fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PayloadRequest{Payload: payload})
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	var req TerminalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Payload == "" || req.TerminalID == "" {
		writeError(w, http.StatusBadRequest, "payload and terminal_id are required")
		return
	}

	res, err := repair.ReplaceTerminalID(req.Payload, req.TerminalID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, emv.ErrMalformedField) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "History storage is not configured")
		return
	}

	q := r.URL.Query()
	p := storage.QueryParams{
		RunID:        q.Get("run_id"),
		PaymentID:    q.Get("payment_id"),
		Source:       q.Get("source"),
		Code:         q.Get("code"),
		OnlyCritical: parseBool(q.Get("critical")),
		OnlyChanged:  parseBool(q.Get("changed")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		if n > 1000 {
			writeError(w, http.StatusBadRequest, "Maximum limit is 1000")
			return
		}
		p.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		p.Offset = n
	}

	checks, err := s.history.Query(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if checks == nil {
		checks = []storage.Check{}
	}
	writeJSON(w, http.StatusOK, checks)
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}
