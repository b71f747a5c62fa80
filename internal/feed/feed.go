// Package feed consumes payment QR events from NATS, checks each payload and
// publishes the outcome.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"emvqr/internal/checker"
)

// ErrNoPayload is returned for messages that carry no QR payload.
var ErrNoPayload = errors.New("feed: message has no qr payload")

// Config holds the NATS connection and subjects.
type Config struct {
	URL           string
	Subject       string // Subject carrying payment QR events.
	ResultSubject string // Subject outcomes are published on; empty disables publishing.
	Queue         string // Queue group shared by consumer replicas.
}

// Checker checks a single request.
type Checker interface {
	Check(ctx context.Context, req checker.Request) checker.Outcome
}

// Stats counts processed messages.
type Stats struct {
	Received int64 `json:"received"`
	Checked  int64 `json:"checked"`
	Invalid  int64 `json:"invalid"`
	Repaired int64 `json:"repaired"`
}

// Consumer subscribes to payment QR events.
type Consumer struct {
	nc      *nats.Conn
	checker Checker
	cfg     Config
	logger  zerolog.Logger

	ctx context.Context

	received atomic.Int64
	checked  atomic.Int64
	invalid  atomic.Int64
	repaired atomic.Int64
}

// Connect dials NATS with reconnects enabled.
func Connect(cfg Config, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("emvqr"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", cfg.URL, err)
	}
	return nc, nil
}

// NewConsumer returns a consumer on an open connection.
func NewConsumer(nc *nats.Conn, c Checker, cfg Config, logger zerolog.Logger) *Consumer {
	return &Consumer{
		nc:      nc,
		checker: c,
		cfg:     cfg,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Run subscribes and processes messages until ctx is cancelled, then drains
// the subscription.
func (c *Consumer) Run(ctx context.Context) error {
	c.ctx = ctx

	sub, err := c.nc.QueueSubscribe(c.cfg.Subject, c.cfg.Queue, c.onMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.cfg.Subject, err)
	}
	c.logger.Info().
		Str("subject", c.cfg.Subject).
		Str("queue", c.cfg.Queue).
		Str("results", c.cfg.ResultSubject).
		Msg("consuming")

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	st := c.Stats()
	c.logger.Info().
		Int64("received", st.Received).
		Int64("checked", st.Checked).
		Int64("invalid", st.Invalid).
		Int64("repaired", st.Repaired).
		Msg("consumer stopped")
	return nil
}

// Stats returns the message counters.
func (c *Consumer) Stats() Stats {
	return Stats{
		Received: c.received.Load(),
		Checked:  c.checked.Load(),
		Invalid:  c.invalid.Load(),
		Repaired: c.repaired.Load(),
	}
}

func (c *Consumer) onMessage(m *nats.Msg) {
	out, err := c.Handle(c.ctx, m.Data)
	if err != nil {
		c.logger.Warn().Err(err).Str("subject", m.Subject).Msg("message skipped")
		if m.Reply != "" {
			b, _ := json.Marshal(map[string]string{"error": err.Error()})
			if err := m.Respond(b); err != nil {
				c.logger.Error().Err(err).Msg("reply failed")
			}
		}
		return
	}

	if m.Reply != "" {
		if err := m.Respond(out); err != nil {
			c.logger.Error().Err(err).Msg("reply failed")
		}
	}
	if c.cfg.ResultSubject != "" {
		if err := c.nc.Publish(c.cfg.ResultSubject, out); err != nil {
			c.logger.Error().Err(err).Str("subject", c.cfg.ResultSubject).Msg("publish failed")
		}
	}
}

// Handle checks one message body and returns the JSON-encoded outcome.
func (c *Consumer) Handle(ctx context.Context, data []byte) ([]byte, error) {
	c.received.Add(1)

	req, err := DecodeRequest(data)
	if err != nil {
		c.invalid.Add(1)
		return nil, err
	}
	req.Source = checker.SourceNATS

	out := c.checker.Check(ctx, req)
	c.checked.Add(1)
	if out.Report.Repair.Changed {
		c.repaired.Add(1)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("feed: encode outcome: %w", err)
	}
	return b, nil
}

// paymentRecord is a payment as emitted by the payments service.
type paymentRecord struct {
	ID              string `json:"id"`
	GatewayMetadata struct {
		QRPayload string `json:"qr_payload"`
		QRCode    string `json:"qr_code"`
	} `json:"gateway_metadata"`
}

func (p *paymentRecord) request() checker.Request {
	return checker.Request{
		Payload:   p.GatewayMetadata.QRPayload,
		QRCode:    p.GatewayMetadata.QRCode,
		PaymentID: p.ID,
	}
}

// DecodeRequest accepts a payment event wrapper ({"payment": {...}}), a
// bare checker request ({"payload": ...}) or a bare payment record.
func DecodeRequest(b []byte) (checker.Request, error) {
	// 1) Event wrapper.
	var w struct {
		Payment *paymentRecord `json:"payment"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return checker.Request{}, fmt.Errorf("feed: invalid json: %w", err)
	}
	if w.Payment != nil && w.Payment.GatewayMetadata.QRPayload != "" {
		return w.Payment.request(), nil
	}

	// 2) Flat request.
	var req checker.Request
	if err := json.Unmarshal(b, &req); err == nil && strings.TrimSpace(req.Payload) != "" {
		req.Payload = strings.TrimSpace(req.Payload)
		return req, nil
	}

	// 3) Payment record.
	var p paymentRecord
	if err := json.Unmarshal(b, &p); err == nil && p.GatewayMetadata.QRPayload != "" {
		return p.request(), nil
	}

	return checker.Request{}, ErrNoPayload
}
