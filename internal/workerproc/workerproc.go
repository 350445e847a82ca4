package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"labreport-backend/internal/queue"
	"labreport-backend/internal/reports"
)

// Processor runs the pipeline for a queued report.
type Processor interface {
	ProcessQueued(ctx context.Context, msg queue.Message) (reports.Outcome, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingReportID indicates a message without a report id.
type ErrMissingReportID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingReportID) Error() string { return "missing report id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ReportID  string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process report"
	}
	return "process report: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether redelivering the message cannot help: the
// payload is malformed or the report no longer exists.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingReportID
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &decode), errors.As(err, &missing):
		return true
	case errors.Is(err, reports.ErrNotFound), errors.Is(err, reports.ErrEmptyText):
		return true
	default:
		return false
	}
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ReportID) == "" {
		return msg, meta, ErrMissingReportID{Meta: meta, RequestID: msg.RequestID}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrDecode{Meta: meta, Err: err}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, p Processor, body string) (queue.Message, error) {
	if p == nil {
		return queue.Message{}, errors.New("report processor not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return msg, err
	}
	if _, err := p.ProcessQueued(reports.WithRequestID(ctx, msg.RequestID), msg); err != nil {
		return msg, ErrProcess{ReportID: msg.ReportID, RequestID: msg.RequestID, Err: err}
	}
	return msg, nil
}
