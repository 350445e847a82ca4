package queue

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// ErrInvalidMessage is returned for payloads without a report id or with a
// version newer than this build understands.
var ErrInvalidMessage = eris.New("queue: invalid message")

// Message asks a worker to analyze one report whose text is already stored.
type Message struct {
	ReportID   string `json:"reportId"`
	TextKey    string `json:"textKey"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a message with the current version and enqueue time.
func NewMessage(reportID, textKey, requestID string, now time.Time) Message {
	return Message{
		ReportID:   reportID,
		TextKey:    textKey,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// Validate checks the fields a worker needs. Version 0 is read as 1.
func (m Message) Validate() error {
	if strings.TrimSpace(m.ReportID) == "" {
		return eris.Wrap(ErrInvalidMessage, "missing reportId")
	}
	if m.Version > MessageVersion {
		return eris.Wrapf(ErrInvalidMessage, "unsupported version %d", m.Version)
	}
	return nil
}

// EncodeMessage returns the JSON payload for msg.
func EncodeMessage(msg Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, eris.Wrap(err, "queue: encode message")
	}
	return b, nil
}

// DecodeMessage parses a JSON payload. It does not validate; callers that
// need the report id call Validate.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, eris.Wrap(err, "queue: decode message")
	}
	return msg, nil
}
