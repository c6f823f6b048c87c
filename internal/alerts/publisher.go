// Package alerts fans persisted analysis alerts out to downstream consumers.
package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

// Publisher delivers alerts to a backend.
type Publisher interface {
	Publish(ctx context.Context, alert analysis.Alert) error
	Close() error
}

// messageVersion is bumped when Message changes shape.
const messageVersion = 1

// Message is the payload sent to alert consumers.
type Message struct {
	Alert       analysis.Alert `json:"alert"`
	PublishedAt string         `json:"publishedAt"`
	Version     int            `json:"version"`
}

// EncodeMessage wraps an alert in the versioned envelope.
func EncodeMessage(alert analysis.Alert, at time.Time) ([]byte, error) {
	return json.Marshal(Message{
		Alert:       alert,
		PublishedAt: at.UTC().Format(time.RFC3339),
		Version:     messageVersion,
	})
}

// DecodeMessage parses a payload produced by EncodeMessage.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Noop discards alerts.
type Noop struct{}

func (Noop) Publish(context.Context, analysis.Alert) error { return nil }
func (Noop) Close() error                                  { return nil }
