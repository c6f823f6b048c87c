package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

// natsConn is the subset of *nats.Conn used here.
type natsConn interface {
	PublishMsg(msg *nats.Msg) error
	Drain() error
}

// NATSPublisher publishes alerts on a subject, suffixed with the camera name.
type NATSPublisher struct {
	conn    natsConn
	subject string
	now     func() time.Time
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("NATS_URL is required")
	}
	nc, err := nats.Connect(url,
		nats.Name("rancheye-analysis-worker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSPublisher(nc, subject), nil
}

func newNATSPublisher(conn natsConn, subject string) *NATSPublisher {
	if strings.TrimSpace(subject) == "" {
		subject = "rancheye.alerts"
	}
	return &NATSPublisher{conn: conn, subject: subject, now: time.Now}
}

// Publish sends one alert to <subject>.<camera>.
func (p *NATSPublisher) Publish(ctx context.Context, alert analysis.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMessage(alert, p.now())
	if err != nil {
		return fmt.Errorf("encode nats message: %w", err)
	}
	msg := nats.NewMsg(p.subjectFor(alert))
	msg.Data = payload
	msg.Header.Set("Severity", alert.Severity)
	msg.Header.Set("Alert-Type", alert.AlertType)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (p *NATSPublisher) subjectFor(alert analysis.Alert) string {
	camera := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, strings.TrimSpace(alert.CameraName))
	if camera == "" {
		return p.subject
	}
	return p.subject + "." + camera
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
