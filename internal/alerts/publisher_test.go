package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

var sampleAlert = analysis.Alert{
	ID:         "alert-1",
	TaskID:     "task-1",
	ConfigID:   "cfg-1",
	CameraName: "north gate.cam",
	AlertType:  analysis.AlertTypeImmediate,
	Severity:   analysis.SeverityCritical,
	Title:      "Gate Open Alert - north gate.cam",
	Confidence: 0.95,
}

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	return &sqs.SendMessageOutput{}, f.err
}

type fakeNATS struct {
	msgs    []*nats.Msg
	drained bool
}

func (f *fakeNATS) PublishMsg(msg *nats.Msg) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeNATS) Drain() error {
	f.drained = true
	return nil
}

func TestMessageRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	payload, err := EncodeMessage(sampleAlert, at)
	require.NoError(t, err)

	msg, err := DecodeMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, sampleAlert, msg.Alert)
	assert.Equal(t, "2025-06-01T06:00:00Z", msg.PublishedAt)
	assert.Equal(t, messageVersion, msg.Version)
}

func TestSQSPublisher(t *testing.T) {
	client := &fakeSQS{}
	pub := NewSQSPublisherWithClient(client, "https://sqs.us-east-1.amazonaws.com/123/alerts")

	require.NoError(t, pub.Publish(context.Background(), sampleAlert))
	require.NotNil(t, client.input)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/alerts", *client.input.QueueUrl)
	msg, err := DecodeMessage([]byte(*client.input.MessageBody))
	require.NoError(t, err)
	assert.Equal(t, "alert-1", msg.Alert.ID)
	assert.Equal(t, "critical", *client.input.MessageAttributes["severity"].StringValue)

	client.err = errors.New("throttled")
	assert.ErrorContains(t, pub.Publish(context.Background(), sampleAlert), "sqs send message")
}

func TestNATSPublisher(t *testing.T) {
	conn := &fakeNATS{}
	pub := newNATSPublisher(conn, "")

	require.NoError(t, pub.Publish(context.Background(), sampleAlert))
	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "rancheye.alerts.north_gate_cam", conn.msgs[0].Subject)
	assert.Equal(t, "critical", conn.msgs[0].Header.Get("Severity"))

	noCamera := sampleAlert
	noCamera.CameraName = ""
	require.NoError(t, pub.Publish(context.Background(), noCamera))
	assert.Equal(t, "rancheye.alerts", conn.msgs[1].Subject)

	require.NoError(t, pub.Close())
	assert.True(t, conn.drained)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), sampleAlert))
	assert.NoError(t, p.Close())
}
