package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/waypoint/internal/api/v1"
	"github.com/aevon-lab/waypoint/internal/ingestion"
)

// DefaultTopic matches every OwnTracks device publish.
const DefaultTopic = v1.TopicPrefix + "/+/+"

// Recorder is what the ingestor hands decoded messages to.
type Recorder interface {
	Ingest(ctx context.Context, evt *v1.LocationEvent) (ingestion.Outcome, error)
}

// Ingestor feeds MQTT publishes into a Recorder.
type Ingestor struct {
	recorder Recorder
	timeout  time.Duration
}

func NewIngestor(recorder Recorder, timeout time.Duration) *Ingestor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ingestor{recorder: recorder, timeout: timeout}
}

// HandleMessage decodes one publish and records it. Payloads without a topic
// field take the MQTT topic they arrived on.
func (i *Ingestor) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	var evt v1.LocationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		slog.Warn("Dropping undecodable mqtt message", "topic", topic, "error", err)
		return err
	}
	if evt.Topic == "" {
		evt.Topic = topic
	}

	outcome, err := i.recorder.Ingest(ctx, &evt)
	if err != nil {
		slog.Warn("Failed to ingest mqtt message", "topic", topic, "error", err)
		return err
	}
	slog.Debug("Handled mqtt message", "topic", topic, "outcome", outcome)
	return nil
}

// Handler adapts HandleMessage to Client.Subscribe. Each message gets its own
// timeout derived from ctx; errors are already logged.
func (i *Ingestor) Handler(ctx context.Context) func(Message) {
	return func(m Message) {
		msgCtx, cancel := context.WithTimeout(ctx, i.timeout)
		defer cancel()
		_ = i.HandleMessage(msgCtx, m.Topic(), m.Payload())
	}
}
