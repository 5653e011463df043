package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/waypoint/internal/api/v1"
	"github.com/aevon-lab/waypoint/internal/core/partition"
	"github.com/aevon-lab/waypoint/internal/metrics"
	"github.com/aevon-lab/waypoint/internal/recordlog"
)

// ErrStorageFailure wraps any cache or log error hit while recording an event.
var ErrStorageFailure = errors.New("storage failure")

// Outcome tells a caller what happened to an accepted message.
type Outcome int

const (
	// OutcomeIgnored means the message was not a location report. Nothing was written.
	OutcomeIgnored Outcome = iota
	// OutcomeRecorded means the cache tiers and the log shard were both written.
	OutcomeRecorded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return metrics.OutcomeIgnored
	case OutcomeRecorded:
		return metrics.OutcomeRecorded
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// LocationCache is the latest-location projection.
type LocationCache interface {
	Record(ctx context.Context, user, device string, event json.RawMessage) error
}

// LocationLog is the append-only history.
type LocationLog interface {
	Append(ctx context.Context, key partition.Key, rec recordlog.Record) error
}

// Coordinator turns one location message into a cache update followed by a
// log append. It holds no per-device state; callers may invoke Ingest from
// any number of goroutines.
type Coordinator struct {
	cache LocationCache
	log   LocationLog
	now   func() time.Time
}

type CoordinatorOption func(*Coordinator)

// WithClock replaces time.Now as the fallback timestamp for messages
// without tst.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(cache LocationCache, log LocationLog, opts ...CoordinatorOption) *Coordinator {
	if cache == nil {
		panic("ingestion: cache must not be nil")
	}
	if log == nil {
		panic("ingestion: log must not be nil")
	}
	c := &Coordinator{cache: cache, log: log, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest validates evt and records it.
//
// Validation errors are returned unwrapped (v1.ErrInvalidPayload,
// v1.ErrMissingTopic, v1.ErrInvalidTopicFormat). Storage errors wrap
// ErrStorageFailure. A cache error means the log was not touched; a log error
// leaves the cache already updated.
func (c *Coordinator) Ingest(ctx context.Context, evt *v1.LocationEvent) (Outcome, error) {
	if !evt.IsLocation() {
		metrics.IngestEvents.WithLabelValues(metrics.OutcomeIgnored).Inc()
		return OutcomeIgnored, nil
	}

	user, device, err := evt.Validate()
	if err != nil {
		metrics.IngestEvents.WithLabelValues(metrics.OutcomeRejected).Inc()
		return OutcomeIgnored, err
	}

	at := evt.EffectiveTime(c.now())
	rec, err := recordlog.NewRecord(at, evt)
	if err != nil {
		metrics.IngestEvents.WithLabelValues(metrics.OutcomeFailed).Inc()
		return OutcomeIgnored, fmt.Errorf("encode event: %w", err)
	}

	if err := c.cache.Record(ctx, user, device, rec.Event); err != nil {
		metrics.StorageFailures.WithLabelValues(metrics.StageCache).Inc()
		metrics.IngestEvents.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.Error("Failed to update latest locations", "user", user, "device", device, "error", err)
		return OutcomeIgnored, fmt.Errorf("%w: update latest locations: %w", ErrStorageFailure, err)
	}

	key := partition.For(user, device, at)
	if err := c.log.Append(ctx, key, rec); err != nil {
		metrics.StorageFailures.WithLabelValues(metrics.StageLog).Inc()
		metrics.IngestEvents.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.Error("Failed to append location", "user", user, "device", device, "shard", key.ObjectKey(), "error", err)
		return OutcomeIgnored, fmt.Errorf("%w: append to %s: %w", ErrStorageFailure, key.ObjectKey(), err)
	}

	metrics.IngestEvents.WithLabelValues(metrics.OutcomeRecorded).Inc()
	slog.Info("Recorded location", "user", user, "device", device, "shard", key.ObjectKey())
	return OutcomeRecorded, nil
}
