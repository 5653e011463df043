package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	v1 "github.com/aevon-lab/waypoint/internal/api/v1"
	"github.com/aevon-lab/waypoint/internal/core/partition"
	"github.com/aevon-lab/waypoint/internal/core/storage/memory"
	"github.com/aevon-lab/waypoint/internal/latest"
	"github.com/aevon-lab/waypoint/internal/metrics"
	storagemocks "github.com/aevon-lab/waypoint/internal/mocks/storage"
	"github.com/aevon-lab/waypoint/internal/recordlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 8, 12, 30, 0, 0, time.UTC)

type memoryBackends struct {
	objects *memory.Store
	kv      *memory.Store
	coord   *Coordinator
}

func newMemoryBackends() *memoryBackends {
	objects, kv := memory.New(), memory.New()
	coord := NewCoordinator(
		latest.NewCache(kv),
		recordlog.NewStore(objects),
		WithClock(func() time.Time { return fixedNow }),
	)
	return &memoryBackends{objects: objects, kv: kv, coord: coord}
}

func parse(t *testing.T, body string) *v1.LocationEvent {
	t.Helper()
	var evt v1.LocationEvent
	require.NoError(t, json.Unmarshal([]byte(body), &evt))
	return &evt
}

func TestCoordinator_RecordsLocation(t *testing.T) {
	ctx := context.Background()
	b := newMemoryBackends()
	body := `{"_type":"location","lat":1.0,"lon":2.0,"topic":"owntracks/alice/phone","tst":1700000000,"batt":55}`

	outcome, err := b.coord.Ingest(ctx, parse(t, body))
	require.NoError(t, err)
	require.Equal(t, OutcomeRecorded, outcome)

	shard, err := b.objects.Get(ctx, "rec/alice/phone/2023-11.rec")
	require.NoError(t, err)
	records := recordlog.ParseRecords(shard)
	require.Len(t, records, 1)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), records[0].Timestamp)
	require.JSONEq(t, body, string(records[0].Event))

	for _, key := range []string{"last:alice:phone", "last:alice", "last:all"} {
		tier, err := b.kv.Get(ctx, key)
		require.NoError(t, err, key)
		require.JSONEq(t, "["+body+"]", string(tier), key)
	}
}

func TestCoordinator_FallsBackToClock(t *testing.T) {
	ctx := context.Background()
	b := newMemoryBackends()

	_, err := b.coord.Ingest(ctx, parse(t, `{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone","tst":0}`))
	require.NoError(t, err)

	shard, err := b.objects.Get(ctx, "rec/alice/phone/2026-02.rec")
	require.NoError(t, err)
	require.Equal(t, fixedNow, recordlog.ParseRecords(shard)[0].Timestamp)
}

func TestCoordinator_IgnoresNonLocation(t *testing.T) {
	b := newMemoryBackends()
	before := testutil.ToFloat64(metrics.IngestEvents.WithLabelValues(metrics.OutcomeIgnored))

	outcome, err := b.coord.Ingest(context.Background(), parse(t, `{"_type":"ping","lat":"x"}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, outcome)
	require.Zero(t, b.objects.Len())
	require.Zero(t, b.kv.Len())
	require.Equal(t, before+1, testutil.ToFloat64(metrics.IngestEvents.WithLabelValues(metrics.OutcomeIgnored)))
}

func TestCoordinator_ValidationFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"missing lon", `{"_type":"location","lat":1,"topic":"owntracks/alice/phone"}`, v1.ErrInvalidPayload},
		{"zero lon", `{"_type":"location","lat":1,"lon":0,"topic":"owntracks/alice/phone"}`, v1.ErrInvalidPayload},
		{"missing topic", `{"_type":"location","lat":1,"lon":2}`, v1.ErrMissingTopic},
		{"wrong prefix", `{"_type":"location","lat":1,"lon":2,"topic":"foo/alice/phone"}`, v1.ErrInvalidTopicFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newMemoryBackends()
			_, err := b.coord.Ingest(context.Background(), parse(t, tc.body))
			require.ErrorIs(t, err, tc.wantErr)
			require.NotErrorIs(t, err, ErrStorageFailure)
			require.Zero(t, b.objects.Len())
			require.Zero(t, b.kv.Len())
		})
	}
}

func TestCoordinator_CacheFailureSkipsAppend(t *testing.T) {
	kv := storagemocks.NewKeyValueStore(t)
	kv.EXPECT().
		Set(mock.Anything, "last:alice:phone", mock.Anything).
		Return(errors.New("kv unavailable")).
		Once()

	// No expectations: any call fails the test.
	objects := storagemocks.NewObjectStore(t)

	before := testutil.ToFloat64(metrics.StorageFailures.WithLabelValues(metrics.StageCache))
	coord := NewCoordinator(latest.NewCache(kv), recordlog.NewStore(objects))

	_, err := coord.Ingest(context.Background(), parse(t, `{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone"}`))
	require.ErrorIs(t, err, ErrStorageFailure)
	require.ErrorContains(t, err, "kv unavailable")
	require.Equal(t, before+1, testutil.ToFloat64(metrics.StorageFailures.WithLabelValues(metrics.StageCache)))
}

func TestCoordinator_LogFailureKeepsCacheUpdate(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	objects := storagemocks.NewObjectStore(t)
	objects.EXPECT().
		Get(mock.Anything, "rec/alice/phone/2023-11.rec").
		Return(nil, errors.New("bucket gone")).
		Once()

	coord := NewCoordinator(latest.NewCache(kv), recordlog.NewStore(objects))
	_, err := coord.Ingest(ctx, parse(t, `{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone","tst":1700000000}`))
	require.ErrorIs(t, err, ErrStorageFailure)

	_, err = kv.Get(ctx, "last:alice:phone")
	require.NoError(t, err)
}

type recordingLog struct {
	keys []partition.Key
}

func (r *recordingLog) Append(_ context.Context, key partition.Key, _ recordlog.Record) error {
	r.keys = append(r.keys, key)
	return nil
}

type recordingCache struct {
	events int
}

func (r *recordingCache) Record(context.Context, string, string, json.RawMessage) error {
	r.events++
	return nil
}

func TestCoordinator_PartitionsByEffectiveMonth(t *testing.T) {
	cache, log := &recordingCache{}, &recordingLog{}
	coord := NewCoordinator(cache, log, WithClock(func() time.Time { return fixedNow }))

	for _, body := range []string{
		`{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone","tst":1700000000}`,
		`{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone","tst":1701388800}`,
		`{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone"}`,
	} {
		_, err := coord.Ingest(context.Background(), parse(t, body))
		require.NoError(t, err)
	}

	require.Equal(t, 3, cache.events)
	require.Equal(t, []partition.Key{
		{User: "alice", Device: "phone", YearMonth: "2023-11"},
		{User: "alice", Device: "phone", YearMonth: "2023-12"},
		{User: "alice", Device: "phone", YearMonth: "2026-02"},
	}, log.keys)
}

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "recorded", OutcomeRecorded.String())
	require.Equal(t, "ignored", OutcomeIgnored.String())
}
