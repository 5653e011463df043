package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aevon-lab/waypoint/internal/core/partition"
	"github.com/aevon-lab/waypoint/internal/latest"
	"github.com/aevon-lab/waypoint/internal/recordlog"
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound marks reads of a shard or tier that was never written.
	ErrNotFound = errors.New("not found")
)

// LogReader is the read side of the location log.
type LogReader interface {
	Read(ctx context.Context, key partition.Key) ([]byte, error)
	ListUsers(ctx context.Context) ([]string, error)
	ListDevices(ctx context.Context, user string) ([]string, error)
	ListPartitions(ctx context.Context, user, device string) ([]string, error)
}

// LatestReader is the read side of the latest-location cache.
type LatestReader interface {
	Fetch(ctx context.Context, key latest.Key) ([]json.RawMessage, error)
}

// Service answers history and latest-location queries.
type Service struct {
	log    LogReader
	latest LatestReader
}

func NewService(log LogReader, latest LatestReader) *Service {
	if log == nil {
		panic("projection: log reader must not be nil")
	}
	if latest == nil {
		panic("projection: latest reader must not be nil")
	}
	return &Service{log: log, latest: latest}
}

// List returns shard file names when both user and device are set, the
// user's devices when only user is set, and every user otherwise.
func (s *Service) List(ctx context.Context, q ListQuery) (interface{}, error) {
	switch {
	case q.User != "" && q.Device != "":
		files, err := s.log.ListPartitions(ctx, q.User, q.Device)
		if err != nil {
			return nil, err
		}
		return nonNil(files), nil
	case q.User != "":
		devices, err := s.log.ListDevices(ctx, q.User)
		if err != nil {
			return nil, err
		}
		return ListResponse{Results: nonNil(devices)}, nil
	default:
		users, err := s.log.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		return ListResponse{Results: nonNil(users)}, nil
	}
}

// Last returns the most specific latest-location tier the query addresses.
func (s *Service) Last(ctx context.Context, q LastQuery) ([]json.RawMessage, error) {
	entries, err := s.latest.Fetch(ctx, latest.ForQuery(q.User, q.Device))
	if errors.Is(err, latest.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return latest.Project(entries, q.fieldList()), nil
}

// Shard returns the raw content of one month of a device's history.
func (s *Service) Shard(ctx context.Context, q RecQuery) ([]byte, error) {
	key, err := q.partitionKey()
	if err != nil {
		return nil, err
	}

	content, err := s.log.Read(ctx, key)
	if errors.Is(err, recordlog.ErrNotFound) {
		return nil, ErrNotFound
	}
	return content, err
}

// Records is Shard parsed into individual lines.
func (s *Service) Records(ctx context.Context, q RecQuery) ([]RecordView, error) {
	content, err := s.Shard(ctx, q)
	if err != nil {
		return nil, err
	}

	records := recordlog.ParseRecords(content)
	views := make([]RecordView, len(records))
	for i, rec := range records {
		views[i] = RecordView{Timestamp: rec.Timestamp, Event: rec.Event}
	}
	return views, nil
}

func (q RecQuery) partitionKey() (partition.Key, error) {
	switch {
	case q.User == "":
		return partition.Key{}, invalidQueryf("user is required")
	case q.Device == "":
		return partition.Key{}, invalidQueryf("device is required")
	case q.Month == "":
		return partition.Key{}, invalidQueryf("month is required")
	}
	if _, err := partition.ParseMonth(q.Month); err != nil {
		return partition.Key{}, invalidQueryf("%v", err)
	}
	switch q.Format {
	case "", "json", "text":
	default:
		return partition.Key{}, invalidQueryf("invalid format: %s (must be text or json)", q.Format)
	}
	return partition.Key{User: q.User, Device: q.Device, YearMonth: q.Month}, nil
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
