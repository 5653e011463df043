package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aevon-lab/waypoint/internal/core/storage/memory"
	"github.com/aevon-lab/waypoint/internal/ingestion"
	"github.com/aevon-lab/waypoint/internal/latest"
	"github.com/aevon-lab/waypoint/internal/projection"
	"github.com/aevon-lab/waypoint/internal/recordlog"
	"github.com/stretchr/testify/require"
)

type stack struct {
	objects *memory.Store
	kv      *memory.Store
	handler http.Handler
}

func newStack(t *testing.T, opts Options) *stack {
	t.Helper()

	objects, kv := memory.New(), memory.New()
	log := recordlog.NewStore(objects)
	cache := latest.NewCache(kv)

	opts.Mode = "release"
	srv := New(opts)
	ingestion.NewService(ingestion.NewCoordinator(cache, log), 1).RegisterRoutes(srv.API)
	projection.NewService(log, cache).RegisterRoutes(srv.API)

	return &stack{objects: objects, kv: kv, handler: srv.Handler()}
}

func (s *stack) do(method, target, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func withBasicAuth(user, pass string) func(*http.Request) {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}

func tierLen(t *testing.T, s *stack, key string) int {
	t.Helper()
	raw, err := s.kv.Get(context.Background(), key)
	require.NoError(t, err, key)
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &entries))
	return len(entries)
}

// Scenario: a valid location report lands in the log and every cache tier.
func TestEndToEnd_RecordLocation(t *testing.T) {
	s := newStack(t, Options{})

	resp := s.do(http.MethodPost, "/", `{"_type":"location","lat":1.0,"lon":2.0,"topic":"owntracks/alice/phone","tst":1700000000}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `[]`, resp.Body.String())

	shard, err := s.objects.Get(context.Background(), "rec/alice/phone/2023-11.rec")
	require.NoError(t, err)
	require.Len(t, recordlog.ParseRecords(shard), 1)

	for _, key := range []string{"last:alice:phone", "last:alice", "last:all"} {
		require.Equal(t, 1, tierLen(t, s, key), key)
	}

	resp = s.do(http.MethodGet, "/api/0/last?user=alice&device=phone", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `[{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone","tst":1700000000}]`, resp.Body.String())

	resp = s.do(http.MethodGet, "/api/0/list?user=alice&device=phone", "")
	require.JSONEq(t, `["2023-11.rec"]`, resp.Body.String())
}

// Scenario: non-location messages are acknowledged and not stored.
func TestEndToEnd_PingIgnored(t *testing.T) {
	s := newStack(t, Options{})

	resp := s.do(http.MethodPost, "/", `{"_type":"ping"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `[]`, resp.Body.String())
	require.Zero(t, s.objects.Len())
	require.Zero(t, s.kv.Len())
}

// Scenarios: missing lon and a wrong topic prefix are rejected without writes.
func TestEndToEnd_ValidationFailures(t *testing.T) {
	s := newStack(t, Options{})

	resp := s.do(http.MethodPost, "/", `{"_type":"location","lat":1.0,"topic":"owntracks/alice/phone"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid_payload")

	resp = s.do(http.MethodPost, "/", `{"_type":"location","lat":1.0,"lon":2.0,"topic":"foo/alice/phone"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid_topic_format")

	require.Zero(t, s.objects.Len())
	require.Zero(t, s.kv.Len())
}

// Scenario: two phone reports then one watch report leave two user-tier entries.
func TestEndToEnd_UserTierOneEntryPerDevice(t *testing.T) {
	s := newStack(t, Options{})

	for _, body := range []string{
		`{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone","tst":1700000000}`,
		`{"_type":"location","lat":3,"lon":4,"topic":"owntracks/alice/phone","tst":1700000060}`,
		`{"_type":"location","lat":5,"lon":6,"topic":"owntracks/alice/watch","tst":1700000120}`,
	} {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/", body).Code)
	}

	resp := s.do(http.MethodGet, "/api/0/last?user=alice&fields=lat,topic", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t,
		`[{"lat":3,"topic":"owntracks/alice/phone"},{"lat":5,"topic":"owntracks/alice/watch"}]`,
		resp.Body.String())

	shard, err := s.objects.Get(context.Background(), "rec/alice/phone/2023-11.rec")
	require.NoError(t, err)
	require.Len(t, recordlog.ParseRecords(shard), 2)
}

// Scenario: latest for an unknown user is a 404, not an empty list.
func TestEndToEnd_LastUnknownUser(t *testing.T) {
	s := newStack(t, Options{})

	resp := s.do(http.MethodGet, "/api/0/last?user=nobody", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Contains(t, resp.Body.String(), "not_found")
}

func TestBasicAuth(t *testing.T) {
	s := newStack(t, Options{Username: "owntracks", Password: "s3cret"})

	resp := s.do(http.MethodGet, "/api/0/list", "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, `Basic realm="Secure Area"`, resp.Header().Get("WWW-Authenticate"))

	resp = s.do(http.MethodGet, "/api/0/list", "", withBasicAuth("owntracks", "wrong"))
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = s.do(http.MethodPost, "/pub", `{"_type":"location","lat":1,"lon":2,"topic":"owntracks/alice/phone"}`, withBasicAuth("owntracks", "s3cret"))
	require.Equal(t, http.StatusOK, resp.Code)

	// Probes bypass auth.
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "").Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newStack(t, Options{
		Username:         "owntracks",
		Password:         "s3cret",
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowCredentials: true,
	})

	resp := s.do(http.MethodOptions, "/api/0/last", "", func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:5173")
		r.Header.Set("Access-Control-Request-Method", http.MethodGet)
		r.Header.Set("Access-Control-Request-Headers", "Authorization")
	})
	require.Less(t, resp.Code, 300)
	require.Equal(t, "http://localhost:5173", resp.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))

	resp = s.do(http.MethodGet, "/api/0/list", "", withBasicAuth("owntracks", "s3cret"), func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example.com")
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	healthy := newStack(t, Options{HealthCheckers: map[string]HealthChecker{
		"log_store": pingFunc(func(context.Context) error { return nil }),
	}})
	resp := healthy.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"status":"healthy","components":{"log_store":"connected"}}`, resp.Body.String())

	broken := newStack(t, Options{HealthCheckers: map[string]HealthChecker{
		"log_store": pingFunc(func(context.Context) error { return nil }),
		"cache":     pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	}})
	resp = broken.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.JSONEq(t, `{"status":"unhealthy","components":{"cache":"unreachable","log_store":"connected"}}`, resp.Body.String())
}

func TestRequestID(t *testing.T) {
	s := newStack(t, Options{})

	resp := s.do(http.MethodGet, "/health", "")
	require.NotEmpty(t, resp.Header().Get(requestIDHeader))

	resp = s.do(http.MethodGet, "/health", "", func(r *http.Request) { r.Header.Set(requestIDHeader, "abc-123") })
	require.Equal(t, "abc-123", resp.Header().Get(requestIDHeader))
}
