package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/cafe-storefront/internal/health"
)

type stubChecker struct {
	backendErr error
	redisErr   error
}

func (s stubChecker) PingBackend(_ context.Context, _ time.Duration) error {
	return s.backendErr
}

func (s stubChecker) PingRedis(_ context.Context, _ time.Duration) error {
	return s.redisErr
}

type stubBackend struct{ err error }

func (s stubBackend) Ping(context.Context) error { return s.err }

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}, BackendTimeout: 50 * time.Millisecond, RedisTimeout: 50 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["backend"] != "ok" || status["redis"] != "ok" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestReadyFailure(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{backendErr: errors.New("backend down")}, BackendTimeout: 10 * time.Millisecond, RedisTimeout: 10 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}

func TestProbes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	probes := health.Probes{Backend: stubBackend{}, Redis: rdb}
	if err := probes.PingRedis(context.Background(), time.Second); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	if err := probes.PingBackend(context.Background(), time.Second); err != nil {
		t.Fatalf("ping backend: %v", err)
	}

	mr.Close()
	if err := probes.PingRedis(context.Background(), 100*time.Millisecond); err == nil {
		t.Fatal("expected redis ping to fail after shutdown")
	}
	probes.Backend = stubBackend{err: errors.New("unreachable")}
	if err := probes.PingBackend(context.Background(), time.Second); err == nil {
		t.Fatal("expected backend ping to fail")
	}
}

type countingChecker struct{ pings int }

func (c *countingChecker) PingBackend(context.Context, time.Duration) error { c.pings++; return nil }
func (c *countingChecker) PingRedis(context.Context, time.Duration) error   { c.pings++; return nil }

func TestReadyWhileDrainingSkipsProbes(t *testing.T) {
	checker := &countingChecker{}
	handler := health.Handler{Checker: checker}
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(false)
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while draining, got %d", rr.Code)
	}
	if checker.pings != 0 {
		t.Fatalf("draining replica must not probe dependencies, got %d pings", checker.pings)
	}

	health.SetReady(true)
	rr = httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK || checker.pings != 2 {
		t.Fatalf("expected 200 after two probes, got %d with %d pings", rr.Code, checker.pings)
	}
}
