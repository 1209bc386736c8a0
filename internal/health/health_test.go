package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestRegistryAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("db", func(_ context.Context) Status {
		return Status{Name: "db", Healthy: true}
	})
	r.Register("cache", func(_ context.Context) Status {
		return Status{Name: "cache", Healthy: true, Detail: "ok"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("all-healthy registry should report healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
}

func TestRegistryOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("db", func(_ context.Context) Status {
		return Status{Name: "db", Healthy: true}
	})
	r.Register("cache", func(_ context.Context) Status {
		return Status{Name: "cache", Healthy: false, Detail: "connection refused"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with unhealthy checker should report unhealthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[1].Detail != "connection refused" {
		t.Fatalf("expected detail 'connection refused', got %q", statuses[1].Detail)
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	// Register concurrently
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register("checker", func(_ context.Context) Status {
				return Status{Name: "checker", Healthy: true}
			})
		}(i)
	}

	// Check concurrently
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	return ctx.Err()
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck("database", fakePinger{}, time.Second)(context.Background())
	if !ok.Healthy || ok.Name != "database" {
		t.Fatalf("expected healthy database, got %+v", ok)
	}

	bad := PingCheck("database", fakePinger{err: errors.New("connection refused")}, time.Second)(context.Background())
	if bad.Healthy {
		t.Fatal("expected unhealthy status")
	}
	if bad.Detail != "connection refused" {
		t.Fatalf("unexpected detail %q", bad.Detail)
	}
}

func TestReadyCheck(t *testing.T) {
	loaded := false
	check := ReadyCheck("model", func() bool { return loaded }, "model not loaded")

	if s := check(context.Background()); s.Healthy || s.Detail != "model not loaded" {
		t.Fatalf("expected not ready, got %+v", s)
	}
	loaded = true
	if s := check(context.Background()); !s.Healthy {
		t.Fatalf("expected ready, got %+v", s)
	}
}

func TestCheckAll_FillsMissingName(t *testing.T) {
	r := NewRegistry()
	r.Register("model", func(_ context.Context) Status { return Status{Healthy: true} })

	_, statuses := r.CheckAll(context.Background())
	if statuses[0].Name != "model" {
		t.Fatalf("expected name from registration, got %q", statuses[0].Name)
	}
}
