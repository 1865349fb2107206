package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewMemoryRepository(), zap.NewNop())
}

func TestRegistryCreateAndGet(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	res, err := reg.Create(ctx, CreateRequest{Duration: 90, Description: "Simmer sauce", Stage: "simmer"})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if res.Message != "Timer set for 01:30" {
		t.Fatalf("unexpected message %q", res.Message)
	}

	got, err := reg.Get(ctx, res.Timer.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if !got.IsRunning {
		t.Fatal("expected timer to be running")
	}
	if got.Duration != 90 || got.TimeLeft != 90 {
		t.Fatalf("unexpected duration/timeLeft %d/%d", got.Duration, got.TimeLeft)
	}
	if got.Stage != "simmer" {
		t.Fatalf("unexpected stage %q", got.Stage)
	}
}

func TestRegistryCreateDefaultsStage(t *testing.T) {
	reg := newTestRegistry()

	res, err := reg.Create(context.Background(), CreateRequest{Duration: 60, Description: "Rest dough"})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if res.Timer.Stage != DefaultStage {
		t.Fatalf("expected default stage, got %q", res.Timer.Stage)
	}
}

func TestRegistryCreateValidation(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	if _, err := reg.Create(ctx, CreateRequest{Duration: 0, Description: "x"}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for zero duration, got %v", err)
	}
	if _, err := reg.Create(ctx, CreateRequest{Duration: 10, Description: "  "}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for blank description, got %v", err)
	}
}

func TestRegistryStopRemovesTimer(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	res, err := reg.Create(ctx, CreateRequest{Duration: 90, Description: "Boil pasta"})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	stopped, err := reg.Stop(ctx, res.Timer.ID)
	if err != nil {
		t.Fatalf("Stop err: %v", err)
	}
	if stopped.Timer.ID != res.Timer.ID {
		t.Fatalf("stop returned wrong timer %s", stopped.Timer.ID)
	}

	if _, err := reg.Get(ctx, res.Timer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after stop, got %v", err)
	}
}

func TestRegistryStartRefreshesStartTime(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reg.now = func() time.Time { return base }
	res, err := reg.Create(ctx, CreateRequest{Duration: 120, Description: "Proof"})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	reg.now = func() time.Time { return base.Add(time.Minute) }
	started, err := reg.Start(ctx, res.Timer.ID)
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if !started.Timer.StartTime.Equal(base.Add(time.Minute)) {
		t.Fatalf("start time not refreshed: %v", started.Timer.StartTime)
	}
	if started.Timer.TimeLeft != 120 {
		t.Fatalf("timeLeft should not be recomputed, got %d", started.Timer.TimeLeft)
	}
}

func TestRegistryUnknownID(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	if _, err := reg.Start(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Start: expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Stop(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stop: expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestRegistryListInsertionOrder(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	var ids []string
	for _, desc := range []string{"first", "second", "third"} {
		res, err := reg.Create(ctx, CreateRequest{Duration: 30, Description: desc})
		if err != nil {
			t.Fatalf("Create err: %v", err)
		}
		ids = append(ids, res.Timer.ID)
	}

	if _, err := reg.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("Delete err: %v", err)
	}

	timers, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(timers) != 2 {
		t.Fatalf("expected 2 timers, got %d", len(timers))
	}
	if timers[0].ID != ids[0] || timers[1].ID != ids[2] {
		t.Fatalf("unexpected order: %s, %s", timers[0].Description, timers[1].Description)
	}
}

func TestFormatClock(t *testing.T) {
	tests := map[int]string{0: "00:00", 5: "00:05", 90: "01:30", 600: "10:00", 7200: "120:00"}
	for in, want := range tests {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%d) = %q, want %q", in, got, want)
		}
	}
}
