package dispatch

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/model/chat"
)

func TestResolveStep(t *testing.T) {
	tests := []struct {
		name     string
		action   chat.NavigationAction
		current  int
		total    int
		wantStep int
		wantOK   bool
	}{
		{"previous at first step", chat.NavigationAction{Action: "previous"}, 1, 3, 0, false},
		{"next from first", chat.NavigationAction{Action: "next"}, 1, 3, 2, true},
		{"next at last step", chat.NavigationAction{Action: "next"}, 3, 3, 0, false},
		{"previous from last", chat.NavigationAction{Action: "previous"}, 3, 3, 2, true},
		{"specific in range", chat.NavigationAction{Action: "specific", StepNumber: 3}, 1, 3, 3, true},
		{"specific past end", chat.NavigationAction{Action: "specific", StepNumber: 5}, 1, 3, 0, false},
		{"specific zero", chat.NavigationAction{Action: "specific", StepNumber: 0}, 2, 3, 0, false},
		{"unknown action", chat.NavigationAction{Action: "sideways"}, 2, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, ok := ResolveStep(tt.action, tt.current, tt.total)
			if step != tt.wantStep || ok != tt.wantOK {
				t.Fatalf("ResolveStep = (%d, %v), want (%d, %v)", step, ok, tt.wantStep, tt.wantOK)
			}
		})
	}
}

func TestDispatchNavigation(t *testing.T) {
	var navigated []int
	d := NewDispatcher(Effects{
		Navigate: func(_ context.Context, step int) error {
			navigated = append(navigated, step)
			return nil
		},
	}, zap.NewNop())
	state := StepState{CurrentStep: 1, TotalSteps: 3, Active: true}
	ctx := context.Background()

	out := d.Dispatch(ctx, state, chat.TurnResponse{NavigationAction: &chat.NavigationAction{Action: "previous"}})
	if len(navigated) != 0 || len(out.Skipped) != 1 {
		t.Fatalf("previous at step 1 should be a no-op, got %v / %v", navigated, out)
	}

	out = d.Dispatch(ctx, state, chat.TurnResponse{NavigationAction: &chat.NavigationAction{Action: "next"}})
	if out.NavigatedTo != 2 || len(navigated) != 1 || navigated[0] != 2 {
		t.Fatalf("expected navigation to 2, got %v / %v", navigated, out)
	}

	out = d.Dispatch(ctx, state, chat.TurnResponse{NavigationAction: &chat.NavigationAction{Action: "specific", StepNumber: 5}})
	if out.NavigatedTo != 0 || len(navigated) != 1 {
		t.Fatalf("specific 5 of 3 should be a no-op, got %v / %v", navigated, out)
	}
}

func TestDispatchTimerRequiresAllFields(t *testing.T) {
	var created []chat.TimerAction
	d := NewDispatcher(Effects{
		CreateTimer: func(_ context.Context, a chat.TimerAction) error {
			created = append(created, a)
			return nil
		},
	}, zap.NewNop())
	state := StepState{CurrentStep: 1, TotalSteps: 3, Active: true}

	d.Dispatch(context.Background(), state, chat.TurnResponse{
		TimerAction: &chat.TimerAction{Action: "create", Duration: 300, Description: "Boil"},
	})
	if len(created) != 0 {
		t.Fatal("timer without stage should be skipped")
	}

	out := d.Dispatch(context.Background(), state, chat.TurnResponse{
		TimerAction: &chat.TimerAction{Action: "create", Duration: 300, Description: "Boil", Stage: "cooking"},
	})
	if len(created) != 1 || created[0].Duration != 300 {
		t.Fatalf("expected timer creation, got %v", created)
	}
	if len(out.Applied) != 1 || out.Applied[0] != ActionTimer {
		t.Fatalf("unexpected outcome %v", out)
	}
}

func TestDispatchInactiveSession(t *testing.T) {
	called := false
	d := NewDispatcher(Effects{
		CreateTimer: func(context.Context, chat.TimerAction) error { called = true; return nil },
		Navigate:    func(context.Context, int) error { called = true; return nil },
	}, zap.NewNop())

	out := d.Dispatch(context.Background(), StepState{CurrentStep: 1, TotalSteps: 3, Active: false}, chat.TurnResponse{
		TimerAction:      &chat.TimerAction{Action: "create", Duration: 60, Description: "Rest", Stage: "resting"},
		NavigationAction: &chat.NavigationAction{Action: "next"},
	})
	if called {
		t.Fatal("no effect should run for an inactive session")
	}
	if len(out.Skipped) != 2 {
		t.Fatalf("expected both actions skipped, got %v", out)
	}
}

func TestDispatchContainsFailures(t *testing.T) {
	var modified, prepped bool
	d := NewDispatcher(Effects{
		CreateTimer: func(context.Context, chat.TimerAction) error { panic("widget gone") },
		Navigate:    func(context.Context, int) error { return errors.New("ui closed") },
		Modify:      func(context.Context, chat.ModificationAction) error { modified = true; return nil },
		PrepWork:    func(context.Context, chat.PrepWorkAction) error { prepped = true; return nil },
	}, zap.NewNop())

	out := d.Dispatch(context.Background(), StepState{CurrentStep: 1, TotalSteps: 4, Active: true}, chat.TurnResponse{
		TimerAction:        &chat.TimerAction{Action: "create", Duration: 60, Description: "Rest", Stage: "resting"},
		NavigationAction:   &chat.NavigationAction{Action: "next"},
		ModificationAction: &chat.ModificationAction{Type: "ingredient", Target: "butter", NewValue: "oil"},
		PrepWorkAction:     &chat.PrepWorkAction{Action: "list", Tasks: []string{"chop"}},
	})

	if !modified || !prepped {
		t.Fatal("later actions should still run after a failure")
	}
	if len(out.Failed) != 2 || out.NavigatedTo != 0 {
		t.Fatalf("unexpected outcome %v", out)
	}
}

func TestDispatchWithoutHooks(t *testing.T) {
	d := NewDispatcher(Effects{}, zap.NewNop())
	out := d.Dispatch(context.Background(), StepState{CurrentStep: 1, TotalSteps: 2, Active: true}, chat.TurnResponse{
		TimingAction: &chat.TimingAction{Action: "remind", Description: "flip"},
	})
	if len(out.Skipped) != 1 || out.Skipped[0] != ActionTiming {
		t.Fatalf("unexpected outcome %v", out)
	}
}
