// Package dispatch turns the optional tool actions of an assistant reply
// into side effects. A failing effect never aborts the others.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/model/chat"
	"github.com/rknm-cell/mise/backend/internal/observability"
)

// StepState is the recipe progress a reply is applied against.
type StepState struct {
	CurrentStep int
	TotalSteps  int
	// Active is false once the owning session has ended; nothing is applied.
	Active bool
}

// Effects are the side effects a reply can trigger. Nil hooks are skipped.
type Effects struct {
	CreateTimer func(ctx context.Context, action chat.TimerAction) error
	Navigate    func(ctx context.Context, step int) error
	Modify      func(ctx context.Context, action chat.ModificationAction) error
	PrepWork    func(ctx context.Context, action chat.PrepWorkAction) error
	Timing      func(ctx context.Context, action chat.TimingAction) error
}

// Action names used in Outcome and metrics.
const (
	ActionTimer        = "timer"
	ActionNavigation   = "navigation"
	ActionModification = "modification"
	ActionPrepWork     = "prep"
	ActionTiming       = "timing"
)

// Outcome reports what happened to each action present in a reply.
type Outcome struct {
	Applied []string
	Skipped []string
	Failed  []string
	// NavigatedTo is the step moved to, or 0.
	NavigatedTo int
}

// Dispatcher applies tool actions through Effects.
type Dispatcher struct {
	effects Effects
	log     *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(effects Effects, log *zap.Logger) *Dispatcher {
	return &Dispatcher{effects: effects, log: log}
}

// Dispatch applies every tool action in resp that is valid for state.
func (d *Dispatcher) Dispatch(ctx context.Context, state StepState, resp chat.TurnResponse) Outcome {
	var out Outcome

	if !state.Active {
		for _, name := range presentActions(resp) {
			out.skip(name)
		}
		if len(out.Skipped) > 0 {
			d.log.Debug("discarding actions for inactive session", zap.Strings("actions", out.Skipped))
		}
		return out
	}

	if a := resp.TimerAction; a != nil {
		if timerComplete(*a) && d.effects.CreateTimer != nil {
			d.apply(ctx, &out, ActionTimer, func(ctx context.Context) error {
				return d.effects.CreateTimer(ctx, *a)
			})
		} else {
			out.skip(ActionTimer)
		}
	}

	if a := resp.NavigationAction; a != nil {
		step, ok := ResolveStep(*a, state.CurrentStep, state.TotalSteps)
		if ok && d.effects.Navigate != nil {
			if d.apply(ctx, &out, ActionNavigation, func(ctx context.Context) error {
				return d.effects.Navigate(ctx, step)
			}) {
				out.NavigatedTo = step
			}
		} else {
			out.skip(ActionNavigation)
		}
	}

	if a := resp.ModificationAction; a != nil {
		if d.effects.Modify != nil {
			d.apply(ctx, &out, ActionModification, func(ctx context.Context) error {
				return d.effects.Modify(ctx, *a)
			})
		} else {
			out.skip(ActionModification)
		}
	}

	if a := resp.PrepWorkAction; a != nil {
		if d.effects.PrepWork != nil {
			d.apply(ctx, &out, ActionPrepWork, func(ctx context.Context) error {
				return d.effects.PrepWork(ctx, *a)
			})
		} else {
			out.skip(ActionPrepWork)
		}
	}

	if a := resp.TimingAction; a != nil {
		if d.effects.Timing != nil {
			d.apply(ctx, &out, ActionTiming, func(ctx context.Context) error {
				return d.effects.Timing(ctx, *a)
			})
		} else {
			out.skip(ActionTiming)
		}
	}

	return out
}

// ResolveStep returns the step a navigation action targets, or false when
// the move is out of range. Steps are never clamped or wrapped.
func ResolveStep(a chat.NavigationAction, current, total int) (int, bool) {
	switch a.Action {
	case chat.NavigateNext:
		if current < total {
			return current + 1, true
		}
	case chat.NavigatePrevious:
		if current > 1 {
			return current - 1, true
		}
	case chat.NavigateSpecific:
		if a.StepNumber >= 1 && a.StepNumber <= total {
			return a.StepNumber, true
		}
	}
	return 0, false
}

func timerComplete(a chat.TimerAction) bool {
	return a.Action == "create" && a.Duration > 0 && a.Description != "" && a.Stage != ""
}

// apply runs fn, recovering panics. It reports whether fn succeeded.
func (d *Dispatcher) apply(ctx context.Context, out *Outcome, name string, fn func(context.Context) error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("tool action panicked", zap.String("action", name), zap.Any("panic", r))
			out.fail(name)
			ok = false
		}
	}()

	if err := fn(ctx); err != nil {
		d.log.Warn("tool action failed", zap.String("action", name), zap.Error(err))
		out.fail(name)
		return false
	}
	out.Applied = append(out.Applied, name)
	observability.DispatchedActionsTotal.WithLabelValues(name, "applied").Inc()
	return true
}

func (o *Outcome) skip(name string) {
	o.Skipped = append(o.Skipped, name)
	observability.DispatchedActionsTotal.WithLabelValues(name, "skipped").Inc()
}

func (o *Outcome) fail(name string) {
	o.Failed = append(o.Failed, name)
	observability.DispatchedActionsTotal.WithLabelValues(name, "failed").Inc()
}

func presentActions(resp chat.TurnResponse) []string {
	var names []string
	if resp.TimerAction != nil {
		names = append(names, ActionTimer)
	}
	if resp.NavigationAction != nil {
		names = append(names, ActionNavigation)
	}
	if resp.ModificationAction != nil {
		names = append(names, ActionModification)
	}
	if resp.PrepWorkAction != nil {
		names = append(names, ActionPrepWork)
	}
	if resp.TimingAction != nil {
		names = append(names, ActionTiming)
	}
	return names
}

// String implements fmt.Stringer for log output.
func (o Outcome) String() string {
	return fmt.Sprintf("applied=%v skipped=%v failed=%v", o.Applied, o.Skipped, o.Failed)
}
