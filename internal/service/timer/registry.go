// Package timer implements the authoritative registry of live cooking
// timers. A timer is running from the moment it is created until it is
// stopped or deleted; there is no paused or completed state at this layer.
package timer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	model "github.com/rknm-cell/mise/backend/internal/model/timer"
	"github.com/rknm-cell/mise/backend/internal/observability"
)

// DefaultStage is used when a timer is created without a stage.
const DefaultStage = "cooking"

// CreateRequest describes a new timer. Duration is in seconds.
type CreateRequest struct {
	Duration    int
	Description string
	Stage       string
	RecipeID    string
	StepNumber  *int
}

// Result is returned by the mutating registry operations.
type Result struct {
	Timer   model.Timer `json:"timer"`
	Message string      `json:"message"`
}

// Registry coordinates timer operations over a Repository.
type Registry struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewRegistry creates a registry backed by repo.
func NewRegistry(repo Repository, log *zap.Logger) *Registry {
	return &Registry{repo: repo, log: log, now: time.Now}
}

// Create inserts a running timer.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (Result, error) {
	if req.Duration < 1 {
		return Result{}, &apperr.ValidationError{Field: "duration", Message: "duration must be at least 1 second"}
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return Result{}, apperr.Required("description")
	}
	stage := strings.TrimSpace(req.Stage)
	if stage == "" {
		stage = DefaultStage
	}

	t := model.Timer{
		ID:          uuid.NewString(),
		Duration:    req.Duration,
		Description: description,
		Stage:       stage,
		RecipeID:    req.RecipeID,
		StepNumber:  req.StepNumber,
		IsRunning:   true,
		StartTime:   r.now().UTC(),
		TimeLeft:    req.Duration,
	}
	if err := r.repo.Create(ctx, t); err != nil {
		return Result{}, fmt.Errorf("create timer: %w", err)
	}

	observability.TimersCreatedTotal.Inc()
	r.log.Info("timer created",
		zap.String("timer_id", t.ID),
		zap.Int("duration", t.Duration),
		zap.String("stage", t.Stage),
	)
	return Result{Timer: t, Message: fmt.Sprintf("Timer set for %s", FormatClock(t.Duration))}, nil
}

// Start marks a timer running and refreshes its start time. TimeLeft is left
// for the caller to recompute.
func (r *Registry) Start(ctx context.Context, id string) (Result, error) {
	t, err := r.repo.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}

	t.IsRunning = true
	t.StartTime = r.now().UTC()
	if err := r.repo.Update(ctx, t); err != nil {
		return Result{}, err
	}

	r.log.Info("timer started", zap.String("timer_id", id))
	return Result{Timer: t, Message: fmt.Sprintf("Timer started: %s", t.Description)}, nil
}

// Stop removes a timer. Stopping is destructive; a stopped timer cannot be
// resumed.
func (r *Registry) Stop(ctx context.Context, id string) (Result, error) {
	t, err := r.repo.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return Result{}, err
	}

	t.IsRunning = false
	r.log.Info("timer stopped", zap.String("timer_id", id))
	return Result{Timer: t, Message: fmt.Sprintf("Timer stopped: %s", t.Description)}, nil
}

// List returns every live timer in creation order.
func (r *Registry) List(ctx context.Context) ([]model.Timer, error) {
	return r.repo.List(ctx)
}

// Get returns a single timer.
func (r *Registry) Get(ctx context.Context, id string) (model.Timer, error) {
	return r.repo.Get(ctx, id)
}

// Delete removes a timer and returns a confirmation message.
func (r *Registry) Delete(ctx context.Context, id string) (string, error) {
	if err := r.repo.Delete(ctx, id); err != nil {
		return "", err
	}
	r.log.Info("timer deleted", zap.String("timer_id", id))
	return "Timer deleted successfully", nil
}

// FormatClock renders seconds as mm:ss. Minutes are not wrapped into hours.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
