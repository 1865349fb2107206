// Package session manages per-recipe voice sessions. Sessions are immutable
// values: every change is applied to the stored record under the manager's
// lock and produces a new record, which becomes authoritative in memory
// before it is written to the Store.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	"github.com/rknm-cell/mise/backend/internal/model/voice"
)

// MaxSessions is the number of sessions kept; the oldest is evicted first.
const MaxSessions = 10

// Patch lists the fields Update changes. Nil or empty fields are left alone.
type Patch struct {
	CurrentStep *int
	// CompletedSteps replaces the completed set when non-nil.
	CompletedSteps []int
	// MarkCompleted adds steps to the completed set.
	MarkCompleted []int
	// CompleteOnAdvance marks the step being left as completed when
	// CurrentStep moves forward.
	CompleteOnAdvance bool
	Append        []voice.Message
	WakePhrase    *string
	IsActive      *bool
}

// Step is a convenience for Patch.CurrentStep.
func Step(n int) *int { return &n }

// Bool is a convenience for Patch.IsActive.
func Bool(v bool) *bool { return &v }

// Manager owns the in-memory session list and mirrors it to a Store.
type Manager struct {
	mu       sync.Mutex
	sessions []voice.Session // oldest first
	store    Store
	log      *zap.Logger
	now      func() time.Time
}

// NewManager creates a manager backed by store.
func NewManager(store Store, log *zap.Logger) *Manager {
	return &Manager{store: store, log: log, now: time.Now}
}

// Load replaces the in-memory list with the persisted one. A read failure is
// logged and leaves the manager empty.
func (m *Manager) Load(ctx context.Context) {
	sessions, err := m.store.Load(ctx)
	if err != nil {
		m.log.Error("failed to load voice sessions", zap.Error(err))
		return
	}
	if len(sessions) > MaxSessions {
		sessions = sessions[len(sessions)-MaxSessions:]
	}

	m.mu.Lock()
	m.sessions = make([]voice.Session, 0, len(sessions))
	for _, s := range sessions {
		m.sessions = append(m.sessions, s.Clone())
	}
	m.mu.Unlock()

	m.log.Info("voice sessions loaded", zap.Int("count", len(sessions)))
}

// Create starts a new active session for recipeID. Any other active session
// for the same recipe is deactivated rather than merged.
func (m *Manager) Create(ctx context.Context, recipeID, wakePhrase string) (voice.Session, error) {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return voice.Session{}, apperr.Required("recipeId")
	}

	now := m.now().UTC()
	s := voice.Session{
		ID:                  uuid.NewString(),
		RecipeID:            recipeID,
		CurrentStep:         1,
		CompletedSteps:      []int{},
		ConversationHistory: []voice.Message{},
		WakePhrase:          strings.TrimSpace(wakePhrase),
		IsActive:            true,
		CreatedAt:           now,
		LastActivity:        now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deactivateLocked(recipeID, s.ID)
	m.saveLocked(ctx, s)

	m.log.Info("voice session created", zap.String("session_id", s.ID), zap.String("recipe_id", recipeID))
	return s.Clone(), nil
}

// ResumeOrCreate returns the most recently active session for recipeID, or
// creates one when none is active.
func (m *Manager) ResumeOrCreate(ctx context.Context, recipeID, wakePhrase string) (voice.Session, error) {
	if s, ok := m.Active(strings.TrimSpace(recipeID)); ok {
		m.log.Debug("resuming voice session", zap.String("session_id", s.ID))
		return s, nil
	}
	return m.Create(ctx, recipeID, wakePhrase)
}

// Update applies p to the stored session with the given id, refreshes
// LastActivity and persists the result. Unknown ids, including evicted
// sessions, are left alone and reported with false. Reactivating a session
// deactivates any other active session for the same recipe.
func (m *Manager) Update(ctx context.Context, id string, p Patch) (voice.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		m.log.Debug("ignoring update for unknown voice session", zap.String("session_id", id))
		return voice.Session{}, false
	}
	next := m.sessions[idx].Clone()

	if p.CompletedSteps != nil {
		next.CompletedSteps = voice.NormalizeSteps(p.CompletedSteps)
	}
	completed := p.MarkCompleted
	if p.CurrentStep != nil && *p.CurrentStep >= 1 {
		if p.CompleteOnAdvance && *p.CurrentStep > next.CurrentStep {
			completed = append(append([]int(nil), completed...), next.CurrentStep)
		}
		next.CurrentStep = *p.CurrentStep
	}
	if len(completed) > 0 {
		next.CompletedSteps = voice.NormalizeSteps(append(next.CompletedSteps, completed...))
	}
	if len(p.Append) > 0 {
		next.ConversationHistory = append(next.ConversationHistory, p.Append...)
		if over := len(next.ConversationHistory) - voice.MaxStoredMessages; over > 0 {
			next.ConversationHistory = next.ConversationHistory[over:]
		}
	}
	if p.WakePhrase != nil {
		next.WakePhrase = strings.TrimSpace(*p.WakePhrase)
	}
	if p.IsActive != nil {
		if *p.IsActive && !next.IsActive {
			m.deactivateLocked(next.RecipeID, next.ID)
		}
		next.IsActive = *p.IsActive
	}
	next.LastActivity = m.now().UTC()

	m.saveLocked(ctx, next)
	return next.Clone(), true
}

// End deactivates the session with the given id.
func (m *Manager) End(ctx context.Context, id string) (voice.Session, bool) {
	ended, ok := m.Update(ctx, id, Patch{IsActive: Bool(false)})
	if ok {
		m.log.Info("voice session ended", zap.String("session_id", id))
	}
	return ended, ok
}

// Get returns the current version of a session.
func (m *Manager) Get(id string) (voice.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return voice.Session{}, false
}

// Active returns the active session for recipeID with the latest activity.
func (m *Manager) Active(recipeID string) (voice.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		best  voice.Session
		found bool
	)
	for _, s := range m.sessions {
		if s.RecipeID != recipeID || !s.IsActive {
			continue
		}
		if !found || s.LastActivity.After(best.LastActivity) {
			best, found = s, true
		}
	}
	if !found {
		return voice.Session{}, false
	}
	return best.Clone(), true
}

// Sessions returns a snapshot of every retained session, oldest first.
func (m *Manager) Sessions() []voice.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]voice.Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out
}

// deactivateLocked ends every active session for recipeID except keepID.
func (m *Manager) deactivateLocked(recipeID, keepID string) {
	for i, existing := range m.sessions {
		if existing.RecipeID == recipeID && existing.IsActive && existing.ID != keepID {
			superseded := existing.Clone()
			superseded.IsActive = false
			m.sessions[i] = superseded
			m.log.Debug("superseded voice session", zap.String("session_id", existing.ID), zap.String("recipe_id", recipeID))
		}
	}
}

func (m *Manager) indexLocked(id string) int {
	for i, s := range m.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// saveLocked replaces s in place when its id is known, otherwise appends it
// and evicts from the front. The store write is best effort.
func (m *Manager) saveLocked(ctx context.Context, s voice.Session) {
	if i := m.indexLocked(s.ID); i >= 0 {
		m.sessions[i] = s.Clone()
	} else {
		m.sessions = append(m.sessions, s.Clone())
		if over := len(m.sessions) - MaxSessions; over > 0 {
			m.sessions = append([]voice.Session(nil), m.sessions[over:]...)
		}
	}

	if err := m.store.Save(ctx, m.sessions); err != nil {
		m.log.Error("failed to persist voice sessions",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
}
