package assistant

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	"github.com/rknm-cell/mise/backend/internal/model/chat"
	"github.com/rknm-cell/mise/backend/internal/service/session"
	"github.com/rknm-cell/mise/backend/internal/service/timer"
)

// mockChatter delegates to ChatFunc and counts calls.
type mockChatter struct {
	ChatFunc func(ctx context.Context, req chat.TurnRequest) (chat.TurnResponse, error)
	calls    int
	lastReq  chat.TurnRequest
}

func (m *mockChatter) Chat(ctx context.Context, req chat.TurnRequest) (chat.TurnResponse, error) {
	m.calls++
	m.lastReq = req
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return chat.TurnResponse{Response: "Sure.", Context: chat.ContextTag}, nil
}

type fixture struct {
	sessions *session.Manager
	timers   *timer.Registry
	chatter  *mockChatter
	events   []Event
	conv     *Conversation
}

func newFixture(t *testing.T, totalSteps int) *fixture {
	t.Helper()
	f := &fixture{
		sessions: session.NewManager(session.NewMemoryStore(), zap.NewNop()),
		timers:   timer.NewRegistry(timer.NewMemoryRepository(), zap.NewNop()),
		chatter:  &mockChatter{},
	}
	a := New(f.sessions, f.timers, f.chatter, Config{WakePhrase: "hey mise", ConfidenceThreshold: 0.8}, zap.NewNop())

	conv, err := a.Open(context.Background(), Recipe{ID: "risotto", Name: "Mushroom Risotto", TotalSteps: totalSteps}, "", func(e Event) {
		f.events = append(f.events, e)
	})
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	f.conv = conv
	return f
}

func (f *fixture) eventTypes() []string {
	types := make([]string, len(f.events))
	for i, e := range f.events {
		types[i] = e.Type
	}
	return types
}

func (f *fixture) hasEvent(typ string) bool {
	for _, e := range f.events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestVoiceTimerCommandCreatesTimer(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	if err := f.conv.Handle(ctx, Utterance{Text: "hey mise, set a timer for 10 minutes"}); err != nil {
		t.Fatalf("Handle err: %v", err)
	}

	timers, err := f.timers.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(timers) != 1 {
		t.Fatalf("expected one timer, got %d", len(timers))
	}
	if timers[0].Duration != 600 {
		t.Fatalf("expected 600 seconds, got %d", timers[0].Duration)
	}
	if timers[0].RecipeID != "risotto" || timers[0].StepNumber == nil || *timers[0].StepNumber != 1 {
		t.Fatalf("timer not linked to recipe step: %#v", timers[0])
	}

	if f.chatter.calls != 0 {
		t.Fatal("local command should not reach the model")
	}
	if !f.hasEvent(EventAck) || !f.hasEvent(EventTimer) {
		t.Fatalf("expected ack and timer events, got %v", f.eventTypes())
	}

	s, _ := f.sessions.Get(f.conv.SessionID())
	if len(s.ConversationHistory) != 2 || s.ConversationHistory[0].Content != "set a timer for 10 minutes" {
		t.Fatalf("unexpected history %#v", s.ConversationHistory)
	}
}

func TestVoiceNavigation(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	if err := f.conv.Handle(ctx, Utterance{Text: "Hey Mise next step"}); err != nil {
		t.Fatalf("Handle err: %v", err)
	}
	s, _ := f.sessions.Get(f.conv.SessionID())
	if s.CurrentStep != 2 || !s.HasCompleted(1) {
		t.Fatalf("expected step 2 with step 1 completed, got %#v", s)
	}
	if !f.hasEvent(EventNavigate) {
		t.Fatalf("expected navigate event, got %v", f.eventTypes())
	}

	if err := f.conv.Handle(ctx, Utterance{Text: "hey mise go to step 7"}); err != nil {
		t.Fatalf("Handle err: %v", err)
	}
	s, _ = f.sessions.Get(f.conv.SessionID())
	if s.CurrentStep != 2 {
		t.Fatalf("out of range step should be ignored, got %d", s.CurrentStep)
	}
}

func TestTypedCommandIsForwarded(t *testing.T) {
	f := newFixture(t, 3)

	if err := f.conv.Handle(context.Background(), Utterance{Text: "next step", CurrentStepDescription: "Toast the rice"}); err != nil {
		t.Fatalf("Handle err: %v", err)
	}
	if f.chatter.calls != 1 {
		t.Fatalf("expected forwarded turn, calls=%d", f.chatter.calls)
	}
	if f.chatter.lastReq.RecipeName != "Mushroom Risotto" || f.chatter.lastReq.TotalSteps != 3 || f.chatter.lastReq.CurrentStepDescription != "Toast the rice" {
		t.Fatalf("unexpected request %#v", f.chatter.lastReq)
	}
	if f.hasEvent(EventAck) {
		t.Fatal("typed input should not be acknowledged")
	}
	if !f.hasEvent(EventReply) {
		t.Fatalf("expected reply event, got %v", f.eventTypes())
	}
}

func TestLowConfidenceVoiceCommandIsForwarded(t *testing.T) {
	f := newFixture(t, 3)

	if err := f.conv.Handle(context.Background(), Utterance{Text: "hey mise, how do I stir this"}); err != nil {
		t.Fatalf("Handle err: %v", err)
	}
	if f.chatter.calls != 1 || f.chatter.lastReq.Message != "how do I stir this" {
		t.Fatalf("expected forwarded command text, got %#v", f.chatter.lastReq)
	}
}

func TestForwardSendsHistory(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_ = f.conv.Handle(ctx, Utterance{Text: "is the pan hot enough?"})
	_ = f.conv.Handle(ctx, Utterance{Text: "what about the butter?"})

	if len(f.chatter.lastReq.ConversationHistory) != 2 {
		t.Fatalf("expected previous turn in history, got %#v", f.chatter.lastReq.ConversationHistory)
	}
}

func TestLateReplyIsDiscarded(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	f.chatter.ChatFunc = func(ctx context.Context, _ chat.TurnRequest) (chat.TurnResponse, error) {
		f.conv.End(ctx)
		return chat.TurnResponse{
			Response:         "Moving on.",
			NavigationAction: &chat.NavigationAction{Action: "next"},
		}, nil
	}

	if err := f.conv.Handle(ctx, Utterance{Text: "what now?"}); err != nil {
		t.Fatalf("Handle err: %v", err)
	}
	if f.hasEvent(EventReply) || f.hasEvent(EventNavigate) {
		t.Fatalf("late reply should be discarded, got %v", f.eventTypes())
	}

	s, _ := f.sessions.Get(f.conv.SessionID())
	if s.IsActive || s.CurrentStep != 1 || len(s.ConversationHistory) != 0 {
		t.Fatalf("ended session should be untouched, got %#v", s)
	}

	if err := f.conv.Handle(ctx, Utterance{Text: "hello?"}); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}

func TestChatFailureIsReturned(t *testing.T) {
	f := newFixture(t, 3)
	boom := errors.New("model down")
	f.chatter.ChatFunc = func(context.Context, chat.TurnRequest) (chat.TurnResponse, error) {
		return chat.TurnResponse{}, boom
	}

	if err := f.conv.Handle(context.Background(), Utterance{Text: "help"}); !errors.Is(err, boom) {
		t.Fatalf("expected chat error, got %v", err)
	}
	s, _ := f.sessions.Get(f.conv.SessionID())
	if len(s.ConversationHistory) != 0 {
		t.Fatal("failed turn should not be recorded")
	}
}

func TestEmptyUtterance(t *testing.T) {
	f := newFixture(t, 3)

	if err := f.conv.Handle(context.Background(), Utterance{Text: "  "}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := f.conv.Handle(context.Background(), Utterance{Text: "hey mise"}); err != nil {
		t.Fatalf("bare wake phrase err: %v", err)
	}
	if f.chatter.calls != 0 {
		t.Fatal("bare wake phrase should not be forwarded")
	}
}

func TestOpenResumesSession(t *testing.T) {
	f := newFixture(t, 3)
	a := New(f.sessions, f.timers, f.chatter, Config{WakePhrase: "hey mise"}, zap.NewNop())

	again, err := a.Open(context.Background(), Recipe{ID: "risotto"}, "", func(Event) {})
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	if again.SessionID() != f.conv.SessionID() {
		t.Fatal("expected active session to be resumed")
	}
}
