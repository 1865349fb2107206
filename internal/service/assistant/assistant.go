// Package assistant runs the hands-free cooking loop: wake-phrase commands
// are handled locally when the classifier is confident, everything else is
// forwarded to the cooking chat service.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	"github.com/rknm-cell/mise/backend/internal/model/chat"
	cmdmodel "github.com/rknm-cell/mise/backend/internal/model/command"
	"github.com/rknm-cell/mise/backend/internal/model/voice"
	"github.com/rknm-cell/mise/backend/internal/observability"
	"github.com/rknm-cell/mise/backend/internal/service/command"
	"github.com/rknm-cell/mise/backend/internal/service/dispatch"
	"github.com/rknm-cell/mise/backend/internal/service/session"
	"github.com/rknm-cell/mise/backend/internal/service/timer"
)

// ErrSessionEnded is returned when an utterance arrives for an ended session.
var ErrSessionEnded = errors.New("voice session has ended")

// Chatter answers forwarded turns. cooking.Service satisfies it.
type Chatter interface {
	Chat(ctx context.Context, req chat.TurnRequest) (chat.TurnResponse, error)
}

// Config tunes the loop.
type Config struct {
	WakePhrase          string
	ConfidenceThreshold float64
}

// Assistant owns the collaborators shared by every conversation.
type Assistant struct {
	sessions *session.Manager
	timers   *timer.Registry
	chat     Chatter
	cfg      Config
	log      *zap.Logger
}

// New creates an Assistant.
func New(sessions *session.Manager, timers *timer.Registry, chatter Chatter, cfg Config, log *zap.Logger) *Assistant {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.8
	}
	return &Assistant{sessions: sessions, timers: timers, chat: chatter, cfg: cfg, log: log}
}

// Recipe is what the client tells us about the recipe being cooked.
type Recipe struct {
	ID          string
	Name        string
	Description string
	TotalSteps  int
}

// Utterance is one piece of recognised or typed user text.
type Utterance struct {
	Text                   string `json:"text"`
	CurrentStepDescription string `json:"currentStepDescription,omitempty"`
}

// Conversation binds one client connection to a voice session.
type Conversation struct {
	a         *Assistant
	recipe    Recipe
	sessionID string
	emit      Emitter
	log       *zap.Logger
}

// Open resumes the active session for the recipe, or starts one, and emits a
// session event. An empty wakePhrase uses the configured default.
func (a *Assistant) Open(ctx context.Context, recipe Recipe, wakePhrase string, emit Emitter) (*Conversation, error) {
	if strings.TrimSpace(wakePhrase) == "" {
		wakePhrase = a.cfg.WakePhrase
	}

	s, err := a.sessions.ResumeOrCreate(ctx, recipe.ID, wakePhrase)
	if err != nil {
		return nil, err
	}

	c := &Conversation{
		a:         a,
		recipe:    recipe,
		sessionID: s.ID,
		emit:      emit,
		log:       a.log.With(zap.String("session_id", s.ID), zap.String("recipe_id", s.RecipeID)),
	}
	c.emit(Event{Type: EventSession, Data: s})
	return c, nil
}

// SessionID returns the id of the bound session.
func (c *Conversation) SessionID() string { return c.sessionID }

// Handle processes one utterance.
func (c *Conversation) Handle(ctx context.Context, u Utterance) error {
	s, ok := c.a.sessions.Get(c.sessionID)
	if !ok || !s.IsActive {
		return ErrSessionEnded
	}

	text := strings.TrimSpace(u.Text)
	if text == "" {
		return apperr.Required("text")
	}

	isVoice := command.DetectVoiceCommand(text, s.WakePhrase)
	commandText := text
	if isVoice {
		commandText = command.ExtractCommand(text, s.WakePhrase)
		if commandText == "" {
			c.emit(Event{Type: EventAck, Data: AckData{Text: "I'm listening."}})
			return nil
		}
	}

	cls := command.ParseVoiceCommand(commandText)
	if isVoice {
		c.emit(Event{Type: EventAck, Data: AckData{
			Text:           command.GenerateVoiceAcknowledgment(cls.ActionType, true),
			Classification: &cls,
		}})
	}

	if isVoice && cls.Actionable(c.a.cfg.ConfidenceThreshold) {
		if resp, ok := localResponse(commandText, cls); ok {
			observability.VoiceCommandsTotal.WithLabelValues(string(cls.ActionType), "local").Inc()
			c.log.Debug("handling command locally",
				zap.String("intent", string(cls.ActionType)),
				zap.Float64("confidence", cls.Confidence),
			)
			return c.applyLocal(ctx, s, commandText, resp)
		}
	}

	observability.VoiceCommandsTotal.WithLabelValues(string(cls.ActionType), "forwarded").Inc()
	return c.forward(ctx, s, commandText, u)
}

// End deactivates the bound session.
func (c *Conversation) End(ctx context.Context) {
	s, ok := c.a.sessions.Get(c.sessionID)
	if !ok || !s.IsActive {
		return
	}
	if ended, ok := c.a.sessions.End(ctx, c.sessionID); ok {
		c.emit(Event{Type: EventSession, Data: ended})
	}
}

// localResponse builds the tool action for commands that need no model.
func localResponse(text string, cls cmdmodel.Classification) (chat.TurnResponse, bool) {
	switch p := cls.Params.(type) {
	case cmdmodel.TimerParams:
		seconds := command.ParseTimeExpression(text)
		return chat.TurnResponse{
			Response: fmt.Sprintf("Timer set for %s.", timer.FormatClock(seconds)),
			TimerAction: &chat.TimerAction{
				Action:      "create",
				Duration:    seconds,
				Description: fmt.Sprintf("%s timer", timer.FormatClock(seconds)),
				Stage:       timer.DefaultStage,
				Reason:      "voice command",
			},
		}, true
	case cmdmodel.StepParams:
		return chat.TurnResponse{
			NavigationAction: &chat.NavigationAction{
				Action:     string(p.Direction),
				StepNumber: p.StepNumber,
				Reason:     "voice command",
			},
		}, true
	}
	return chat.TurnResponse{}, false
}

func (c *Conversation) applyLocal(ctx context.Context, s voice.Session, text string, resp chat.TurnResponse) error {
	out := c.dispatcher(s).Dispatch(ctx, c.stepState(s), resp)

	reply := resp.Response
	if resp.NavigationAction != nil {
		if out.NavigatedTo > 0 {
			reply = fmt.Sprintf("Step %d.", out.NavigatedTo)
		} else {
			reply = "There's no step there."
		}
	}

	c.emit(Event{Type: EventReply, Data: chat.TurnResponse{Response: reply, Context: chat.ContextTag}})
	c.appendTurn(ctx, text, reply)
	return nil
}

func (c *Conversation) forward(ctx context.Context, s voice.Session, text string, u Utterance) error {
	resp, err := c.a.chat.Chat(ctx, chat.TurnRequest{
		Message:                text,
		RecipeID:               s.RecipeID,
		RecipeName:             c.recipe.Name,
		RecipeDescription:      c.recipe.Description,
		CurrentStep:            s.CurrentStep,
		TotalSteps:             c.recipe.TotalSteps,
		CurrentStepDescription: u.CurrentStepDescription,
		CompletedSteps:         s.CompletedSteps,
		ConversationHistory:    s.ConversationHistory,
	})
	if err != nil {
		return err
	}

	latest, ok := c.a.sessions.Get(c.sessionID)
	if !ok || !latest.IsActive {
		c.log.Info("discarding reply for ended session")
		return nil
	}

	c.dispatcher(latest).Dispatch(ctx, c.stepState(latest), resp)
	c.emit(Event{Type: EventReply, Data: resp})
	c.appendTurn(ctx, text, resp.Response)
	return nil
}

// appendTurn records the user text and reply on the stored session.
func (c *Conversation) appendTurn(ctx context.Context, userText, reply string) {
	msgs := []voice.Message{{Role: voice.RoleUser, Content: userText}}
	if reply != "" {
		msgs = append(msgs, voice.Message{Role: voice.RoleAssistant, Content: reply})
	}
	c.a.sessions.Update(ctx, c.sessionID, session.Patch{Append: msgs})
}

func (c *Conversation) stepState(s voice.Session) dispatch.StepState {
	return dispatch.StepState{CurrentStep: s.CurrentStep, TotalSteps: c.recipe.TotalSteps, Active: s.IsActive}
}

// dispatcher wires tool actions to the registry, the session and the client.
func (c *Conversation) dispatcher(s voice.Session) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(dispatch.Effects{
		CreateTimer: func(ctx context.Context, a chat.TimerAction) error {
			step := s.CurrentStep
			res, err := c.a.timers.Create(ctx, timer.CreateRequest{
				Duration:    a.Duration,
				Description: a.Description,
				Stage:       a.Stage,
				RecipeID:    s.RecipeID,
				StepNumber:  &step,
			})
			if err != nil {
				return err
			}
			c.emit(Event{Type: EventTimer, Data: res})
			return nil
		},
		Navigate: func(ctx context.Context, step int) error {
			updated, ok := c.a.sessions.Update(ctx, c.sessionID, session.Patch{
				CurrentStep:       session.Step(step),
				CompleteOnAdvance: true,
			})
			if !ok {
				return ErrSessionEnded
			}
			c.emit(Event{Type: EventNavigate, Data: NavigateData{
				StepNumber:     updated.CurrentStep,
				CompletedSteps: updated.CompletedSteps,
			}})
			return nil
		},
		Modify: func(_ context.Context, a chat.ModificationAction) error {
			c.emit(Event{Type: EventModify, Data: a})
			return nil
		},
		PrepWork: func(_ context.Context, a chat.PrepWorkAction) error {
			c.emit(Event{Type: EventPrep, Data: a})
			return nil
		},
		Timing: func(_ context.Context, a chat.TimingAction) error {
			c.emit(Event{Type: EventTiming, Data: a})
			return nil
		},
	}, c.log)
}
