// Package cooking answers free-form cooking questions through the language
// model and shapes the replies for clients.
package cooking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	"github.com/rknm-cell/mise/backend/internal/model/chat"
	"github.com/rknm-cell/mise/backend/internal/service/ai"
	"github.com/rknm-cell/mise/backend/internal/service/dialogue"
)

// ErrRemoteCollaborator wraps every failure of the language model call.
var ErrRemoteCollaborator = errors.New("remote collaborator failed")

// DefaultLimits favours short, repeatable answers.
var DefaultLimits = ai.Limits{MaxOutputTokens: 500, Temperature: 0.3}

// Service handles chat turns, step tips and ingredient substitutions.
type Service struct {
	gen    ai.Generator
	limits ai.Limits
	log    *zap.Logger
}

// NewService creates a Service. Zero limits fall back to DefaultLimits.
func NewService(gen ai.Generator, limits ai.Limits, log *zap.Logger) *Service {
	if limits == (ai.Limits{}) {
		limits = DefaultLimits
	}
	return &Service{gen: gen, limits: limits, log: log}
}

// Chat answers one user turn. The reply text is returned as-is; tool
// actions are never derived from it.
func (s *Service) Chat(ctx context.Context, req chat.TurnRequest) (chat.TurnResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return chat.TurnResponse{}, apperr.Required("message")
	}

	system := dialogue.BuildSystemPrompt(dialogue.RecipeContext{
		RecipeName:             req.RecipeName,
		RecipeDescription:      req.RecipeDescription,
		CurrentStep:            req.CurrentStep,
		TotalSteps:             req.TotalSteps,
		CurrentStepDescription: req.CurrentStepDescription,
		CompletedSteps:         req.CompletedSteps,
	})
	prompt := dialogue.BuildConversationContext(req.ConversationHistory, message)

	reply, err := s.gen.GenerateText(ctx, system, prompt, s.limits)
	if err != nil {
		s.log.Error("cooking chat failed",
			zap.String("recipe_id", req.RecipeID),
			zap.Error(err),
		)
		return chat.TurnResponse{}, fmt.Errorf("%w: %w", ErrRemoteCollaborator, err)
	}

	return chat.TurnResponse{
		Response:     reply,
		QuickActions: append([]string(nil), chat.QuickActions...),
		Context:      chat.ContextTag,
	}, nil
}

// Suggestions returns 3-4 tips for the described step.
func (s *Service) Suggestions(ctx context.Context, req chat.SuggestionsRequest) ([]string, error) {
	if strings.TrimSpace(req.CurrentStepDescription) == "" {
		return nil, apperr.Required("currentStepDescription")
	}

	system, user := dialogue.SuggestionsPrompt(req.CurrentStepDescription, req.UserExperienceLevel)
	reply, err := s.gen.GenerateText(ctx, system, user, s.limits)
	if err != nil {
		s.log.Error("cooking suggestions failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRemoteCollaborator, err)
	}
	return SplitList(reply), nil
}

// Substitutions returns 3-4 alternatives for an ingredient.
func (s *Service) Substitutions(ctx context.Context, req chat.SubstitutionsRequest) ([]string, error) {
	if strings.TrimSpace(req.Ingredient) == "" {
		return nil, apperr.Required("ingredient")
	}

	system, user := dialogue.SubstitutionsPrompt(req.Ingredient, req.RecipeContext)
	reply, err := s.gen.GenerateText(ctx, system, user, s.limits)
	if err != nil {
		s.log.Error("cooking substitutions failed",
			zap.String("ingredient", req.Ingredient),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrRemoteCollaborator, err)
	}
	return SplitList(reply), nil
}

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// SplitList turns a line-per-item reply into items, dropping blank lines and
// leading "1. " style markers.
func SplitList(text string) []string {
	items := make([]string, 0, 4)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(ordinalPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}
