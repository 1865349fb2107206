package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/config"
	"github.com/rknm-cell/mise/backend/internal/observability"
)

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("ai: empty reply")

// Limits bounds a single generation request.
type Limits struct {
	MaxOutputTokens int
	Temperature     float64
}

// Generator is the language-model boundary used by the cooking services.
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string, limits Limits) (string, error)
}

var _ Generator = (*Service)(nil)

// Service runs prompts through a compiled eino chain guarded by a circuit
// breaker.
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewService creates a Service backed by the configured Ark model.
func NewService(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, log)
}

// NewServiceWithModel compiles the prompt chain around an existing model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, log *zap.Logger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Service{chain: runnable, breaker: breaker, log: log}, nil
}

// GenerateText sends system and prompt to the model and returns the reply
// text. Limits are applied per call.
func (s *Service) GenerateText(ctx context.Context, system, prompt string, limits Limits) (string, error) {
	input := map[string]any{
		"system": system,
		"query":  prompt,
	}

	var opts []model.Option
	if limits.MaxOutputTokens > 0 {
		opts = append(opts, model.WithMaxTokens(limits.MaxOutputTokens))
	}
	opts = append(opts, model.WithTemperature(float32(limits.Temperature)))

	start := time.Now()
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.chain.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	})
	observability.LLMLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		status := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "rejected"
		}
		observability.LLMRequestsTotal.WithLabelValues(status).Inc()
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	msg, _ := out.(*schema.Message)
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		observability.LLMRequestsTotal.WithLabelValues("empty").Inc()
		return "", ErrEmptyReply
	}

	observability.LLMRequestsTotal.WithLabelValues("ok").Inc()
	s.log.Debug("generated reply",
		zap.Int("prompt_length", len(prompt)),
		zap.Int("reply_length", len(msg.Content)),
		zap.Duration("latency", time.Since(start)),
	)
	return strings.TrimSpace(msg.Content), nil
}
