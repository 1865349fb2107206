package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Voice   VoiceConfig
	Storage StorageConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Voice: voice, Storage: storage}, nil
}

// ServerConfig describes the HTTP listener and deployment environment.
type ServerConfig struct {
	Addr string
	Env  string
}

// IsProduction reports whether APP_ENV is "production".
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func loadServerConfig() (ServerConfig, error) {
	env := getEnvOrDefault("APP_ENV", "development")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port, Env: env}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, Env: env}, nil
}

// AIConfig describes the Ark chat model and the per-request limits applied
// to every cooking prompt.
type AIConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	TopP      *float64

	// MaxOutputTokens and Temperature are sent with each request.
	MaxOutputTokens int
	Temperature     float64
}

// Enabled reports whether credentials and a model are configured.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY and ARK_MODEL, or an AK/SK pair")
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	maxTokens := c.MaxOutputTokens
	temperature := float32(c.Temperature)

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens := 500
	if override, err := parseOptionalIntEnv("AI_MAX_OUTPUT_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("invalid AI_MAX_OUTPUT_TOKENS value %d: must be positive", *override)
		}
		maxTokens = *override
	}

	temperature := 0.3
	if override, err := parseOptionalFloatEnv("AI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 2 {
			return AIConfig{}, fmt.Errorf("invalid AI_TEMPERATURE value %v: must be within [0, 2]", *override)
		}
		temperature = *override
	}

	modelName := strings.TrimSpace(os.Getenv("ARK_MODEL"))
	if modelName == "" {
		modelName = strings.TrimSpace(os.Getenv("Model"))
	}

	return AIConfig{
		APIKey:          strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:       strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:       strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:           modelName,
		BaseURL:         getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:          getEnvOrDefault("ARK_REGION", "cn-beijing"),
		TopP:            topP,
		MaxOutputTokens: maxTokens,
		Temperature:     temperature,
	}, nil
}

// VoiceConfig controls the hands-free assistant loop.
type VoiceConfig struct {
	WakePhrase          string
	ConfidenceThreshold float64
}

func loadVoiceConfig() (VoiceConfig, error) {
	threshold := 0.8
	if override, err := parseOptionalFloatEnv("COMMAND_CONFIDENCE_THRESHOLD"); err != nil {
		return VoiceConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 1 {
			return VoiceConfig{}, fmt.Errorf("invalid COMMAND_CONFIDENCE_THRESHOLD value %v: must be within [0, 1]", *override)
		}
		threshold = *override
	}

	return VoiceConfig{
		WakePhrase:          getEnvOrDefault("VOICE_WAKE_PHRASE", "hey mise"),
		ConfidenceThreshold: threshold,
	}, nil
}

// Timer storage backends.
const (
	TimerBackendMemory = "memory"
	TimerBackendRedis  = "redis"
)

// StorageConfig selects where sessions and timers live.
type StorageConfig struct {
	// SessionDBDir is the badger directory; "memory" keeps sessions in
	// process memory only.
	SessionDBDir string
	TimerBackend string
	RedisURL     string
}

func loadStorageConfig() (StorageConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("TIMER_BACKEND", TimerBackendMemory))
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))

	switch backend {
	case TimerBackendMemory:
	case TimerBackendRedis:
		if redisURL == "" {
			return StorageConfig{}, fmt.Errorf("REDIS_URL is required when TIMER_BACKEND=redis")
		}
	default:
		return StorageConfig{}, fmt.Errorf("invalid TIMER_BACKEND value %q", backend)
	}

	return StorageConfig{
		SessionDBDir: getEnvOrDefault("SESSION_DB_DIR", "data/sessions"),
		TimerBackend: backend,
		RedisURL:     redisURL,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
