package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "chat_duration_seconds",
		Help:      "Duration of AI chat completion requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "chat_failures_total",
		Help:      "Number of AI chat completion failures",
	}, []string{"model"})
)

// ErrEmptyCompletion indicates the provider returned no choices.
var ErrEmptyCompletion = errors.New("no choices returned from openai")

// OpenAIConfig defines configuration options for the OpenAI chat model.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIChatModel implements ChatModel against the OpenAI chat completion API
// with function tools.
type OpenAIChatModel struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIChatModel builds a chat model using the provided configuration.
func NewOpenAIChatModel(cfg OpenAIConfig) (*OpenAIChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	tracer := otel.Tracer("github.com/noah-isme/gema-admin-query/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	client := openai.NewClientWithConfig(config)

	return &OpenAIChatModel{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_chat_model").Logger(),
	}, nil
}

// Chat sends the conversation to OpenAI and converts the first choice back.
func (m *OpenAIChatModel) Chat(parent context.Context, messages []Message, tools []ToolSpec) (Message, error) {
	ctx, span := m.tracer.Start(parent, "openai.chat", trace.WithAttributes(
		attribute.String("model", m.cfg.Model),
		attribute.Int("messages", len(messages)),
		attribute.Int("tools", len(tools)),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       m.cfg.Model,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: requestTemperature(m.cfg.Temperature),
		Messages:    toOpenAIMessages(messages),
		Tools:       toOpenAITools(tools),
	}

	resp, err := m.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(m.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(m.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Message{}, fmt.Errorf("openai chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		aiFailures.WithLabelValues(m.cfg.Model).Inc()
		span.RecordError(ErrEmptyCompletion)
		span.SetStatus(codes.Error, ErrEmptyCompletion.Error())
		return Message{}, ErrEmptyCompletion
	}

	reply := fromOpenAIMessage(resp.Choices[0].Message)
	span.SetAttributes(attribute.Int("tool_calls", len(reply.ToolCalls)))
	m.logger.Debug().
		Dur("duration", duration).
		Int("tool_calls", len(reply.ToolCalls)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("chat completion received")

	return reply, nil
}

// requestTemperature keeps a zero temperature on the wire; go-openai omits an
// exact 0 and the provider would fall back to its own default.
func requestTemperature(temperature float32) float32 {
	if temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return temperature
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		converted := openai.ChatCompletionMessage{
			Role:       message.Role,
			Content:    message.Content,
			ToolCallID: message.ToolCallID,
		}
		for _, call := range message.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		result = append(result, converted)
	}
	return result
}

func toOpenAITools(tools []ToolSpec) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return result
}

func fromOpenAIMessage(message openai.ChatCompletionMessage) Message {
	result := Message{
		Role:    message.Role,
		Content: strings.TrimSpace(message.Content),
	}
	if result.Role == "" {
		result.Role = RoleAssistant
	}
	for _, call := range message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return result
}
