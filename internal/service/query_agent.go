package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/observability"
	"github.com/noah-isme/gema-admin-query/internal/repository"
	"github.com/noah-isme/gema-admin-query/pkg/ai"
)

// Fixed answers returned by Query without consulting the model.
const (
	GuidanceMessage      = "Please provide a valid question."
	FailureMessage       = "I encountered an error while processing your query. Please try rephrasing or contact support if the issue persists."
	queryTooLongTemplate = "Your question is too long. Please keep it under %d characters."
)

const (
	credentialPrefix = "sk-"
	logQueryPreview  = 100
)

// ErrInitialization indicates a query agent could not be constructed.
var ErrInitialization = errors.New("query agent initialization failed")

var (
	errEmptyAnswer          = errors.New("model returned an empty answer")
	errRoundsExhausted      = errors.New("tool rounds exhausted without an answer")
	errInvalidToolArguments = errors.New("invalid tool arguments")
)

// Turn is one entry of the conversation memory.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentConfig tunes the query agent.
type AgentConfig struct {
	MaxQueryLength int
	MaxRounds      int
	Timeout        time.Duration
	Window         ToolWindow
}

// DefaultAgentConfig mirrors the defaults of the configuration layer.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxQueryLength: 500,
		MaxRounds:      5,
		Timeout:        30 * time.Second,
		Window:         DefaultToolWindow(),
	}
}

// ModelFactory builds the chat model for a session credential.
type ModelFactory func(credential string) (ai.ChatModel, error)

// OpenAIModelFactory returns a factory producing OpenAI chat models that share
// cfg but use the session credential.
func OpenAIModelFactory(cfg ai.OpenAIConfig) ModelFactory {
	return func(credential string) (ai.ChatModel, error) {
		cfg.APIKey = credential
		return ai.NewOpenAIChatModel(cfg)
	}
}

// QueryAgent answers natural-language questions for one admin session.
type QueryAgent interface {
	Query(ctx context.Context, question string) string
	ClearHistory()
	History() []Turn
	Scope() access.Scope
	State() SessionState
}

type queryAgent struct {
	mu        sync.Mutex
	model     ai.ChatModel
	tools     *ToolRouter
	scope     access.Scope
	cfg       AgentConfig
	history   []Turn
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// ValidateCredential checks the shape of an LLM access token without logging it.
func ValidateCredential(credential string) error {
	trimmed := strings.TrimSpace(credential)
	if trimmed == "" {
		return fmt.Errorf("%w: api key is required", ErrInitialization)
	}
	if !strings.HasPrefix(trimmed, credentialPrefix) {
		return fmt.Errorf("%w: api key must start with %q", ErrInitialization, credentialPrefix)
	}
	return nil
}

// NewQueryAgent binds the dataset, the admin scope and a chat model built from
// credential. All failures wrap ErrInitialization.
func NewQueryAgent(repo repository.DatasetRepository, scope access.Scope, credential string, cfg AgentConfig, factory ModelFactory, logger zerolog.Logger) (QueryAgent, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: dataset repository is required", ErrInitialization)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: model factory is required", ErrInitialization)
	}
	if err := ValidateCredential(credential); err != nil {
		return nil, err
	}

	defaults := DefaultAgentConfig()
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = defaults.MaxQueryLength
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaults.MaxRounds
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	agentLogger := logger.With().Str("component", "query_agent").Str("admin_id", scope.AdminID).Logger()

	model, err := factory(strings.TrimSpace(credential))
	if err != nil {
		agentLogger.Error().Err(err).Msg("failed to construct chat model")
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	agentLogger.Info().Str("scope", scope.Describe()).Msg("query agent initialized")

	return &queryAgent{
		model:     model,
		tools:     NewToolRouter(repo, scope, cfg.Window, logger),
		scope:     scope,
		cfg:       cfg,
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-admin-query/internal/service/query_agent"),
		logger:    agentLogger,
	}, nil
}

func (a *queryAgent) Scope() access.Scope {
	return a.scope
}

func (a *queryAgent) State() SessionState {
	if a == nil || a.model == nil {
		return StateUninitialized
	}
	return StateReady
}

func (a *queryAgent) History() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Turn(nil), a.history...)
}

func (a *queryAgent) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	a.logger.Info().Msg("conversation history cleared")
}

// Query never fails: model, tool and parsing errors become FailureMessage.
func (a *queryAgent) Query(parent context.Context, question string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	cleaned := strings.TrimSpace(html.UnescapeString(a.sanitizer.Sanitize(question)))
	if cleaned == "" {
		observability.Queries().WithLabelValues("guidance").Inc()
		return GuidanceMessage
	}
	if utf8.RuneCountInString(cleaned) > a.cfg.MaxQueryLength {
		observability.Queries().WithLabelValues("too_long").Inc()
		return fmt.Sprintf(queryTooLongTemplate, a.cfg.MaxQueryLength)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, a.cfg.Timeout)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, "agent.query", trace.WithAttributes(
		attribute.String("admin.id", a.scope.AdminID),
		attribute.Int("history.turns", len(a.history)),
	))
	defer span.End()

	a.logger.Info().Str("query", preview(cleaned)).Msg("processing query")

	answer, rounds, err := a.run(ctx, cleaned)
	span.SetAttributes(attribute.Int("agent.rounds", rounds))
	if err != nil {
		observability.Queries().WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error().Err(err).Int("rounds", rounds).Msg("query processing failed")
		return FailureMessage
	}

	a.history = append(a.history,
		Turn{Role: ai.RoleUser, Content: cleaned},
		Turn{Role: ai.RoleAssistant, Content: answer},
	)
	observability.Queries().WithLabelValues("answered").Inc()
	a.logger.Info().Int("rounds", rounds).Msg("query processed")

	return answer
}

func (a *queryAgent) run(ctx context.Context, question string) (string, int, error) {
	messages := make([]ai.Message, 0, len(a.history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: a.systemPrompt()})
	for _, turn := range a.history {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: question})

	specs := a.tools.Specs()
	for round := 1; round <= a.cfg.MaxRounds; round++ {
		reply, err := a.model.Chat(ctx, messages, specs)
		if err != nil {
			return "", round, fmt.Errorf("chat round %d: %w", round, err)
		}

		if len(reply.ToolCalls) == 0 {
			answer := strings.TrimSpace(reply.Content)
			if answer == "" {
				return "", round, errEmptyAnswer
			}
			return answer, round, nil
		}

		reply.Role = ai.RoleAssistant
		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			result, err := a.callTool(call)
			if err != nil {
				return "", round, err
			}
			messages = append(messages, ai.Message{Role: ai.RoleTool, ToolCallID: call.ID, Content: result})
		}
	}

	return "", a.cfg.MaxRounds, errRoundsExhausted
}

func (a *queryAgent) callTool(call ai.ToolCall) (string, error) {
	query, err := toolQuery(call.Arguments)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", errInvalidToolArguments, call.Name, err)
	}

	result, err := a.tools.Invoke(call.Name, query)
	if errors.Is(err, ErrUnknownTool) {
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s", call.Name, strings.Join(a.tools.Names(), ", ")), nil
	}
	if err != nil {
		return "", err
	}

	a.logger.Debug().Str("tool", call.Name).Int("result_len", len(result)).Msg("tool executed")
	return result, nil
}

func (a *queryAgent) systemPrompt() string {
	var builder strings.Builder
	builder.WriteString("You are an AI assistant for the school admin panel.\n")
	builder.WriteString("You help admins query student data using natural language.\n\n")
	fmt.Fprintf(&builder, "Current admin: %s (%s)\n", a.scope.Name, a.scope.AdminID)
	fmt.Fprintf(&builder, "Current admin scope: %s\n\n", a.scope.Describe())
	builder.WriteString("Important: This admin can ONLY access data within their assigned scope.\n")
	builder.WriteString("They cannot access platform-wide data or other admins' data.\n\n")
	builder.WriteString("When answering queries:\n")
	builder.WriteString("1. Use the appropriate tool to fetch data\n")
	builder.WriteString("2. Present results in a clear, readable format\n")
	builder.WriteString("3. If no data is found, explain it might be due to access restrictions\n")
	builder.WriteString("4. Be helpful and conversational")
	return builder.String()
}

func toolQuery(arguments string) (string, error) {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" {
		return "", nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return "", err
	}
	query, _ := payload["query"].(string)
	return query, nil
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= logQueryPreview {
		return text
	}
	runes := []rune(text)
	return string(runes[:logQueryPreview]) + "..."
}
