package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/observability"
	"github.com/noah-isme/gema-admin-query/internal/repository"
)

var (
	// ErrSessionNotFound indicates the session id is unknown or closed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotReady indicates the session has no usable query agent.
	ErrSessionNotReady = errors.New("session not initialized")
)

// SessionState is the lifecycle state of a session's query agent.
type SessionState string

// Session states.
const (
	StateUninitialized SessionState = "uninitialized"
	StateReady         SessionState = "ready"
)

// SessionInfo summarises a session for the host application.
type SessionInfo struct {
	ID        string       `json:"session_id"`
	AdminID   string       `json:"admin_id"`
	AdminName string       `json:"admin_name"`
	Scope     string       `json:"scope"`
	State     SessionState `json:"state"`
	Turns     int          `json:"turns"`
}

// SessionService owns the per-admin query agents of the hosting application.
type SessionService interface {
	Admins() []access.Scope
	Open(ctx context.Context, adminID, credential string) (SessionInfo, error)
	Switch(ctx context.Context, sessionID, adminID, credential string) (SessionInfo, error)
	Get(sessionID string) (SessionInfo, error)
	Query(ctx context.Context, sessionID, question string) (string, error)
	History(sessionID string) ([]Turn, error)
	ClearHistory(sessionID string) error
	Close(sessionID string) error
}

type session struct {
	id    string
	scope access.Scope
	agent QueryAgent
}

type sessionService struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	repo      repository.DatasetRepository
	directory *access.Directory
	cfg       AgentConfig
	factory   ModelFactory
	logger    zerolog.Logger
}

// NewSessionService constructs the session service over a loaded dataset and
// a fixed admin directory.
func NewSessionService(repo repository.DatasetRepository, directory *access.Directory, cfg AgentConfig, factory ModelFactory, logger zerolog.Logger) SessionService {
	return &sessionService{
		sessions:  make(map[string]*session),
		repo:      repo,
		directory: directory,
		cfg:       cfg,
		factory:   factory,
		logger:    logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) Admins() []access.Scope {
	return s.directory.List()
}

func (s *sessionService) Open(ctx context.Context, adminID, credential string) (SessionInfo, error) {
	scope, agent, err := s.buildAgent(adminID, credential)
	if err != nil {
		return SessionInfo{}, err
	}

	sess := &session{id: uuid.NewString(), scope: scope, agent: agent}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	observability.ActiveSessions().Inc()
	s.logger.Info().Str("session_id", sess.id).Str("admin_id", scope.AdminID).Msg("session opened")
	return s.describe(sess.id)
}

// Switch resets the session and initialises a fresh agent for the admin and
// credential. On failure the session stays uninitialised.
func (s *sessionService) Switch(ctx context.Context, sessionID, adminID, credential string) (SessionInfo, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		sess.agent = nil
	}
	s.mu.Unlock()
	if !ok {
		return SessionInfo{}, ErrSessionNotFound
	}

	scope, agent, err := s.buildAgent(adminID, credential)

	s.mu.Lock()
	_, stillOpen := s.sessions[sessionID]
	if stillOpen && err == nil {
		sess.scope = scope
		sess.agent = agent
	}
	s.mu.Unlock()

	if !stillOpen {
		return SessionInfo{}, ErrSessionNotFound
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session switch failed")
		return SessionInfo{}, err
	}

	s.logger.Info().Str("session_id", sessionID).Str("admin_id", scope.AdminID).Msg("session switched")
	return s.describe(sessionID)
}

func (s *sessionService) Get(sessionID string) (SessionInfo, error) {
	return s.describe(sessionID)
}

func (s *sessionService) Query(ctx context.Context, sessionID, question string) (string, error) {
	agent, err := s.agent(sessionID)
	if err != nil {
		return "", err
	}
	return agent.Query(ctx, question), nil
}

func (s *sessionService) History(sessionID string) ([]Turn, error) {
	agent, err := s.agent(sessionID)
	if err != nil {
		return nil, err
	}
	return agent.History(), nil
}

func (s *sessionService) ClearHistory(sessionID string) error {
	agent, err := s.agent(sessionID)
	if err != nil {
		return err
	}
	agent.ClearHistory()
	return nil
}

func (s *sessionService) Close(sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	observability.ActiveSessions().Dec()
	s.logger.Info().Str("session_id", sessionID).Msg("session closed")
	return nil
}

func (s *sessionService) agent(sessionID string) (QueryAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.agent == nil {
		return nil, ErrSessionNotReady
	}
	return sess.agent, nil
}

func (s *sessionService) buildAgent(adminID, credential string) (access.Scope, QueryAgent, error) {
	scope, err := s.directory.Lookup(adminID)
	if err != nil {
		return access.Scope{}, nil, err
	}

	agent, err := NewQueryAgent(s.repo, scope, credential, s.cfg, s.factory, s.logger)
	if err != nil {
		return access.Scope{}, nil, fmt.Errorf("initialize agent for %s: %w", scope.AdminID, err)
	}
	return scope, agent, nil
}

// describe copies the session under the lock and reads the history outside it,
// since History waits for any in-flight query.
func (s *sessionService) describe(sessionID string) (SessionInfo, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.RUnlock()
		return SessionInfo{}, ErrSessionNotFound
	}
	info := SessionInfo{
		ID:        sess.id,
		AdminID:   sess.scope.AdminID,
		AdminName: sess.scope.Name,
		Scope:     sess.scope.Describe(),
		State:     StateUninitialized,
	}
	agent := sess.agent
	s.mu.RUnlock()

	if agent != nil {
		info.State = agent.State()
		info.Turns = len(agent.History())
	}
	return info, nil
}
