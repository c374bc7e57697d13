package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/fathom-mcp/internal/instrumentation"
)

// Store holds clients, pending authorization codes and live sessions in
// memory. Sessions are keyed by bearer token; nothing is persisted, so a
// restart invalidates all sessions and users re-authorize.
type Store struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	codes    map[string]*authorizationCode
	sessions map[string]*Session
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewStore creates an in-memory store with the default cleanup interval.
func NewStore() *Store {
	return NewStoreWithInterval(1 * time.Minute)
}

// NewStoreWithInterval creates an in-memory store whose expiry sweeper runs
// at the given interval.
func NewStoreWithInterval(cleanupInterval time.Duration) *Store {
	s := &Store{
		clients:         make(map[string]*Client),
		codes:           make(map[string]*authorizationCode),
		sessions:        make(map[string]*Session),
		logger:          slog.Default(),
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}

	go s.cleanupExpired()

	return s
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetMetrics enables the active-session gauge. A nil recorder is a no-op.
func (s *Store) SetMetrics(metrics *instrumentation.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = metrics
}

// Stop terminates the background cleanup goroutine.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// SaveClient registers a client.
func (s *Store) SaveClient(client *Client) error {
	if client == nil || client.ID == "" {
		return fmt.Errorf("client must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[client.ID] = client
	s.logger.Debug("registered OAuth client", "client_id", client.ID)
	return nil
}

// GetClient looks up a registered client.
func (s *Store) GetClient(clientID string) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	return client, ok
}

// SaveCode records a pending authorization code.
func (s *Store) SaveCode(code *authorizationCode) error {
	if code == nil || code.Code == "" {
		return fmt.Errorf("authorization code must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[code.Code] = code
	return nil
}

// ConsumeCode returns and deletes the pending authorization code. Codes are
// single use: a second consume of the same value fails even within the TTL.
func (s *Store) ConsumeCode(code string) (*authorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("authorization code not found")
	}
	delete(s.codes, code)

	if time.Now().After(pending.ExpiresAt) {
		return nil, fmt.Errorf("authorization code expired")
	}
	return pending, nil
}

// SaveSession stores a session under its bearer token.
func (s *Store) SaveSession(token string, session *Session) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	if session == nil {
		return fmt.Errorf("session must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[token]; !exists {
		s.metrics.IncrementActiveSessions(context.Background())
	}
	s.sessions[token] = session
	s.logger.Debug("saved session", "user_id", session.UserID, "expires_at", session.ExpiresAt)
	return nil
}

// GetSession returns the live session for a bearer token. Expired sessions
// are treated as absent.
func (s *Store) GetSession(token string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok || session.Expired() {
		return nil, false
	}
	return session, true
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; ok {
		delete(s.sessions, token)
		s.metrics.DecrementActiveSessions(context.Background())
	}
}

// Stats returns entry counts per bucket, for the health surface and tests.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]int{
		"clients":  len(s.clients),
		"codes":    len(s.codes),
		"sessions": len(s.sessions),
	}
}

// cleanupExpired periodically sweeps expired codes and sessions. Expired
// entries are collected under the read lock and re-checked under the write
// lock before deletion.
func (s *Store) cleanupExpired() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		now := time.Now()

		s.mu.RLock()
		var expiredCodes []string
		for code, pending := range s.codes {
			if now.After(pending.ExpiresAt) {
				expiredCodes = append(expiredCodes, code)
			}
		}
		var expiredSessions []string
		for token, session := range s.sessions {
			if now.After(session.ExpiresAt) {
				expiredSessions = append(expiredSessions, token)
			}
		}
		s.mu.RUnlock()

		if len(expiredCodes) == 0 && len(expiredSessions) == 0 {
			continue
		}

		s.mu.Lock()
		now = time.Now()
		for _, code := range expiredCodes {
			if pending, ok := s.codes[code]; ok && now.After(pending.ExpiresAt) {
				delete(s.codes, code)
			}
		}
		for _, token := range expiredSessions {
			if session, ok := s.sessions[token]; ok && now.After(session.ExpiresAt) {
				delete(s.sessions, token)
				s.metrics.DecrementActiveSessions(context.Background())
				s.logger.Debug("cleaned up expired session", "user_id", session.UserID)
			}
		}
		s.mu.Unlock()
	}
}
