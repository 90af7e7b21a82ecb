package tenantctx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates an unknown or expired session token.
var ErrSessionNotFound = errors.New("tenantctx: session not found")

// Session is the authenticated state attached to a token.
type Session struct {
	UserID   int64  `json:"user_id"`
	TenantID *int64 `json:"tenant_id,omitempty"`
}

// SessionStore keeps sessions in Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create stores a new session and returns its token.
func (s *SessionStore) Create(ctx context.Context, sess Session) (string, error) {
	token := uuid.NewString()
	if err := s.Save(ctx, token, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Save writes the session under token, refreshing its TTL.
func (s *SessionStore) Save(ctx context.Context, token string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(token), data, s.ttl).Err()
}

// Load reads the session stored under token.
func (s *SessionStore) Load(ctx context.Context, token string) (Session, error) {
	payload, err := s.client.Get(ctx, redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Destroy removes the session.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// SwitchTenant changes the active tenant of an existing session.
func (s *SessionStore) SwitchTenant(ctx context.Context, token string, tenantID int64) error {
	sess, err := s.Load(ctx, token)
	if err != nil {
		return err
	}
	sess.TenantID = &tenantID
	return s.Save(ctx, token, sess)
}

func redisKey(token string) string {
	return "session:" + token
}
