package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore resolves bearer tokens issued by the external auth service into
// actors. Sessions are written by that service; this side only reads them.
type SessionStore struct {
	client *redis.Client
	prefix string
}

type sessionPayload struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	ClientID string `json:"client_id,omitempty"`
}

// NewSessionStore constructs a SessionStore reading keys "<prefix>:<token>".
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionStore{client: client, prefix: prefix}
}

// Resolve loads the actor bound to token.
func (s *SessionStore) Resolve(ctx context.Context, token string) (Actor, error) {
	if token == "" {
		return Actor{}, fmt.Errorf("%w: missing session token", ErrUnauthorized)
	}
	if s == nil || s.client == nil {
		return Actor{}, errors.New("session store not initialised")
	}
	raw, err := s.client.Get(ctx, s.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Actor{}, fmt.Errorf("%w: unknown session", ErrUnauthorized)
		}
		return Actor{}, fmt.Errorf("%w: load session: %w", ErrUpstream, err)
	}

	var stored sessionPayload
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Actor{}, fmt.Errorf("%w: decode session: %w", ErrUnauthorized, err)
	}
	userID, err := uuid.Parse(stored.UserID)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: session user id: %w", ErrUnauthorized, err)
	}
	actor := Actor{UserID: userID, Role: strings.ToLower(strings.TrimSpace(stored.Role))}
	if stored.ClientID != "" {
		clientID, err := uuid.Parse(stored.ClientID)
		if err != nil {
			return Actor{}, fmt.Errorf("%w: session client id: %w", ErrUnauthorized, err)
		}
		actor.ClientID = &clientID
	}
	return actor, nil
}

func (s *SessionStore) redisKey(token string) string {
	return s.prefix + ":" + token
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
