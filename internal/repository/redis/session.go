package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
)

// SessionRepository stores the provider session of one session host under a single key.
type SessionRepository struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewSessionRepository stores the session at "<prefix>:<hostID>". A zero ttl keeps it forever.
func NewSessionRepository(client redis.Cmdable, prefix, hostID string, ttl time.Duration) *SessionRepository {
	key := hostID
	if prefix != "" {
		key = prefix + ":" + hostID
	}
	return &SessionRepository{client: client, key: key, ttl: ttl}
}

type storedPrincipal struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

type storedSession struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type,omitempty"`
	ExpiresAt    time.Time       `json:"expires_at"`
	AuthMethods  []string        `json:"amr,omitempty"`
	User         storedPrincipal `json:"user"`
}

// Load returns the stored session or nil when none exists.
func (r *SessionRepository) Load(ctx context.Context) (*domain.ProviderSession, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode stored session: %w", err)
	}

	return &domain.ProviderSession{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		ExpiresAt:    stored.ExpiresAt,
		AuthMethods:  stored.AuthMethods,
		User: domain.Principal{
			ID:               stored.User.ID,
			Email:            stored.User.Email,
			Metadata:         stored.User.Metadata,
			EmailConfirmedAt: stored.User.EmailConfirmedAt,
			CreatedAt:        stored.User.CreatedAt,
		},
	}, nil
}

// Save replaces the stored session.
func (r *SessionRepository) Save(ctx context.Context, session domain.ProviderSession) error {
	payload, err := json.Marshal(storedSession{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		ExpiresAt:    session.ExpiresAt.UTC(),
		AuthMethods:  session.AuthMethods,
		User: storedPrincipal{
			ID:               session.User.ID,
			Email:            session.User.Email,
			Metadata:         session.User.Metadata,
			EmailConfirmedAt: session.User.EmailConfirmedAt,
			CreatedAt:        session.User.CreatedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := r.client.Set(ctx, r.key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (r *SessionRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

var _ port.SessionPersistence = (*SessionRepository)(nil)
