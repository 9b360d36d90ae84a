package gotrue

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
)

// GetSession returns the current session, refreshing it first when it expires within the
// refresh margin. A session whose refresh is rejected is cleared and nil is returned.
func (c *Client) GetSession(ctx context.Context) (*domain.ProviderSession, error) {
	current := c.currentSession(ctx)
	if current == nil {
		return nil, nil
	}
	if !current.ExpiresWithin(c.now(), c.refreshMargin) {
		return current, nil
	}

	refreshed, err := c.refreshSession(ctx, current)
	if err != nil {
		if isProviderRejection(err) {
			return nil, nil
		}
		if current.Expired(c.now()) {
			return nil, err
		}
		c.logger.Warn("session refresh failed; keeping unexpired session", zap.Error(err))
		return current, nil
	}
	return refreshed, nil
}

// SignOutLocal drops the local session when it belongs to userID, emitting SIGNED_OUT.
// It reports whether a session was dropped. No provider call is made.
func (c *Client) SignOutLocal(ctx context.Context, userID string) (bool, error) {
	current := c.currentSession(ctx)
	if current == nil || current.User.ID != userID {
		return false, nil
	}
	c.clearSession(ctx)
	c.emit(domain.ProviderEventSignedOut, nil)
	return true, nil
}

// refreshSession exchanges the refresh token of stale for a new session. A provider rejection
// clears the session and emits SIGNED_OUT; success emits TOKEN_REFRESHED.
func (c *Client) refreshSession(ctx context.Context, stale *domain.ProviderSession) (*domain.ProviderSession, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.currentSession(ctx)
	if current == nil {
		return nil, nil
	}
	if current.RefreshToken != stale.RefreshToken {
		return current, nil
	}

	var resp tokenResponse
	err := c.do(ctx, request{
		operation: "refresh",
		method:    http.MethodPost,
		path:      "/token",
		query:     url.Values{"grant_type": {"refresh_token"}},
		body:      refreshGrantRequest{RefreshToken: current.RefreshToken},
	}, &resp)
	if err != nil {
		if isProviderRejection(err) {
			c.logger.Info("refresh token rejected; clearing session", zap.Error(err))
			c.clearSession(ctx)
			c.emit(domain.ProviderEventSignedOut, nil)
		}
		return nil, err
	}

	session := resp.session(c.now())
	if session.User.ID == "" {
		session.User = current.User
	}
	c.storeSession(ctx, session)
	c.emit(domain.ProviderEventTokenRefreshed, &session)
	return &session, nil
}

func (c *Client) currentSession(ctx context.Context) *domain.ProviderSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded && c.persistence != nil {
		stored, err := c.persistence.Load(ctx)
		if err != nil {
			c.logger.Warn("load persisted session failed", zap.Error(err))
		} else {
			c.session = stored
			c.loaded = true
		}
	}
	if c.session == nil {
		return nil
	}
	copy := *c.session
	return &copy
}

func (c *Client) storeSession(ctx context.Context, session domain.ProviderSession) {
	c.mu.Lock()
	c.session = &session
	c.loaded = true
	c.mu.Unlock()

	if c.persistence != nil {
		if err := c.persistence.Save(ctx, session); err != nil {
			c.logger.Warn("persist session failed", zap.Error(err))
		}
	}
}

func (c *Client) clearSession(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	c.loaded = true
	c.mu.Unlock()

	if c.persistence != nil {
		if err := c.persistence.Clear(ctx); err != nil {
			c.logger.Warn("clear persisted session failed", zap.Error(err))
		}
	}
}
