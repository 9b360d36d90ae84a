package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/security"
)

// SignInWithPassword exchanges credentials for a session and emits SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.ProviderSession, error) {
	var resp tokenResponse
	if err := c.do(ctx, request{
		operation: "sign_in_with_password",
		method:    http.MethodPost,
		path:      "/token",
		query:     url.Values{"grant_type": {"password"}},
		body:      passwordGrantRequest{Email: email, Password: password},
	}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("gotrue sign_in_with_password: response carries no access token")
	}

	session := resp.session(c.now())
	c.storeSession(ctx, session)
	c.emit(domain.ProviderEventSignedIn, &session)
	return &session, nil
}

// SignUp registers an account. When the provider auto-confirms, the returned session is stored
// and SIGNED_IN emitted; otherwise only the principal is returned.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error) {
	body := signupRequest{Email: email, Password: password, Data: metadata}
	if err := c.attachChallenge(&body.CodeChallenge, &body.CodeChallengeMethod); err != nil {
		return nil, err
	}

	var resp signupResponse
	if err := c.do(ctx, request{
		operation: "sign_up",
		method:    http.MethodPost,
		path:      "/signup",
		query:     c.redirectQuery(c.emailRedirectURL),
		body:      body,
	}, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		session := resp.tokenResponse.session(c.now())
		c.storeSession(ctx, session)
		c.emit(domain.ProviderEventSignedIn, &session)
		return &port.SignUpResult{User: session.User, Session: &session}, nil
	}

	principal := resp.userResponse.principal()
	if principal.ID == "" && resp.User != nil {
		principal = resp.User.principal()
	}
	return &port.SignUpResult{User: principal}, nil
}

// SignOut revokes the session at the provider. The local session is cleared and SIGNED_OUT
// emitted whether or not the provider call succeeds.
func (c *Client) SignOut(ctx context.Context) error {
	current := c.currentSession(ctx)
	if current == nil {
		return nil
	}

	err := c.do(ctx, request{
		operation:   "sign_out",
		method:      http.MethodPost,
		path:        "/logout",
		accessToken: current.AccessToken,
	}, nil)

	c.clearSession(ctx)
	c.emit(domain.ProviderEventSignedOut, nil)

	var perr *port.ProviderError
	if errors.As(err, &perr) {
		// The session is already gone at the provider.
		switch perr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil
		}
	}
	return err
}

// ResetPasswordForEmail sends a recovery link that redirects to redirectTo.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	body := recoverRequest{Email: email}
	if err := c.attachChallenge(&body.CodeChallenge, &body.CodeChallengeMethod); err != nil {
		return err
	}

	return c.do(ctx, request{
		operation: "reset_password_for_email",
		method:    http.MethodPost,
		path:      "/recover",
		query:     c.redirectQuery(redirectTo),
		body:      body,
	}, nil)
}

// UpdateUser changes attributes of the signed-in user and emits USER_UPDATED.
func (c *Client) UpdateUser(ctx context.Context, attrs port.UserAttributes) (*domain.Principal, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &port.ProviderError{Status: http.StatusUnauthorized, Code: "session_missing", Message: "Auth session missing!"}
	}

	var resp userResponse
	if err := c.do(ctx, request{
		operation:   "update_user",
		method:      http.MethodPut,
		path:        "/user",
		body:        updateUserRequest{Email: attrs.Email, Password: attrs.Password, Data: attrs.Data},
		accessToken: session.AccessToken,
	}, &resp); err != nil {
		return nil, err
	}

	principal := resp.principal()
	session.User = principal
	c.storeSession(ctx, *session)
	c.emit(domain.ProviderEventUserUpdated, session)
	return &principal, nil
}

// Resend asks the provider to resend a confirmation message.
func (c *Client) Resend(ctx context.Context, kind port.ResendKind, email string) error {
	return c.do(ctx, request{
		operation: "resend",
		method:    http.MethodPost,
		path:      "/resend",
		query:     c.redirectQuery(c.emailRedirectURL),
		body:      resendRequest{Type: string(kind), Email: email},
	}, nil)
}

// ExchangeCodeForSession completes a PKCE link. Recovery links emit PASSWORD_RECOVERY,
// everything else SIGNED_IN.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (*domain.ProviderSession, error) {
	c.mu.Lock()
	verifier := c.codeVerifier
	c.mu.Unlock()
	if verifier == "" {
		return nil, &port.ProviderError{Status: http.StatusBadRequest, Code: "pkce_verifier_missing", Message: "PKCE code verifier not found; restart the flow from this device"}
	}

	var resp tokenResponse
	if err := c.do(ctx, request{
		operation: "exchange_code_for_session",
		method:    http.MethodPost,
		path:      "/token",
		query:     url.Values{"grant_type": {"pkce"}},
		body:      pkceGrantRequest{AuthCode: code, CodeVerifier: verifier},
	}, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.codeVerifier = ""
	c.mu.Unlock()

	session := resp.session(c.now())
	c.storeSession(ctx, session)
	if session.IsRecovery() {
		c.emit(domain.ProviderEventPasswordRecovery, &session)
	} else {
		c.emit(domain.ProviderEventSignedIn, &session)
	}
	return &session, nil
}

// attachChallenge generates a fresh PKCE verifier when the PKCE flow is enabled.
func (c *Client) attachChallenge(challenge, method *string) error {
	if !c.pkce {
		return nil
	}
	verifier, err := security.NewCodeVerifier()
	if err != nil {
		return fmt.Errorf("gotrue: generate code verifier: %w", err)
	}

	c.mu.Lock()
	c.codeVerifier = verifier
	c.mu.Unlock()

	*challenge = security.CodeChallengeS256(verifier)
	*method = challengeMethod
	c.logger.Debug("pkce challenge issued")
	return nil
}

func (c *Client) redirectQuery(redirectTo string) url.Values {
	if redirectTo == "" {
		return nil
	}
	return url.Values{"redirect_to": {redirectTo}}
}
