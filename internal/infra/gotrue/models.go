package gotrue

import (
	"strings"
	"time"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/infra/security"
)

type userResponse struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	UserMetadata     map[string]any `json:"user_metadata"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	CreatedAt        time.Time      `json:"created_at"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

// signupResponse is either a token response (auto-confirm) or a bare user object.
type signupResponse struct {
	tokenResponse
	userResponse
}

type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshGrantRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type pkceGrantRequest struct {
	AuthCode     string `json:"auth_code"`
	CodeVerifier string `json:"code_verifier"`
}

type signupRequest struct {
	Email               string         `json:"email"`
	Password            string         `json:"password"`
	Data                map[string]any `json:"data,omitempty"`
	CodeChallenge       string         `json:"code_challenge,omitempty"`
	CodeChallengeMethod string         `json:"code_challenge_method,omitempty"`
}

type recoverRequest struct {
	Email               string `json:"email"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

type updateUserRequest struct {
	Email    string         `json:"email,omitempty"`
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

type resendRequest struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

func (u *userResponse) principal() domain.Principal {
	if u == nil {
		return domain.Principal{}
	}
	return domain.Principal{
		ID:               u.ID,
		Email:            u.Email,
		Metadata:         u.UserMetadata,
		EmailConfirmedAt: u.EmailConfirmedAt,
		CreatedAt:        u.CreatedAt,
	}
}

// session converts a token response. The amr claim is read from the access token without
// verifying it: the token arrived directly from the provider.
func (t *tokenResponse) session(now time.Time) domain.ProviderSession {
	session := domain.ProviderSession{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		User:         t.User.principal(),
	}

	switch {
	case t.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		session.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}

	if claims, err := security.ParseUnverifiedClaims(t.AccessToken); err == nil {
		session.AuthMethods = claims.Methods()
		if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}
		if session.User.ID == "" {
			session.User.ID = claims.Subject
			session.User.Email = claims.Email
			session.User.Metadata = claims.UserMetadata
		}
	}

	return session
}

func (e errorResponse) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	return e.Error
}

func (e errorResponse) message() string {
	for _, candidate := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
