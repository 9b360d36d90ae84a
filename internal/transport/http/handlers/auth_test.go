package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/middleware"
	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

var janePrincipal = domain.Principal{
	ID:       "user-1",
	Email:    "jane@example.com",
	Metadata: map[string]any{domain.MetadataFirstName: "Jane", domain.MetadataLastName: "Doe"},
}

func newController(t *testing.T, provider *fakeProvider) *usecase.AuthController {
	t.Helper()
	cfg := &config.AppConfig{Auth: config.AuthSettings{MinPasswordLength: 8}}
	controller := usecase.NewAuthController(cfg, provider, usecase.NewSessionStore(), zaptest.NewLogger(t))
	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(controller.Dispose)
	return controller
}

func newAuthRouter(controller *usecase.AuthController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.EnrichContext())

	group := r.Group("/auth")
	NewAuthHandler(controller).RegisterRoutes(group)
	NewPasswordHandler(controller).RegisterRoutes(group.Group("/password"))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestLoginSuccess(t *testing.T) {
	provider := newFakeProvider()
	provider.signInSession = &domain.ProviderSession{AccessToken: "token", User: janePrincipal}
	controller := newController(t, provider)

	rr := doJSON(newAuthRouter(controller), http.MethodPost, "/auth/login", LoginRequest{Email: "jane@example.com", Password: "secret-password"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body IdentityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "user-1" || body.FullName != "Jane Doe" {
		t.Fatalf("unexpected identity %+v", body)
	}
	if !controller.Store().State().IsAuthenticated() {
		t.Fatalf("expected authenticated store")
	}
}

func TestLoginErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		body   any
		status int
	}{
		{name: "missing fields", body: map[string]string{"email": "jane@example.com"}, status: http.StatusBadRequest},
		{name: "rejected", err: &port.ProviderError{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}, status: http.StatusUnauthorized},
		{name: "unreachable", err: port.ErrProviderUnreachable, status: http.StatusServiceUnavailable},
		{name: "throttled by provider", err: &port.ProviderError{Status: http.StatusTooManyRequests}, status: http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.signInErr = tc.err
			controller := newController(t, provider)

			body := tc.body
			if body == nil {
				body = LoginRequest{Email: "jane@example.com", Password: "secret-password"}
			}
			rr := doJSON(newAuthRouter(controller), http.MethodPost, "/auth/login", body)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if decodeError(t, rr).TraceID == "" {
				t.Fatalf("expected trace id on error body")
			}
			if controller.Store().State().IsAuthenticated() {
				t.Fatalf("failed login must not authenticate")
			}
		})
	}
}

func TestSignupMismatchSkipsProvider(t *testing.T) {
	provider := newFakeProvider()
	controller := newController(t, provider)

	rr := doJSON(newAuthRouter(controller), http.MethodPost, "/auth/signup", SignupRequest{
		FirstName: "Jane", Email: "jane@example.com", Password: "long-enough-1", ConfirmPassword: "long-enough-2",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := decodeError(t, rr).Error; got != "Passwords do not match" {
		t.Fatalf("unexpected message %q", got)
	}
	if provider.count("sign_up") != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestSignupRequiringConfirmation(t *testing.T) {
	provider := newFakeProvider()
	provider.signUpResult = &port.SignUpResult{User: janePrincipal}
	controller := newController(t, provider)

	rr := doJSON(newAuthRouter(controller), http.MethodPost, "/auth/signup", SignupRequest{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "correct-horse-battery", ConfirmPassword: "correct-horse-battery",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var body SignupResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.RequiresConfirmation || body.User.ID != "user-1" {
		t.Fatalf("unexpected body %+v", body)
	}
	if controller.Store().State().IsAuthenticated() {
		t.Fatalf("sign-up must not authenticate")
	}
}

func TestSignupProviderReasonIsSurfaced(t *testing.T) {
	provider := newFakeProvider()
	provider.signUpErr = &port.ProviderError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	controller := newController(t, provider)

	rr := doJSON(newAuthRouter(controller), http.MethodPost, "/auth/signup", SignupRequest{
		Email: "jane@example.com", Password: "correct-horse-battery", ConfirmPassword: "correct-horse-battery",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := decodeError(t, rr).Error; got != "User already registered" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLogoutSucceedsWhenProviderFails(t *testing.T) {
	provider := newFakeProvider()
	provider.current = &domain.ProviderSession{AccessToken: "token", User: janePrincipal}
	provider.signOutErr = port.ErrProviderUnreachable
	controller := newController(t, provider)

	rr := doJSON(newAuthRouter(controller), http.MethodPost, "/auth/logout", nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := controller.Store().State().Tag(); got != domain.SessionUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", got)
	}
}

func TestResendRequiresEmail(t *testing.T) {
	provider := newFakeProvider()
	controller := newController(t, provider)
	router := newAuthRouter(controller)

	if rr := doJSON(router, http.MethodPost, "/auth/resend", map[string]string{"email": "  "}); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr := doJSON(router, http.MethodPost, "/auth/resend", EmailRequest{Email: "jane@example.com"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if provider.count("resend") != 1 {
		t.Fatalf("expected one resend call")
	}
}

func TestCallbackRedirects(t *testing.T) {
	cases := []struct {
		name     string
		session  *domain.ProviderSession
		location string
	}{
		{name: "confirmation", session: &domain.ProviderSession{AccessToken: "t", User: janePrincipal}, location: AppPath},
		{name: "recovery", session: &domain.ProviderSession{AccessToken: "t", AuthMethods: []string{"recovery"}, User: janePrincipal}, location: ResetFormPath},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.exchange = tc.session
			controller := newController(t, provider)

			rr := doJSON(newAuthRouter(controller), http.MethodGet, "/auth/callback?code=abc", nil)

			if rr.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
			}
			if got := rr.Header().Get("Location"); got != tc.location {
				t.Fatalf("expected %s, got %s", tc.location, got)
			}
			if !controller.Store().State().IsAuthenticated() {
				t.Fatalf("expected authenticated store")
			}
		})
	}
}

func TestCallbackWithProviderError(t *testing.T) {
	provider := newFakeProvider()
	controller := newController(t, provider)

	rr := doJSON(newAuthRouter(controller), http.MethodGet, "/auth/callback?error=access_denied&error_description=Email+link+is+invalid+or+has+expired", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := decodeError(t, rr).Error; !bytes.Contains([]byte(got), []byte("Email link is invalid or has expired")) {
		t.Fatalf("expected provider description, got %q", got)
	}
	if provider.count("exchange") != 0 {
		t.Fatalf("exchange must not be attempted")
	}
}

func TestPasswordForgotAndReset(t *testing.T) {
	provider := newFakeProvider()
	controller := newController(t, provider)
	router := newAuthRouter(controller)

	rr := doJSON(router, http.MethodPost, "/auth/password/forgot", EmailRequest{Email: "jane@example.com"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = doJSON(router, http.MethodGet, "/auth/password/reset", nil)
	var status ResetSessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Valid || status.MinPasswordLength != 8 {
		t.Fatalf("expected invalid session with min length 8, got %+v", status)
	}

	rr = doJSON(router, http.MethodPost, "/auth/password/reset", ResetPasswordRequest{Password: "new-password-1", ConfirmPassword: "new-password-1"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without reset session, got %d", rr.Code)
	}

	provider.mu.Lock()
	provider.current = &domain.ProviderSession{AccessToken: "t", AuthMethods: []string{"recovery"}, User: janePrincipal}
	provider.mu.Unlock()

	rr = doJSON(router, http.MethodPost, "/auth/password/reset", ResetPasswordRequest{Password: "short", ConfirmPassword: "short"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rr.Code)
	}

	rr = doJSON(router, http.MethodPost, "/auth/password/reset", ResetPasswordRequest{Password: "new-password-1", ConfirmPassword: "new-password-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if provider.count("update_user") != 1 {
		t.Fatalf("expected one update call")
	}
}
