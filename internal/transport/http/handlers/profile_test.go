package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/albrthuynh/NBAIQ/internal/infra/security"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/middleware"
	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

const profileSecret = "super-secret-jwt-token-with-at-least-32-characters"

func newProfileRouter(t *testing.T, repo *memoryProfiles) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := security.NewTokenVerifier(profileSecret, "authenticated", "")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	handler := NewProfileHandler(usecase.NewProfileService(repo, zaptest.NewLogger(t)), zaptest.NewLogger(t))

	r := gin.New()
	r.Use(middleware.EnrichContext())
	r.GET("/", handler.Welcome)
	handler.RegisterRoutes(r.Group("/api/users"), middleware.BearerAuth(verifier))
	return r
}

func bearerFor(t *testing.T, subject string) string {
	t.Helper()
	token, err := security.SignAccessToken(profileSecret, &security.AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func doAuthorized(r http.Handler, method, path, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateProfileIsIdempotent(t *testing.T) {
	repo := newMemoryProfiles()
	router := newProfileRouter(t, repo)
	bearer := bearerFor(t, "user-1")
	payload := `{"user_id":"user-1","email":"jane@example.com","full_name":"Jane Doe","avatar_url":null}`

	rr := doAuthorized(router, http.MethodPost, "/api/users", bearer, payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created CreateProfileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Message != "User created successfully" || created.User.FullName != "Jane Doe" || created.User.AvatarURL != nil {
		t.Fatalf("unexpected response %+v", created)
	}

	rr = doAuthorized(router, http.MethodPost, "/api/users", bearer, payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing profile, got %d", rr.Code)
	}
	var existing CreateProfileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &existing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if existing.Message != "User already exists" {
		t.Fatalf("unexpected message %q", existing.Message)
	}
}

func TestCreateProfileRejections(t *testing.T) {
	router := newProfileRouter(t, newMemoryProfiles())

	cases := []struct {
		name   string
		bearer string
		body   string
		status int
	}{
		{name: "no token", body: `{"user_id":"user-1","email":"a@b.c","full_name":"A"}`, status: http.StatusUnauthorized},
		{name: "other subject", bearer: bearerFor(t, "user-2"), body: `{"user_id":"user-1","email":"a@b.c","full_name":"A"}`, status: http.StatusForbidden},
		{name: "missing name", bearer: bearerFor(t, "user-1"), body: `{"user_id":"user-1","email":"a@b.c"}`, status: http.StatusBadRequest},
		{name: "malformed", bearer: bearerFor(t, "user-1"), body: `{`, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doAuthorized(router, http.MethodPost, "/api/users", tc.bearer, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGetProfile(t *testing.T) {
	repo := newMemoryProfiles()
	router := newProfileRouter(t, repo)
	bearer := bearerFor(t, "user-1")

	if rr := doAuthorized(router, http.MethodGet, "/api/users/user-1", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr := doAuthorized(router, http.MethodGet, "/api/users/user-1", bearer, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if got := decodeError(t, rr).Error; got != "User not found" {
		t.Fatalf("unexpected message %q", got)
	}

	doAuthorized(router, http.MethodPost, "/api/users", bearer, `{"user_id":"user-1","email":"jane@example.com","full_name":"Jane Doe"}`)

	rr = doAuthorized(router, http.MethodGet, "/api/users/user-1", bearer, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var profile ProfileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.ID != "user-1" || profile.Email != "jane@example.com" || profile.CreatedAt.IsZero() {
		t.Fatalf("unexpected profile %+v", profile)
	}

	repo.mu.Lock()
	repo.err = errors.New("connection reset")
	repo.mu.Unlock()
	if rr := doAuthorized(router, http.MethodGet, "/api/users/user-1", bearer, ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", rr.Code)
	}
}

func TestWelcome(t *testing.T) {
	rr := doAuthorized(newProfileRouter(t, newMemoryProfiles()), http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Welcome") {
		t.Fatalf("unexpected welcome response %d %s", rr.Code, rr.Body.String())
	}
}
