package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/repository"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(config.BackendSettings{BaseURL: server.URL + "/", Timeout: time.Second}, zaptest.NewLogger(t))
}

func TestGetProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/user-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "user-1",
			"email":      "mj@example.com",
			"full_name":  "Michael Jordan",
			"avatar_url": nil,
			"created_at": "2024-05-01T10:00:00Z",
		})
	})

	profile, err := client.GetProfile(context.Background(), "token-1", "user-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.ID != "user-1" || profile.FullName != "Michael Jordan" || profile.AvatarURL != nil {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be decoded")
	}
}

func TestGetProfileNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "User not found"})
	})

	if _, err := client.GetProfile(context.Background(), "token", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["user_id"] != "user-1" || body["full_name"] != "Michael Jordan" {
			t.Errorf("unexpected body %v", body)
		}
		if v, ok := body["avatar_url"]; !ok || v != nil {
			t.Errorf("avatar_url must be sent as null, got %v", v)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "User created successfully",
			"user":    map[string]any{"id": "user-1", "email": "mj@example.com", "full_name": "Michael Jordan"},
		})
	})

	profile, err := client.CreateProfile(context.Background(), "token", domain.Profile{ID: "user-1", Email: "mj@example.com", FullName: "Michael Jordan"})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if profile.ID != "user-1" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestErrorClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Missing required fields: user_id, email, full_name"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CreateProfile(context.Background(), "token", domain.Profile{ID: "user-1"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest || statusErr.Message == "" {
		t.Fatalf("expected StatusError, got %v", err)
	}

	if _, err := client.GetProfile(context.Background(), "token", "user-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
