package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_SlidingWindow(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl", TTL: 2 * time.Minute})

	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute
	id := "auth_login_email:mj@example.com"

	for _, at := range []time.Time{base.Add(-90 * time.Second), base.Add(-30 * time.Second), base.Add(-30 * time.Second), base} {
		if err := repo.RecordAttempt(ctx, id, at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, id, window, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected simultaneous attempts to be counted separately, got %d", count)
	}

	oldest, ok, err := repo.OldestAttempt(ctx, id, window, base)
	if err != nil || !ok {
		t.Fatalf("OldestAttempt = %v, %v, %v", oldest, ok, err)
	}
	if !oldest.Equal(base.Add(-30 * time.Second)) {
		t.Fatalf("unexpected oldest attempt %v", oldest)
	}

	if err := repo.TrimWindow(ctx, id, window, base); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}
	members, err := client.ZCard(ctx, "rl:"+id).Result()
	if err != nil {
		t.Fatalf("ZCard returned error: %v", err)
	}
	if members != 3 {
		t.Fatalf("expected expired attempt to be trimmed, got %d members", members)
	}

	if ttl := server.TTL("rl:" + id); ttl <= 0 || ttl > 2*time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestRateLimitRepository_EmptyAndInvalidWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})
	ctx := context.Background()

	if _, ok, err := repo.OldestAttempt(ctx, "nobody", time.Minute, time.Now()); err != nil || ok {
		t.Fatalf("expected no attempts, got ok=%v err=%v", ok, err)
	}
	if _, err := repo.CountAttempts(ctx, "nobody", 0, time.Now()); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
}

func TestSessionRepository_RoundTripAndClear(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "nbaiq:session", "web", time.Hour)
	ctx := context.Background()

	session, err := repo.Load(ctx)
	if err != nil || session != nil {
		t.Fatalf("expected empty store, got %+v err=%v", session, err)
	}

	expires := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	want := domain.ProviderSession{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "bearer",
		ExpiresAt:    expires,
		AuthMethods:  []string{"password"},
		User: domain.Principal{
			ID:       "user-1",
			Email:    "mj@example.com",
			Metadata: map[string]any{"firstName": "Michael"},
		},
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if ttl := server.TTL("nbaiq:session:web"); ttl != time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.User.ID != "user-1" || got.User.Metadata["firstName"] != "Michael" || len(got.AuthMethods) != 1 {
		t.Fatalf("unexpected user %+v", got.User)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if server.Exists("nbaiq:session:web") {
		t.Fatalf("expected key to be removed")
	}
}

func TestSessionRepository_CorruptPayload(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "", "web", 0)

	if err := server.Set("web", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}
