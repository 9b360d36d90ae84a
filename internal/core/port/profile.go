package port

import (
	"context"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
)

// ProfileStore is the client view of the backing-store API.
// GetProfile returns repository.ErrNotFound when no record exists.
type ProfileStore interface {
	GetProfile(ctx context.Context, accessToken, userID string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, accessToken string, profile domain.Profile) (*domain.Profile, error)
}

// ProfileRepository exposes persistence behavior for profile records.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	// CreateIfAbsent inserts the profile and reports whether a row was written.
	CreateIfAbsent(ctx context.Context, profile domain.Profile) (bool, error)
}
