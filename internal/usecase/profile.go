package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/repository"
)

var (
	// ErrProfileInvalid indicates required profile fields are missing.
	ErrProfileInvalid = errors.New("profile invalid")
	// ErrProfileNotFound indicates no profile exists for the id.
	ErrProfileNotFound = errors.New("user not found")
)

// CreateProfileInput carries the fields accepted when creating a profile.
type CreateProfileInput struct {
	UserID    string
	Email     string
	FullName  string
	AvatarURL *string
}

// ProfileService owns profile records on the backing-store side.
type ProfileService struct {
	profiles port.ProfileRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles port.ProfileRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{profiles: profiles, logger: logger, now: time.Now}
}

// WithClock overrides the time source (tests).
func (s *ProfileService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Create stores a profile unless one already exists for the id. The returned bool reports
// whether a new row was written; an existing profile is returned unchanged.
func (s *ProfileService) Create(ctx context.Context, input CreateProfileInput) (*domain.Profile, bool, error) {
	userID := strings.TrimSpace(input.UserID)
	email := strings.TrimSpace(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if userID == "" || email == "" || fullName == "" {
		return nil, false, fmt.Errorf("%w: user_id, email, and full_name are required", ErrProfileInvalid)
	}

	existing, err := s.profiles.GetByID(ctx, userID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("lookup profile: %w", err)
	}

	profile := domain.Profile{
		ID:        userID,
		Email:     email,
		FullName:  fullName,
		AvatarURL: input.AvatarURL,
		CreatedAt: s.now().UTC(),
	}

	created, err := s.profiles.CreateIfAbsent(ctx, profile)
	if err != nil {
		return nil, false, fmt.Errorf("create profile: %w", err)
	}
	if !created {
		// Lost a race with a concurrent create; report the row that won.
		winner, err := s.profiles.GetByID(ctx, userID)
		if err != nil {
			return nil, false, fmt.Errorf("lookup profile: %w", err)
		}
		return winner, false, nil
	}

	s.logger.Info("profile created", zap.String("user_id", userID))
	return &profile, true, nil
}

// Get returns the profile for id.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrProfileInvalid)
	}

	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// ProfileSync makes sure a backing-store profile exists for a freshly authenticated identity.
type ProfileSync struct {
	store  port.ProfileStore
	logger *zap.Logger
}

// NewProfileSync constructs a ProfileSync over the backing-store client.
func NewProfileSync(store port.ProfileStore, logger *zap.Logger) *ProfileSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileSync{store: store, logger: logger}
}

// EnsureProfile creates the profile for identity when the backing store has none.
// It reports whether a profile was created.
func (p *ProfileSync) EnsureProfile(ctx context.Context, identity domain.Identity, accessToken string) (bool, error) {
	if p == nil || p.store == nil {
		return false, nil
	}
	if identity.ID == "" {
		return false, fmt.Errorf("identity id is required")
	}

	_, err := p.store.GetProfile(ctx, accessToken, identity.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("fetch profile: %w", err)
	}

	fullName := identity.FullName()
	if fullName == "" {
		fullName = domain.PlaceholderFirstName
	}

	if _, err := p.store.CreateProfile(ctx, accessToken, domain.Profile{
		ID:       identity.ID,
		Email:    identity.Email,
		FullName: fullName,
	}); err != nil {
		return false, fmt.Errorf("create profile: %w", err)
	}

	p.logger.Debug("profile created for identity", zap.String("user_id", identity.ID))
	return true, nil
}
