package port

import (
	"context"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
)

// SessionPersistence keeps the provider session across process restarts.
// Load returns nil without error when nothing is stored.
type SessionPersistence interface {
	Load(ctx context.Context) (*domain.ProviderSession, error)
	Save(ctx context.Context, session domain.ProviderSession) error
	Clear(ctx context.Context) error
}
