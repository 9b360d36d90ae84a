package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/repository"
)

const profilesTable = "users"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileRepository implements port.ProfileRepository backed by PostgreSQL.
type ProfileRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewProfileRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewProfileRepository(exec pgExecutor) *ProfileRepository {
	return &ProfileRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *ProfileRepository) WithTx(tx pgx.Tx) *ProfileRepository {
	if tx == nil {
		return r
	}
	return &ProfileRepository{exec: tx, builder: r.builder}
}

// GetByID loads a profile by the identity provider's user id.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	stmt, args, err := r.builder.
		Select("id", "email", "full_name", "avatar_url", "created_at").
		From(profilesTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	var profile domain.Profile
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	profile.CreatedAt = profile.CreatedAt.UTC()
	return &profile, nil
}

// CreateIfAbsent inserts the profile unless a row with the same id exists.
// It reports whether this call wrote the row.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, profile domain.Profile) (bool, error) {
	stmt, args, err := r.builder.
		Insert(profilesTable).
		Columns("id", "email", "full_name", "avatar_url", "created_at").
		Values(profile.ID, profile.Email, profile.FullName, profile.AvatarURL, profile.CreatedAt.UTC()).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert profile sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("insert profile: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
