package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tixgate/internal/model"
	apperrors "tixgate/pkg/app_errors"
)

// ShowRepository is the read-only slice of the catalog the reservation path
// needs. Show CRUD belongs to the catalog service, not here.
type ShowRepository interface {
	FindByID(ctx context.Context, id int) (*model.Show, error)
}

type ShowRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewShowRepository(pool *pgxpool.Pool) ShowRepository {
	return &ShowRepositoryImpl{pool: pool}
}

func (r *ShowRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Show, error) {
	query := `
		SELECT id, show_id, event_id, name, starts_at
		FROM shows
		WHERE id = $1
	`

	var show model.Show
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&show.ID,
		&show.ShowID,
		&show.EventID,
		&show.Name,
		&show.StartsAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrShowNotFound
		}
		return nil, err
	}

	return &show, nil
}
