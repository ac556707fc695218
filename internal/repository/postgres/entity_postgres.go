package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rtodocs/internal/model"
	"rtodocs/internal/repository"
)

// EntityPostgres resolves entity ownership against the RTO application's own tables.
type EntityPostgres struct {
	db *sql.DB
}

func NewEntityPostgres(db *sql.DB) *EntityPostgres {
	return &EntityPostgres{db: db}
}

var _ repository.EntityRepository = (*EntityPostgres)(nil)

var ownerQueries = map[model.EntityType]string{
	model.EntityUser:          `SELECT id FROM users WHERE id = $1`,
	model.EntityVehicle:       `SELECT owner_id FROM vehicles WHERE id = $1`,
	model.EntityDLApplication: `SELECT user_id FROM dl_applications WHERE id = $1`,
}

// OwnerOf returns the owning user id; sql.ErrNoRows if the entity does not exist.
func (r *EntityPostgres) OwnerOf(ctx context.Context, entityType model.EntityType, entityID string) (string, error) {
	q, ok := ownerQueries[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	var owner string
	if err := r.db.QueryRowContext(ctx, q, entityID).Scan(&owner); err != nil {
		return "", err
	}
	return owner, nil
}
