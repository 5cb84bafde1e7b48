package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pedago-admin/internal/models"
)

// MaquetteRepository reads class curricula.
type MaquetteRepository struct {
	db *sqlx.DB
}

// NewMaquetteRepository constructs a MaquetteRepository.
func NewMaquetteRepository(db *sqlx.DB) *MaquetteRepository {
	return &MaquetteRepository{db: db}
}

// ListActiveByClass returns the active curricula of a class, oldest first.
func (r *MaquetteRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.Maquette, error) {
	const query = `SELECT id, class_id, unites_enseignement, active, created_at, updated_at
FROM maquettes WHERE class_id = $1 AND active = TRUE ORDER BY created_at ASC`
	var maquettes []models.Maquette
	if err := r.db.SelectContext(ctx, &maquettes, query, classID); err != nil {
		return nil, fmt.Errorf("list maquettes for class %s: %w", classID, err)
	}
	return maquettes, nil
}
