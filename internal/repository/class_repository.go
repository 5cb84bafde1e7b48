package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pedago-admin/internal/models"
)

const classColumns = "id, name, level, track, active, created_at, updated_at"

// ClassRepository reads classes offered in the wizard.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListActive returns active classes matching the filter ordered by level then name.
func (r *ClassRepository) ListActive(ctx context.Context, filter models.ClassFilter) ([]models.Class, error) {
	base := "FROM classes WHERE active = TRUE"
	var args []interface{}

	if filter.Level != "" {
		base += fmt.Sprintf(" AND level = $%d", len(args)+1)
		args = append(args, filter.Level)
	}
	if filter.Track != "" {
		base += fmt.Sprintf(" AND track = $%d", len(args)+1)
		args = append(args, filter.Track)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY level ASC, name ASC LIMIT %d", classColumns, base, limit)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class by ID regardless of its active flag.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := "SELECT " + classColumns + " FROM classes WHERE id = $1"
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}
