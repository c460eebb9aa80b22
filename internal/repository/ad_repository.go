package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tiptop/backend/internal/models"
)

const adColumns = `id, title, image, link, is_active, created_at`

type AdRepository struct {
	db *sql.DB
}

func NewAdRepository(db *sql.DB) *AdRepository {
	return &AdRepository{db: db}
}

func (r *AdRepository) Create(ctx context.Context, ad *models.Ad) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ads (title, image, link, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		ad.Title, ad.Image, ad.Link, ad.IsActive,
	).Scan(&ad.ID, &ad.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ad: %w", err)
	}
	return nil
}

func (r *AdRepository) GetByID(ctx context.Context, id int64) (*models.Ad, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id)

	ad, err := scanAd(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad: %w", err)
	}
	return ad, nil
}

func (r *AdRepository) ListActive(ctx context.Context, limit int) ([]*models.Ad, error) {
	return r.list(ctx, `SELECT `+adColumns+` FROM ads WHERE is_active = TRUE ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *AdRepository) ListAll(ctx context.Context) ([]*models.Ad, error) {
	return r.list(ctx, `SELECT `+adColumns+` FROM ads ORDER BY created_at DESC`)
}

// Toggle flips is_active and returns the updated ad.
func (r *AdRepository) Toggle(ctx context.Context, id int64) (*models.Ad, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE ads SET is_active = NOT is_active
		WHERE id = $1
		RETURNING `+adColumns, id)

	ad, err := scanAd(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle ad: %w", err)
	}
	return ad, nil
}

func (r *AdRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdRepository) list(ctx context.Context, query string, args ...any) ([]*models.Ad, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	defer rows.Close()

	var ads []*models.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ad: %w", err)
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

func scanAd(row rowScanner) (*models.Ad, error) {
	var ad models.Ad
	if err := row.Scan(&ad.ID, &ad.Title, &ad.Image, &ad.Link, &ad.IsActive, &ad.CreatedAt); err != nil {
		return nil, err
	}
	return &ad, nil
}
