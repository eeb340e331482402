package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/database"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
)

// MissingMatchRepository provides data access for queries the catalog could
// not answer directly.
type MissingMatchRepository interface {
	// Upsert records a missing match. Repeats of the same normalized
	// (dish name, country) pair increment the query count and refresh the
	// stored analysis.
	Upsert(ctx context.Context, rec *models.MissingMatchRecord) error

	// GetByNameAndCountry returns the record for a normalized
	// (dish name, country) pair.
	GetByNameAndCountry(ctx context.Context, dishName, country string) (*models.MissingMatchRecord, error)

	// List returns records filtered by status (empty means all), most
	// recently queried first.
	List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.MissingMatchRecord, error)

	UpdateStatus(ctx context.Context, id int64, status models.ReviewStatus) error
	Delete(ctx context.Context, id int64) error
}

type missingMatchRepository struct {
	db *database.DB
}

// NewMissingMatchRepository creates a new MissingMatchRepository.
func NewMissingMatchRepository(db *database.DB) MissingMatchRepository {
	return &missingMatchRepository{db: db}
}

var _ MissingMatchRepository = (*missingMatchRepository)(nil)

func (r *missingMatchRepository) Upsert(ctx context.Context, rec *models.MissingMatchRecord) error {
	var analysisJSON, ingredientsJSON []byte
	var err error

	if rec.Analysis != nil {
		analysisJSON, err = json.Marshal(rec.Analysis)
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
	}
	if rec.Ingredients != nil {
		ingredientsJSON, err = json.Marshal(rec.Ingredients)
		if err != nil {
			return fmt.Errorf("failed to marshal ingredients: %w", err)
		}
	}

	now := time.Now()

	query := `
		INSERT INTO missing_dishes (
			dish_name, dish_name_arabic, country, query_text, analysis, ingredients,
			query_count, first_queried, last_queried, status
		) VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7, $8)
		ON CONFLICT (lower(dish_name), lower(country)) DO UPDATE
		SET query_count = missing_dishes.query_count + 1,
		    last_queried = EXCLUDED.last_queried,
		    query_text = EXCLUDED.query_text,
		    analysis = COALESCE(EXCLUDED.analysis, missing_dishes.analysis),
		    ingredients = COALESCE(EXCLUDED.ingredients, missing_dishes.ingredients)
		RETURNING id, query_count, first_queried, last_queried, status`

	err = r.db.QueryRow(ctx, query,
		rec.DishName, nullIfEmpty(rec.DishNameAr), rec.Country, rec.QueryText,
		analysisJSON, ingredientsJSON, now, models.ReviewPending,
	).Scan(&rec.ID, &rec.QueryCount, &rec.FirstQueried, &rec.LastQueried, &rec.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert missing dish: %w", err)
	}

	return nil
}

func (r *missingMatchRepository) GetByNameAndCountry(ctx context.Context, dishName, country string) (*models.MissingMatchRecord, error) {
	query := `
		SELECT id, dish_name, dish_name_arabic, country, query_text, analysis, ingredients,
		       query_count, first_queried, last_queried, status
		FROM missing_dishes
		WHERE lower(dish_name) = lower($1) AND lower(country) = lower($2)`

	var rec models.MissingMatchRecord
	var nameArabic *string
	var analysisJSON, ingredientsJSON []byte

	err := r.db.QueryRow(ctx, query, dishName, country).Scan(
		&rec.ID, &rec.DishName, &nameArabic, &rec.Country, &rec.QueryText,
		&analysisJSON, &ingredientsJSON,
		&rec.QueryCount, &rec.FirstQueried, &rec.LastQueried, &rec.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get missing dish: %w", err)
	}

	if nameArabic != nil {
		rec.DishNameAr = *nameArabic
	}
	if len(analysisJSON) > 0 {
		if err := json.Unmarshal(analysisJSON, &rec.Analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
	}
	if len(ingredientsJSON) > 0 {
		if err := json.Unmarshal(ingredientsJSON, &rec.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
	}

	return &rec, nil
}

func (r *missingMatchRepository) List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.MissingMatchRecord, error) {
	query := `
		SELECT id, dish_name, dish_name_arabic, country, query_text, analysis, ingredients,
		       query_count, first_queried, last_queried, status
		FROM missing_dishes`
	var args []any

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY last_queried DESC LIMIT %d`, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing dishes: %w", err)
	}
	defer rows.Close()

	var records []*models.MissingMatchRecord
	for rows.Next() {
		var rec models.MissingMatchRecord
		var nameArabic *string
		var analysisJSON, ingredientsJSON []byte

		err := rows.Scan(
			&rec.ID, &rec.DishName, &nameArabic, &rec.Country, &rec.QueryText,
			&analysisJSON, &ingredientsJSON,
			&rec.QueryCount, &rec.FirstQueried, &rec.LastQueried, &rec.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan missing dish: %w", err)
		}

		if nameArabic != nil {
			rec.DishNameAr = *nameArabic
		}
		if len(analysisJSON) > 0 {
			if err := json.Unmarshal(analysisJSON, &rec.Analysis); err != nil {
				return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
			}
		}
		if len(ingredientsJSON) > 0 {
			if err := json.Unmarshal(ingredientsJSON, &rec.Ingredients); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
			}
		}

		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missing dish rows: %w", err)
	}

	return records, nil
}

func (r *missingMatchRepository) UpdateStatus(ctx context.Context, id int64, status models.ReviewStatus) error {
	result, err := r.db.Exec(ctx,
		`UPDATE missing_dishes SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update missing dish status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("missing dish %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *missingMatchRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM missing_dishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete missing dish: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("missing dish %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
