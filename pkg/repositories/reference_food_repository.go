package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/database"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
)

// ReferenceFoodMatch is a reference food returned by vector search together
// with its cosine similarity to the query embedding.
type ReferenceFoodMatch struct {
	Food       *models.ReferenceFood
	Similarity float64
}

// ReferenceFoodRepository provides data access for per-100g reference
// nutrition records.
type ReferenceFoodRepository interface {
	// FindExact returns the reference food whose description equals the
	// query case-insensitively.
	FindExact(ctx context.Context, description string) (*models.ReferenceFood, error)

	// FindPrefix returns the reference food whose description starts with
	// the query at a token boundary, preferring the shortest description.
	FindPrefix(ctx context.Context, description string) (*models.ReferenceFood, error)

	// SearchVector returns reference foods whose embedding similarity
	// meets the threshold, most similar first.
	SearchVector(ctx context.Context, embedding []float32, threshold float64, limit int) ([]ReferenceFoodMatch, error)

	GetByFdcID(ctx context.Context, fdcID int64) (*models.ReferenceFood, error)
	Create(ctx context.Context, food *models.ReferenceFood) error
}

type referenceFoodRepository struct {
	db *database.DB
}

// NewReferenceFoodRepository creates a new ReferenceFoodRepository.
func NewReferenceFoodRepository(db *database.DB) ReferenceFoodRepository {
	return &referenceFoodRepository{db: db}
}

var _ ReferenceFoodRepository = (*referenceFoodRepository)(nil)

const referenceFoodColumns = `id, fdc_id, description, calories, protein, carbs, fat, source, created_at`

func (r *referenceFoodRepository) FindExact(ctx context.Context, description string) (*models.ReferenceFood, error) {
	query := `
		SELECT ` + referenceFoodColumns + `
		FROM reference_foods
		WHERE lower(description) = lower($1)
		ORDER BY id LIMIT 1`

	return scanReferenceFoodRow(r.db.QueryRow(ctx, query, description))
}

func (r *referenceFoodRepository) FindPrefix(ctx context.Context, description string) (*models.ReferenceFood, error) {
	// USDA descriptions are comma-delimited, so both "Tomatoes, raw" and
	// "Rice flour white" count as token-boundary matches for their first
	// word.
	query := `
		SELECT ` + referenceFoodColumns + `
		FROM reference_foods
		WHERE lower(description) LIKE lower($1) || ',%'
		   OR lower(description) LIKE lower($1) || ' %'
		ORDER BY length(description), id LIMIT 1`

	return scanReferenceFoodRow(r.db.QueryRow(ctx, query, escapeLike(description)))
}

func (r *referenceFoodRepository) SearchVector(ctx context.Context, embedding []float32, threshold float64, limit int) ([]ReferenceFoodMatch, error) {
	query := fmt.Sprintf(`
		SELECT `+referenceFoodColumns+`, 1 - (embedding <=> $1::vector) AS similarity
		FROM reference_foods
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1::vector) >= $2
		ORDER BY embedding <=> $1::vector
		LIMIT %d`, limit)

	rows, err := r.db.Query(ctx, query, formatVector(embedding), threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search reference foods: %w", err)
	}
	defer rows.Close()

	var matches []ReferenceFoodMatch
	for rows.Next() {
		var food models.ReferenceFood
		var source *string
		var similarity float64

		err := rows.Scan(
			&food.ID, &food.FdcID, &food.Description,
			&food.Calories, &food.Protein, &food.Carbs, &food.Fat,
			&source, &food.CreatedAt, &similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reference food match: %w", err)
		}
		if source != nil {
			food.Source = *source
		}
		matches = append(matches, ReferenceFoodMatch{Food: &food, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reference food rows: %w", err)
	}

	return matches, nil
}

func (r *referenceFoodRepository) GetByFdcID(ctx context.Context, fdcID int64) (*models.ReferenceFood, error) {
	query := `SELECT ` + referenceFoodColumns + ` FROM reference_foods WHERE fdc_id = $1`
	return scanReferenceFoodRow(r.db.QueryRow(ctx, query, fdcID))
}

func (r *referenceFoodRepository) Create(ctx context.Context, food *models.ReferenceFood) error {
	var embedding *string
	if len(food.Embedding) > 0 {
		v := formatVector(food.Embedding)
		embedding = &v
	}

	query := `
		INSERT INTO reference_foods (fdc_id, description, calories, protein, carbs, fat, source, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector)
		ON CONFLICT (fdc_id) DO UPDATE
		SET description = EXCLUDED.description,
		    calories = EXCLUDED.calories,
		    protein = EXCLUDED.protein,
		    carbs = EXCLUDED.carbs,
		    fat = EXCLUDED.fat,
		    source = EXCLUDED.source,
		    embedding = COALESCE(EXCLUDED.embedding, reference_foods.embedding)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		food.FdcID, food.Description, food.Calories, food.Protein, food.Carbs, food.Fat,
		nullIfEmpty(food.Source), embedding,
	).Scan(&food.ID, &food.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reference food: %w", err)
	}

	return nil
}

func scanReferenceFoodRow(row pgx.Row) (*models.ReferenceFood, error) {
	var food models.ReferenceFood
	var source *string

	err := row.Scan(
		&food.ID, &food.FdcID, &food.Description,
		&food.Calories, &food.Protein, &food.Carbs, &food.Fat,
		&source, &food.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan reference food: %w", err)
	}

	if source != nil {
		food.Source = *source
	}

	return &food, nil
}
