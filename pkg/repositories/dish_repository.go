package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/database"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
)

// DishMatch is a catalog dish returned by vector search together with its
// cosine similarity to the query embedding.
type DishMatch struct {
	Dish       *models.DishRecord
	Similarity float64
}

// DishRepository provides data access for the curated dish catalog.
type DishRepository interface {
	// FindExact returns the dish whose English or Arabic name equals the
	// query case-insensitively. Country narrows the search when non-empty.
	FindExact(ctx context.Context, name, country string) (*models.DishRecord, error)

	// FindPrefix returns the dish whose English or Arabic name starts
	// with the query at a token boundary, preferring the shortest
	// matching name.
	FindPrefix(ctx context.Context, name, country string) (*models.DishRecord, error)

	// SearchVector returns dishes whose embedding similarity meets the
	// threshold, most similar first. Country narrows the search when
	// non-empty.
	SearchVector(ctx context.Context, embedding []float32, country string, threshold float64, limit int) ([]DishMatch, error)

	GetByID(ctx context.Context, id int64) (*models.DishRecord, error)
	ListCountries(ctx context.Context) ([]string, error)
	Create(ctx context.Context, dish *models.DishRecord) error
	Update(ctx context.Context, dish *models.DishRecord) error
	Delete(ctx context.Context, id int64) error
}

type dishRepository struct {
	db *database.DB
}

// NewDishRepository creates a new DishRepository.
func NewDishRepository(db *database.DB) DishRepository {
	return &dishRepository{db: db}
}

var _ DishRepository = (*dishRepository)(nil)

const dishColumns = `id, dish_name, dish_name_arabic, country, ingredients,
	total_calories, total_carbs, total_protein, total_fat, created_at, updated_at`

func (r *dishRepository) FindExact(ctx context.Context, name, country string) (*models.DishRecord, error) {
	query := `
		SELECT ` + dishColumns + `
		FROM dishes
		WHERE (lower(dish_name) = lower($1) OR lower(dish_name_arabic) = lower($1))`
	args := []any{name}

	if country != "" {
		query += ` AND lower(country) = lower($2)`
		args = append(args, country)
	}
	query += ` ORDER BY id LIMIT 1`

	return scanDishRow(r.db.QueryRow(ctx, query, args...))
}

func (r *dishRepository) FindPrefix(ctx context.Context, name, country string) (*models.DishRecord, error) {
	// Token-boundary prefix: "kabsa" matches "kabsa rice" and
	// "kabsa, chicken" but not "kabsaX".
	query := `
		SELECT ` + dishColumns + `
		FROM dishes
		WHERE (lower(dish_name) LIKE lower($1) || ' %'
		   OR lower(dish_name) LIKE lower($1) || ',%'
		   OR lower(dish_name_arabic) LIKE lower($1) || ' %'
		   OR lower(dish_name_arabic) LIKE lower($1) || ',%')`
	args := []any{escapeLike(name)}

	if country != "" {
		query += ` AND lower(country) = lower($2)`
		args = append(args, country)
	}
	query += ` ORDER BY length(dish_name), id LIMIT 1`

	return scanDishRow(r.db.QueryRow(ctx, query, args...))
}

func (r *dishRepository) SearchVector(ctx context.Context, embedding []float32, country string, threshold float64, limit int) ([]DishMatch, error) {
	query := `
		SELECT ` + dishColumns + `, 1 - (embedding <=> $1::vector) AS similarity
		FROM dishes
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1::vector) >= $2`
	args := []any{formatVector(embedding), threshold}

	if country != "" {
		query += ` AND lower(country) = lower($3)`
		args = append(args, country)
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1::vector LIMIT %d`, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search dishes: %w", err)
	}
	defer rows.Close()

	var matches []DishMatch
	for rows.Next() {
		dish, similarity, err := scanDishMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, DishMatch{Dish: dish, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dish rows: %w", err)
	}

	return matches, nil
}

func (r *dishRepository) GetByID(ctx context.Context, id int64) (*models.DishRecord, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE id = $1`
	return scanDishRow(r.db.QueryRow(ctx, query, id))
}

func (r *dishRepository) ListCountries(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT country FROM dishes ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	defer rows.Close()

	var countries []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating countries: %w", err)
	}

	return countries, nil
}

func (r *dishRepository) Create(ctx context.Context, dish *models.DishRecord) error {
	ingredientsJSON, err := json.Marshal(dish.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	now := time.Now()
	dish.CreatedAt = now
	dish.UpdatedAt = now

	var embedding *string
	if len(dish.Embedding) > 0 {
		v := formatVector(dish.Embedding)
		embedding = &v
	}

	query := `
		INSERT INTO dishes (
			dish_name, dish_name_arabic, country, ingredients,
			total_calories, total_carbs, total_protein, total_fat,
			embedding, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector, $10, $11)
		RETURNING id`

	err = r.db.QueryRow(ctx, query,
		dish.Name, nullIfEmpty(dish.NameArabic), dish.Country, ingredientsJSON,
		dish.Totals.Calories, dish.Totals.Carbs, dish.Totals.Protein, dish.Totals.Fat,
		embedding, dish.CreatedAt, dish.UpdatedAt,
	).Scan(&dish.ID)
	if err != nil {
		return fmt.Errorf("failed to create dish: %w", err)
	}

	return nil
}

func (r *dishRepository) Update(ctx context.Context, dish *models.DishRecord) error {
	ingredientsJSON, err := json.Marshal(dish.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	dish.UpdatedAt = time.Now()

	var embedding *string
	if len(dish.Embedding) > 0 {
		v := formatVector(dish.Embedding)
		embedding = &v
	}

	query := `
		UPDATE dishes
		SET dish_name = $2,
		    dish_name_arabic = $3,
		    country = $4,
		    ingredients = $5,
		    total_calories = $6,
		    total_carbs = $7,
		    total_protein = $8,
		    total_fat = $9,
		    embedding = COALESCE($10::vector, embedding),
		    updated_at = $11
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		dish.ID, dish.Name, nullIfEmpty(dish.NameArabic), dish.Country, ingredientsJSON,
		dish.Totals.Calories, dish.Totals.Carbs, dish.Totals.Protein, dish.Totals.Fat,
		embedding, dish.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dish: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dish %d: %w", dish.ID, apperrors.ErrNotFound)
	}

	return nil
}

func (r *dishRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM dishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dish: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dish %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func scanDishRow(row pgx.Row) (*models.DishRecord, error) {
	var dish models.DishRecord
	var nameArabic *string
	var ingredientsJSON []byte

	err := row.Scan(
		&dish.ID, &dish.Name, &nameArabic, &dish.Country, &ingredientsJSON,
		&dish.Totals.Calories, &dish.Totals.Carbs, &dish.Totals.Protein, &dish.Totals.Fat,
		&dish.CreatedAt, &dish.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan dish: %w", err)
	}

	if nameArabic != nil {
		dish.NameArabic = *nameArabic
	}
	if len(ingredientsJSON) > 0 {
		if err := json.Unmarshal(ingredientsJSON, &dish.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
	}

	return &dish, nil
}

func scanDishMatch(row pgx.Row) (*models.DishRecord, float64, error) {
	var dish models.DishRecord
	var nameArabic *string
	var ingredientsJSON []byte
	var similarity float64

	err := row.Scan(
		&dish.ID, &dish.Name, &nameArabic, &dish.Country, &ingredientsJSON,
		&dish.Totals.Calories, &dish.Totals.Carbs, &dish.Totals.Protein, &dish.Totals.Fat,
		&dish.CreatedAt, &dish.UpdatedAt, &similarity,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan dish match: %w", err)
	}

	if nameArabic != nil {
		dish.NameArabic = *nameArabic
	}
	if len(ingredientsJSON) > 0 {
		if err := json.Unmarshal(ingredientsJSON, &dish.Ingredients); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
	}

	return &dish, similarity, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// likeEscaper neutralizes LIKE metacharacters so a query containing "%" or
// "_" matches literally. Postgres escapes LIKE patterns with backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
