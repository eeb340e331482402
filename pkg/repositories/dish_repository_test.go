//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/testhelpers"
)

// testEmbedding returns a 384-dim unit vector along the given axis. Cosine
// similarity is 1 for equal axes and 0 for different ones, which makes
// vector search outcomes predictable in tests.
func testEmbedding(axis int) []float32 {
	v := make([]float32, 384)
	v[axis%384] = 1
	return v
}

func setupDishTest(t *testing.T) (DishRepository, context.Context) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateTables(t, testDB.DB, "dishes")
	return NewDishRepository(testDB.DB), context.Background()
}

func seedDish(t *testing.T, repo DishRepository, name, country string, axis int, calories float64) *models.DishRecord {
	t.Helper()
	dish := &models.DishRecord{
		Name:    name,
		Country: country,
		Ingredients: []models.IngredientSpec{
			{Name: "Rice, white, cooked", WeightGrams: 200, Calories: calories},
		},
		Totals:    models.NutritionValues{Calories: calories},
		Embedding: testEmbedding(axis),
	}
	require.NoError(t, repo.Create(context.Background(), dish))
	return dish
}

func TestDishRepository_FindExact(t *testing.T) {
	repo, ctx := setupDishTest(t)
	seedDish(t, repo, "Kabsa", "Saudi Arabia", 0, 710)

	dish, err := repo.FindExact(ctx, "kabsa", "")
	require.NoError(t, err)
	assert.Equal(t, "Kabsa", dish.Name)
	assert.Equal(t, 710.0, dish.Totals.Calories)
	assert.Len(t, dish.Ingredients, 1)

	// Country filter is case-insensitive too
	dish, err = repo.FindExact(ctx, "KABSA", "saudi arabia")
	require.NoError(t, err)
	assert.Equal(t, "Kabsa", dish.Name)

	// Wrong country misses
	_, err = repo.FindExact(ctx, "kabsa", "Egypt")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDishRepository_FindPrefix(t *testing.T) {
	repo, ctx := setupDishTest(t)
	seedDish(t, repo, "Kabsa with chicken", "Saudi Arabia", 0, 850)
	seedDish(t, repo, "Kabsale special", "Saudi Arabia", 1, 500)

	// Prefix match stops at token boundary: "kabsa" matches
	// "Kabsa with chicken" but not "Kabsale special"
	dish, err := repo.FindPrefix(ctx, "kabsa", "")
	require.NoError(t, err)
	assert.Equal(t, "Kabsa with chicken", dish.Name)

	_, err = repo.FindPrefix(ctx, "kabs", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDishRepository_FindByArabicName(t *testing.T) {
	repo, ctx := setupDishTest(t)
	dish := &models.DishRecord{
		Name:       "Kabsa with chicken",
		NameArabic: "كبسة بالدجاج",
		Country:    "Saudi Arabia",
		Totals:     models.NutritionValues{Calories: 850},
		Embedding:  testEmbedding(0),
	}
	require.NoError(t, repo.Create(ctx, dish))

	got, err := repo.FindExact(ctx, "كبسة بالدجاج", "Saudi Arabia")
	require.NoError(t, err)
	assert.Equal(t, "Kabsa with chicken", got.Name)

	// Token-boundary prefix works on the Arabic name too
	got, err = repo.FindPrefix(ctx, "كبسة", "")
	require.NoError(t, err)
	assert.Equal(t, "Kabsa with chicken", got.Name)

	_, err = repo.FindPrefix(ctx, "كبس", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDishRepository_FindPrefixCommaBoundary(t *testing.T) {
	repo, ctx := setupDishTest(t)
	seedDish(t, repo, "Kabsa, lamb", "Saudi Arabia", 0, 920)

	dish, err := repo.FindPrefix(ctx, "kabsa", "")
	require.NoError(t, err)
	assert.Equal(t, "Kabsa, lamb", dish.Name)
}

func TestDishRepository_FindPrefixLiteralWildcards(t *testing.T) {
	repo, ctx := setupDishTest(t)
	seedDish(t, repo, "Kabsa with chicken", "Saudi Arabia", 0, 850)

	// LIKE metacharacters in the query must not act as wildcards
	_, err := repo.FindPrefix(ctx, "kabsa%", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.FindPrefix(ctx, "kabs_", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.FindPrefix(ctx, "%", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDishRepository_SearchVector(t *testing.T) {
	repo, ctx := setupDishTest(t)
	seedDish(t, repo, "Mansaf", "Jordan", 0, 900)
	seedDish(t, repo, "Falafel", "Egypt", 1, 330)

	matches, err := repo.SearchVector(ctx, testEmbedding(0), "", 0.6, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Mansaf", matches[0].Dish.Name)
	assert.InDelta(t, 1.0, matches[0].Similarity, 0.01)

	// Country filter excludes the similar dish
	matches, err = repo.SearchVector(ctx, testEmbedding(0), "Egypt", 0.6, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Threshold excludes orthogonal embeddings
	matches, err = repo.SearchVector(ctx, testEmbedding(2), "", 0.6, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDishRepository_ListCountries(t *testing.T) {
	repo, ctx := setupDishTest(t)
	seedDish(t, repo, "Mansaf", "Jordan", 0, 900)
	seedDish(t, repo, "Maqluba", "Jordan", 1, 600)
	seedDish(t, repo, "Koshari", "Egypt", 2, 450)

	countries, err := repo.ListCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Egypt", "Jordan"}, countries)
}

func TestDishRepository_UpdateAndDelete(t *testing.T) {
	repo, ctx := setupDishTest(t)
	dish := seedDish(t, repo, "Shakshuka", "Tunisia", 0, 300)

	dish.Totals.Calories = 350
	dish.Ingredients = append(dish.Ingredients, models.IngredientSpec{
		Name: "Egg, whole, cooked, poached", WeightGrams: 50, Calories: 71,
	})
	require.NoError(t, repo.Update(ctx, dish))

	got, err := repo.GetByID(ctx, dish.ID)
	require.NoError(t, err)
	assert.Equal(t, 350.0, got.Totals.Calories)
	assert.Len(t, got.Ingredients, 2)

	require.NoError(t, repo.Delete(ctx, dish.ID))

	_, err = repo.GetByID(ctx, dish.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	err = repo.Delete(ctx, dish.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
