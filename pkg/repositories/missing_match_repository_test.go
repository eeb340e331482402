//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/testhelpers"
)

func setupMissingMatchTest(t *testing.T) (MissingMatchRepository, context.Context) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateTables(t, testDB.DB, "missing_dishes")
	return NewMissingMatchRepository(testDB.DB), context.Background()
}

func TestMissingMatchRepository_UpsertIncrementsCount(t *testing.T) {
	repo, ctx := setupMissingMatchTest(t)

	first := &models.MissingMatchRecord{
		DishName:  "Harees",
		Country:   "UAE",
		QueryText: "calories in harees",
	}
	require.NoError(t, repo.Upsert(ctx, first))
	assert.Equal(t, 1, first.QueryCount)
	assert.Equal(t, models.ReviewPending, first.Status)

	// Same dish and country, different casing, collapses onto one record
	repeat := &models.MissingMatchRecord{
		DishName:  "HAREES",
		Country:   "uae",
		QueryText: "how many calories in harees",
	}
	require.NoError(t, repo.Upsert(ctx, repeat))
	assert.Equal(t, first.ID, repeat.ID)
	assert.Equal(t, 2, repeat.QueryCount)
	assert.Equal(t, first.FirstQueried, repeat.FirstQueried)

	records, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "how many calories in harees", records[0].QueryText)
}

func TestMissingMatchRepository_UpsertKeepsAnalysis(t *testing.T) {
	repo, ctx := setupMissingMatchTest(t)

	withAnalysis := &models.MissingMatchRecord{
		DishName:  "Thareed",
		Country:   "Saudi Arabia",
		QueryText: "thareed",
		Analysis: &models.AnalysisResult{
			DishName: "Thareed",
			Intent:   models.IntentNewQuery,
		},
		Ingredients: []models.IngredientEstimate{
			{Name: "Bread, pita, white, enriched", WeightGrams: 80},
		},
	}
	require.NoError(t, repo.Upsert(ctx, withAnalysis))

	// A later repeat without analysis must not erase the stored one
	bare := &models.MissingMatchRecord{
		DishName:  "Thareed",
		Country:   "Saudi Arabia",
		QueryText: "thareed again",
	}
	require.NoError(t, repo.Upsert(ctx, bare))

	records, err := repo.List(ctx, models.ReviewPending, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Analysis)
	assert.Equal(t, "Thareed", records[0].Analysis.DishName)
	require.Len(t, records[0].Ingredients, 1)
}

func TestMissingMatchRepository_UpdateStatusAndDelete(t *testing.T) {
	repo, ctx := setupMissingMatchTest(t)

	rec := &models.MissingMatchRecord{
		DishName:  "Saleeg",
		Country:   "Saudi Arabia",
		QueryText: "saleeg",
	}
	require.NoError(t, repo.Upsert(ctx, rec))

	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, models.ReviewAdded))

	records, err := repo.List(ctx, models.ReviewAdded, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Pending filter no longer sees it
	records, err = repo.List(ctx, models.ReviewPending, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, rec.ID, models.ReviewReviewed), apperrors.ErrNotFound)
}
