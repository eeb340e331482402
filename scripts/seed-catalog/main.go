// seed-catalog loads dishes and reference foods from a YAML file into the
// database, batch-embedding their names so vector search can find them.
//
// The catalog is a YAML file:
//
//	dishes:
//	  - name: "Hummus"
//	    name_arabic: "حمص"
//	    country: "Lebanon"
//	    ingredients:
//	      - name: "Chickpeas, cooked"
//	        weight_g: 150
//	        calories: 250
//	reference_foods:
//	  - fdc_id: 171688
//	    description: "Apples, raw, with skin"
//	    calories: 52
//	    carbs: 13.8
//
// Dish totals are computed from the ingredient lists. Connection settings
// come from config.yaml and the environment, same as the engine itself.
//
// Usage: go run ./scripts/seed-catalog <catalog.yaml>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nutriarab/nutriarab-engine/pkg/config"
	"github.com/nutriarab/nutriarab-engine/pkg/database"
	"github.com/nutriarab/nutriarab-engine/pkg/llm"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
	"github.com/nutriarab/nutriarab-engine/pkg/services"
)

// embedBatchSize bounds how many texts go into one embedding request.
const embedBatchSize = 64

// Catalog is the parsed YAML seed file.
type Catalog struct {
	Dishes         []DishEntry          `yaml:"dishes"`
	ReferenceFoods []ReferenceFoodEntry `yaml:"reference_foods"`
}

// DishEntry is one catalog dish to insert.
type DishEntry struct {
	Name        string            `yaml:"name"`
	NameArabic  string            `yaml:"name_arabic"`
	Country     string            `yaml:"country"`
	Ingredients []IngredientEntry `yaml:"ingredients"`
}

// IngredientEntry is one dish ingredient with absolute nutrition values.
type IngredientEntry struct {
	Name        string  `yaml:"name"`
	WeightGrams float64 `yaml:"weight_g"`
	Calories    float64 `yaml:"calories"`
	Carbs       float64 `yaml:"carbs"`
	Protein     float64 `yaml:"protein"`
	Fat         float64 `yaml:"fat"`
}

// ReferenceFoodEntry is one reference food with per-100g values.
type ReferenceFoodEntry struct {
	FdcID       int64   `yaml:"fdc_id"`
	Description string  `yaml:"description"`
	Calories    float64 `yaml:"calories"`
	Carbs       float64 `yaml:"carbs"`
	Protein     float64 `yaml:"protein"`
	Fat         float64 `yaml:"fat"`
	Source      string  `yaml:"source"`
}

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s <catalog.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	catalog, err := loadCatalog(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		os.Exit(1)
	}
	if len(catalog.Dishes) == 0 && len(catalog.ReferenceFoods) == 0 {
		fmt.Fprintln(os.Stderr, "Catalog contains no records")
		os.Exit(1)
	}

	cfg, err := config.Load("seed-catalog")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	embedder, err := llm.NewClient(&llm.Config{
		Endpoint:       cfg.AI.EffectiveEmbeddingBaseURL(),
		EmbeddingModel: cfg.AI.EmbeddingModel,
		APIKey:         cfg.AI.EffectiveEmbeddingAPIKey(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	dishCount, err := seedDishes(ctx, repositories.NewDishRepository(db), embedder, catalog.Dishes)
	if err != nil {
		logger.Fatal("Failed to seed dishes", zap.Error(err))
	}
	foodCount, err := seedReferenceFoods(ctx, repositories.NewReferenceFoodRepository(db), embedder, catalog.ReferenceFoods)
	if err != nil {
		logger.Fatal("Failed to seed reference foods", zap.Error(err))
	}

	logger.Info("Catalog seeded",
		zap.Int("dishes", dishCount),
		zap.Int("reference_foods", foodCount))
}

func loadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &catalog, nil
}

func seedDishes(ctx context.Context, repo repositories.DishRepository, embedder *llm.Client, entries []DishEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	embeddings, err := embedAll(ctx, embedder, names)
	if err != nil {
		return 0, err
	}

	calc := services.NewNutritionCalculator()
	for i, e := range entries {
		ingredients := make([]models.IngredientSpec, 0, len(e.Ingredients))
		for _, ing := range e.Ingredients {
			ingredients = append(ingredients, models.IngredientSpec{
				Name:        ing.Name,
				WeightGrams: ing.WeightGrams,
				Calories:    ing.Calories,
				Carbs:       ing.Carbs,
				Protein:     ing.Protein,
				Fat:         ing.Fat,
			})
		}
		dish := &models.DishRecord{
			Name:        e.Name,
			NameArabic:  e.NameArabic,
			Country:     e.Country,
			Ingredients: ingredients,
			Totals:      calc.Aggregate(ingredients),
			Embedding:   embeddings[i],
		}
		if err := repo.Create(ctx, dish); err != nil {
			return i, fmt.Errorf("failed to create dish %q: %w", e.Name, err)
		}
	}
	return len(entries), nil
}

func seedReferenceFoods(ctx context.Context, repo repositories.ReferenceFoodRepository, embedder *llm.Client, entries []ReferenceFoodEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	descriptions := make([]string, len(entries))
	for i, e := range entries {
		descriptions[i] = e.Description
	}
	embeddings, err := embedAll(ctx, embedder, descriptions)
	if err != nil {
		return 0, err
	}

	for i, e := range entries {
		food := &models.ReferenceFood{
			FdcID:       e.FdcID,
			Description: e.Description,
			Calories:    e.Calories,
			Carbs:       e.Carbs,
			Protein:     e.Protein,
			Fat:         e.Fat,
			Source:      e.Source,
			Embedding:   embeddings[i],
		}
		if err := repo.Create(ctx, food); err != nil {
			return i, fmt.Errorf("failed to create reference food %q: %w", e.Description, err)
		}
	}
	return len(entries), nil
}

// embedAll batches the texts through the embedding endpoint, preserving
// input order.
func embedAll(ctx context.Context, embedder *llm.Client, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch at offset %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", end-start, len(batch))
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}
