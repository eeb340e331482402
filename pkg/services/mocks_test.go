package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
)

// mockDishRepository is a function-field mock for DishRepository. Unset
// functions report not-found.
type mockDishRepository struct {
	FindExactFunc     func(ctx context.Context, name, country string) (*models.DishRecord, error)
	FindPrefixFunc    func(ctx context.Context, name, country string) (*models.DishRecord, error)
	SearchVectorFunc  func(ctx context.Context, embedding []float32, country string, threshold float64, limit int) ([]repositories.DishMatch, error)
	GetByIDFunc       func(ctx context.Context, id int64) (*models.DishRecord, error)
	ListCountriesFunc func(ctx context.Context) ([]string, error)

	SearchVectorCalls []searchVectorCall
}

type searchVectorCall struct {
	Country   string
	Threshold float64
}

func (m *mockDishRepository) FindExact(ctx context.Context, name, country string) (*models.DishRecord, error) {
	if m.FindExactFunc != nil {
		return m.FindExactFunc(ctx, name, country)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDishRepository) FindPrefix(ctx context.Context, name, country string) (*models.DishRecord, error) {
	if m.FindPrefixFunc != nil {
		return m.FindPrefixFunc(ctx, name, country)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDishRepository) SearchVector(ctx context.Context, embedding []float32, country string, threshold float64, limit int) ([]repositories.DishMatch, error) {
	m.SearchVectorCalls = append(m.SearchVectorCalls, searchVectorCall{Country: country, Threshold: threshold})
	if m.SearchVectorFunc != nil {
		return m.SearchVectorFunc(ctx, embedding, country, threshold, limit)
	}
	return nil, nil
}

func (m *mockDishRepository) GetByID(ctx context.Context, id int64) (*models.DishRecord, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDishRepository) ListCountries(ctx context.Context) ([]string, error) {
	if m.ListCountriesFunc != nil {
		return m.ListCountriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockDishRepository) Create(ctx context.Context, dish *models.DishRecord) error { return nil }
func (m *mockDishRepository) Update(ctx context.Context, dish *models.DishRecord) error { return nil }
func (m *mockDishRepository) Delete(ctx context.Context, id int64) error                { return nil }

var _ repositories.DishRepository = (*mockDishRepository)(nil)

// mockReferenceFoodRepository is a function-field mock for
// ReferenceFoodRepository.
type mockReferenceFoodRepository struct {
	FindExactFunc    func(ctx context.Context, description string) (*models.ReferenceFood, error)
	FindPrefixFunc   func(ctx context.Context, description string) (*models.ReferenceFood, error)
	SearchVectorFunc func(ctx context.Context, embedding []float32, threshold float64, limit int) ([]repositories.ReferenceFoodMatch, error)
	GetByFdcIDFunc   func(ctx context.Context, fdcID int64) (*models.ReferenceFood, error)
}

func (m *mockReferenceFoodRepository) FindExact(ctx context.Context, description string) (*models.ReferenceFood, error) {
	if m.FindExactFunc != nil {
		return m.FindExactFunc(ctx, description)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockReferenceFoodRepository) FindPrefix(ctx context.Context, description string) (*models.ReferenceFood, error) {
	if m.FindPrefixFunc != nil {
		return m.FindPrefixFunc(ctx, description)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockReferenceFoodRepository) SearchVector(ctx context.Context, embedding []float32, threshold float64, limit int) ([]repositories.ReferenceFoodMatch, error) {
	if m.SearchVectorFunc != nil {
		return m.SearchVectorFunc(ctx, embedding, threshold, limit)
	}
	return nil, nil
}

func (m *mockReferenceFoodRepository) GetByFdcID(ctx context.Context, fdcID int64) (*models.ReferenceFood, error) {
	if m.GetByFdcIDFunc != nil {
		return m.GetByFdcIDFunc(ctx, fdcID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockReferenceFoodRepository) Create(ctx context.Context, food *models.ReferenceFood) error {
	return nil
}

var _ repositories.ReferenceFoodRepository = (*mockReferenceFoodRepository)(nil)

// mockSessionRepository is an in-memory SessionRepository for chat tests.
type mockSessionRepository struct {
	sessions map[uuid.UUID]*models.SessionContext
	turns    map[uuid.UUID][]models.Turn

	UpdateContextErr error
	UpdateCalls      int
	CommitErr        error
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{
		sessions: make(map[uuid.UUID]*models.SessionContext),
		turns:    make(map[uuid.UUID][]models.Turn),
	}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *models.SessionContext) error {
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	now := time.Now()
	session.CreatedAt = now
	session.LastActivity = now
	stored := *session
	m.sessions[session.SessionID] = &stored
	return nil
}

func (m *mockSessionRepository) Get(ctx context.Context, sessionID uuid.UUID) (*models.SessionContext, error) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	copied := *session
	copied.LastDishIngredients = append([]models.IngredientSpec(nil), session.LastDishIngredients...)
	return &copied, nil
}

func (m *mockSessionRepository) UpdateContext(ctx context.Context, session *models.SessionContext) error {
	m.UpdateCalls++
	if m.UpdateContextErr != nil {
		return m.UpdateContextErr
	}
	if _, ok := m.sessions[session.SessionID]; !ok {
		return apperrors.ErrSessionNotFound
	}
	session.LastActivity = time.Now()
	stored := *session
	stored.LastDishIngredients = append([]models.IngredientSpec(nil), session.LastDishIngredients...)
	m.sessions[session.SessionID] = &stored
	return nil
}

func (m *mockSessionRepository) AppendTurn(ctx context.Context, turn *models.Turn) error {
	turn.ID = int64(len(m.turns[turn.SessionID]) + 1)
	turn.CreatedAt = time.Now()
	m.turns[turn.SessionID] = append(m.turns[turn.SessionID], *turn)
	return nil
}

func (m *mockSessionRepository) CommitTurn(ctx context.Context, session *models.SessionContext, turn *models.Turn) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	if err := m.UpdateContext(ctx, session); err != nil {
		return err
	}
	return m.AppendTurn(ctx, turn)
}

func (m *mockSessionRepository) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Turn, error) {
	turns := m.turns[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]models.Turn(nil), turns...), nil
}

func (m *mockSessionRepository) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

var _ repositories.SessionRepository = (*mockSessionRepository)(nil)

// mockMissingMatchRepository records Upsert calls for verification.
type mockMissingMatchRepository struct {
	Upserts []models.MissingMatchRecord
}

func (m *mockMissingMatchRepository) Upsert(ctx context.Context, rec *models.MissingMatchRecord) error {
	rec.ID = int64(len(m.Upserts) + 1)
	rec.QueryCount = 1
	m.Upserts = append(m.Upserts, *rec)
	return nil
}

func (m *mockMissingMatchRepository) GetByNameAndCountry(ctx context.Context, dishName, country string) (*models.MissingMatchRecord, error) {
	return nil, apperrors.ErrNotFound
}

func (m *mockMissingMatchRepository) List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.MissingMatchRecord, error) {
	return nil, nil
}

func (m *mockMissingMatchRepository) UpdateStatus(ctx context.Context, id int64, status models.ReviewStatus) error {
	return nil
}

func (m *mockMissingMatchRepository) Delete(ctx context.Context, id int64) error { return nil }

var _ repositories.MissingMatchRepository = (*mockMissingMatchRepository)(nil)
