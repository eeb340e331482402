package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/database"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
)

// SessionRepository provides data access for chat sessions and their
// conversation history.
type SessionRepository interface {
	Create(ctx context.Context, session *models.SessionContext) error
	Get(ctx context.Context, sessionID uuid.UUID) (*models.SessionContext, error)

	// UpdateContext persists the session's working state (country, last
	// dish and its ingredient list) and bumps last_activity.
	UpdateContext(ctx context.Context, session *models.SessionContext) error

	AppendTurn(ctx context.Context, turn *models.Turn) error

	// CommitTurn persists the working context and the exchange that
	// produced it in one transaction. Either both writes land or neither
	// does.
	CommitTurn(ctx context.Context, session *models.SessionContext, turn *models.Turn) error

	// History returns the most recent turns in chronological order.
	History(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Turn, error)

	// CleanupOlderThan deletes sessions idle longer than the given age and
	// returns how many were removed. History rows cascade.
	CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type sessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *database.DB) SessionRepository {
	return &sessionRepository{db: db}
}

var _ SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) Create(ctx context.Context, session *models.SessionContext) error {
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	now := time.Now()
	session.CreatedAt = now
	session.LastActivity = now

	ingredientsJSON, err := marshalIngredients(session.LastDishIngredients)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO chat_sessions (session_id, country, last_dish, last_dish_ingredients, created_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		session.SessionID, nullIfEmpty(session.Country), nullIfEmpty(session.LastDish),
		ingredientsJSON, session.CreatedAt, session.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) Get(ctx context.Context, sessionID uuid.UUID) (*models.SessionContext, error) {
	query := `
		SELECT session_id, country, last_dish, last_dish_ingredients, created_at, last_activity
		FROM chat_sessions
		WHERE session_id = $1`

	var session models.SessionContext
	var country, lastDish *string
	var ingredientsJSON []byte

	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&session.SessionID, &country, &lastDish, &ingredientsJSON,
		&session.CreatedAt, &session.LastActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if country != nil {
		session.Country = *country
	}
	if lastDish != nil {
		session.LastDish = *lastDish
	}
	if len(ingredientsJSON) > 0 {
		if err := json.Unmarshal(ingredientsJSON, &session.LastDishIngredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session ingredients: %w", err)
		}
	}

	return &session, nil
}

// sessionQuerier is satisfied by both the pool and a transaction, so the
// context and turn writes can share one implementation.
type sessionQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *sessionRepository) UpdateContext(ctx context.Context, session *models.SessionContext) error {
	return r.updateContext(ctx, r.db, session)
}

func (r *sessionRepository) AppendTurn(ctx context.Context, turn *models.Turn) error {
	return r.appendTurn(ctx, r.db, turn)
}

func (r *sessionRepository) CommitTurn(ctx context.Context, session *models.SessionContext, turn *models.Turn) error {
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		if err := r.updateContext(ctx, tx, session); err != nil {
			return err
		}
		return r.appendTurn(ctx, tx, turn)
	})
	if err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

func (r *sessionRepository) updateContext(ctx context.Context, q sessionQuerier, session *models.SessionContext) error {
	ingredientsJSON, err := marshalIngredients(session.LastDishIngredients)
	if err != nil {
		return err
	}

	session.LastActivity = time.Now()

	query := `
		UPDATE chat_sessions
		SET country = $2,
		    last_dish = $3,
		    last_dish_ingredients = $4,
		    last_activity = $5
		WHERE session_id = $1`

	result, err := q.Exec(ctx, query,
		session.SessionID, nullIfEmpty(session.Country), nullIfEmpty(session.LastDish),
		ingredientsJSON, session.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) appendTurn(ctx context.Context, q sessionQuerier, turn *models.Turn) error {
	turn.CreatedAt = time.Now()

	query := `
		INSERT INTO conversation_history (session_id, user_message, bot_response, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := q.QueryRow(ctx, query,
		turn.SessionID, turn.UserMessage, turn.BotResponse, turn.CreatedAt,
	).Scan(&turn.ID)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	return nil
}

func (r *sessionRepository) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Turn, error) {
	// Fetch the newest rows, then return them oldest first.
	query := `
		SELECT id, session_id, user_message, bot_response, created_at
		FROM (
			SELECT id, session_id, user_message, bot_response, created_at
			FROM conversation_history
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var turn models.Turn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.UserMessage, &turn.BotResponse, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return turns, nil
}

func (r *sessionRepository) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM chat_sessions WHERE last_activity < $1`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

func marshalIngredients(ingredients []models.IngredientSpec) ([]byte, error) {
	if ingredients == nil {
		return nil, nil
	}
	data, err := json.Marshal(ingredients)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	return data, nil
}
