package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"spendview/internal/domain"
)

// InteractionRepository persiste interacciones y lista el historial de una sesion.
type InteractionRepository interface {
	Create(ctx context.Context, interaction domain.Interaction) error
	ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]domain.Interaction, error)
}

// pgxQuerier es el subconjunto de pgxpool.Pool que usa el repositorio (permite tests con fakes).
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgInteractionRepository guarda cada interaccion como documento JSONB con columnas indexadas.
type PgInteractionRepository struct {
	pool pgxQuerier
}

func NewPgInteractionRepository(pool pgxQuerier) *PgInteractionRepository {
	return &PgInteractionRepository{pool: pool}
}

func (r *PgInteractionRepository) Create(ctx context.Context, interaction domain.Interaction) error {
	const query = `
		INSERT INTO interactions (id, session_id, created_at, has_image, has_audio, document)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	document, err := json.Marshal(interaction)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		interaction.ID,
		interaction.SessionID,
		interaction.CreatedAt,
		interaction.HasImage(),
		interaction.HasAudio(),
		document,
	)
	return err
}

func (r *PgInteractionRepository) ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]domain.Interaction, error) {
	const query = `
		SELECT document
		FROM interactions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	interactions := make([]domain.Interaction, 0, limit)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var it domain.Interaction
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshal interaction: %w", err)
		}
		interactions = append(interactions, it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return interactions, nil
}
