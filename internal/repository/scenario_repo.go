package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"character-quiz/internal/domain"
)

// ScenarioRepository lee el catalogo de escenarios desde un almacenamiento externo.
type ScenarioRepository interface {
	ListAll(ctx context.Context) ([]domain.Scenario, error)
}

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgScenarioRepository lee la tabla scenarios (choices y effects en jsonb).
type PgScenarioRepository struct {
	db rowsQuerier
}

// NewPgScenarioRepository acepta un *pgxpool.Pool o cualquier cosa con Query.
func NewPgScenarioRepository(db rowsQuerier) *PgScenarioRepository {
	return &PgScenarioRepository{db: db}
}

func (r *PgScenarioRepository) ListAll(ctx context.Context) ([]domain.Scenario, error) {
	const query = `
		SELECT id, subject, role, narrative, question, choices, effects
		FROM scenarios
		WHERE active
		ORDER BY position, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []domain.Scenario
	for rows.Next() {
		var (
			s          domain.Scenario
			choicesRaw []byte
			effectsRaw []byte
		)
		if err := rows.Scan(
			&s.ID,
			&s.Subject,
			&s.Role,
			&s.Narrative,
			&s.Question,
			&choicesRaw,
			&effectsRaw,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(choicesRaw, &s.Choices); err != nil {
			return nil, fmt.Errorf("%w: scenario %s choices: %v", domain.ErrDataIntegrity, s.ID, err)
		}
		if err := json.Unmarshal(effectsRaw, &s.Effects); err != nil {
			return nil, fmt.Errorf("%w: scenario %s effects: %v", domain.ErrDataIntegrity, s.ID, err)
		}
		scenarios = append(scenarios, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return scenarios, nil
}
