package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/pkg/shade"
)

var (
	_ repository.StageMappingRepository = (*StageMappingRepo)(nil)
	_ repository.StageCompletionSource  = (*StageCompletionSource)(nil)
)

// StageMappingRepo configuración material → clave de etapa (tabla stage_defaults).
type StageMappingRepo struct {
	q Querier
}

// NewStageMappingRepository construye el adaptador.
func NewStageMappingRepository(q Querier) *StageMappingRepo {
	return &StageMappingRepo{q: q}
}

// Create inserta el mapeo; si (stage_key, item_id) ya existe carga el existente en m y devuelve false.
func (r *StageMappingRepo) Create(ctx context.Context, m *entity.StageMapping) (bool, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO stage_defaults (stage_key, item_id, shade_sensitive, is_active, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stage_key, item_id) DO NOTHING
		RETURNING id`,
		m.StageKey, m.ItemID, m.ShadeSensitive, m.IsActive, m.Note, m.CreatedAt,
	).Scan(&m.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, classify("insert stage default", err)
	}
	err = r.q.QueryRow(ctx, `
		SELECT id, stage_key, item_id, shade_sensitive, is_active, note, created_at
		FROM stage_defaults WHERE stage_key = $1 AND item_id = $2`, m.StageKey, m.ItemID,
	).Scan(&m.ID, &m.StageKey, &m.ItemID, &m.ShadeSensitive, &m.IsActive, &m.Note, &m.CreatedAt)
	if err != nil {
		return false, classify("get stage default", err)
	}
	return false, nil
}

// ListActiveByItem mapeos activos del material.
func (r *StageMappingRepo) ListActiveByItem(ctx context.Context, itemID int64) ([]*entity.StageMapping, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, stage_key, item_id, shade_sensitive, is_active, note, created_at
		FROM stage_defaults WHERE item_id = $1 AND is_active ORDER BY id`, itemID)
	if err != nil {
		return nil, classify("list stage defaults", err)
	}
	var out []*entity.StageMapping
	var m entity.StageMapping
	_, err = pgx.ForEachRow(rows, []any{&m.ID, &m.StageKey, &m.ItemID, &m.ShadeSensitive, &m.IsActive, &m.Note, &m.CreatedAt}, func() error {
		cp := m
		out = append(out, &cp)
		return nil
	})
	if err != nil {
		return nil, classify("scan stage defaults", err)
	}
	return out, nil
}

// StageCompletionSource lectura de las etapas terminadas (tabla stage_completions, alimentada por producción).
type StageCompletionSource struct {
	q Querier
}

// NewStageCompletionSource construye el adaptador de solo lectura.
func NewStageCompletionSource(q Querier) *StageCompletionSource {
	return &StageCompletionSource{q: q}
}

// FindCompleted etapas terminadas con la clave dada y done_date en [from, to] (días, inclusivo), en orden de registro.
// El filtro de shade se aplica tras normalizar la columna; los registros de producción no llegan normalizados.
func (s *StageCompletionSource) FindCompleted(ctx context.Context, stageKey string, from, to time.Time, shadeFilter *string) ([]entity.StageCompletion, error) {
	rows, err := s.q.Query(ctx, `
		SELECT order_id, stage_key, unit_count, shade, done_date
		FROM stage_completions
		WHERE stage_key = $1 AND done_date BETWEEN $2::date AND $3::date
		ORDER BY id`, stageKey, from, to)
	if err != nil {
		return nil, classify("find stage completions", err)
	}
	var out []entity.StageCompletion
	var c entity.StageCompletion
	_, err = pgx.ForEachRow(rows, []any{&c.OrderID, &c.StageKey, &c.UnitCount, &c.Shade, &c.DoneDate}, func() error {
		if shade.Matches(c.Shade, shadeFilter) {
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, classify("scan stage completions", err)
	}
	return out, nil
}
