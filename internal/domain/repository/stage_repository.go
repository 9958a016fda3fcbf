package repository

import (
	"context"
	"time"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// StageMappingRepository configuración material → clave de etapa (base del StageKeyResolver).
type StageMappingRepository interface {
	// Create inserta el mapeo; si (stage_key, item) ya existe no hace nada y devuelve false.
	Create(ctx context.Context, m *entity.StageMapping) (bool, error)
	ListActiveByItem(ctx context.Context, itemID int64) ([]*entity.StageMapping, error)
}

// StageCompletionSource consulta de solo lectura sobre las etapas terminadas de producción.
// El orden del resultado es determinista (orden de registro) para que la corrección de la última fila sea reproducible.
// shade nil = sin filtro de color.
type StageCompletionSource interface {
	FindCompleted(ctx context.Context, stageKey string, from, to time.Time, shade *string) ([]entity.StageCompletion, error)
}
