package inventory

import (
	"sort"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// StageBinding clave de etapa resuelta para un material.
type StageBinding struct {
	StageKey       string
	ShadeSensitive bool
}

// ResolveStageKey exige exactamente una clave de etapa activa entre los mapeos del ítem.
// Si varias filas activas comparten la clave, basta que una sea sensible al color.
func ResolveStageKey(itemID int64, mappings []*entity.StageMapping) (StageBinding, error) {
	keys := make(map[string]bool)
	for _, m := range mappings {
		if m == nil || !m.IsActive || m.ItemID != itemID || m.StageKey == "" {
			continue
		}
		keys[m.StageKey] = keys[m.StageKey] || m.ShadeSensitive
	}
	switch len(keys) {
	case 0:
		return StageBinding{}, domain.Validation("no hay clave de etapa activa para este material").
			With("item_id", itemID)
	case 1:
		for k, sensitive := range keys {
			return StageBinding{StageKey: k, ShadeSensitive: sensitive}, nil
		}
	}
	found := make([]string, 0, len(keys))
	for k := range keys {
		found = append(found, k)
	}
	sort.Strings(found)
	return StageBinding{}, domain.Validation("el material tiene más de una clave de etapa activa; debe haber exactamente una").
		With("item_id", itemID).With("stage_keys", found)
}
