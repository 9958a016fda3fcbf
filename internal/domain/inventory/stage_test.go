package inventory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/inventory"
)

func TestResolveStageKey(t *testing.T) {
	t.Run("una clave activa", func(t *testing.T) {
		b, err := inventory.ResolveStageKey(1, []*entity.StageMapping{
			{ItemID: 1, StageKey: "porcelain", IsActive: true},
			{ItemID: 1, StageKey: "porcelain", IsActive: true, ShadeSensitive: true},
			{ItemID: 1, StageKey: "milling", IsActive: false},
		})
		require.NoError(t, err)
		assert.Equal(t, "porcelain", b.StageKey)
		assert.True(t, b.ShadeSensitive)
	})
	t.Run("sin clave", func(t *testing.T) {
		_, err := inventory.ResolveStageKey(1, []*entity.StageMapping{{ItemID: 1, StageKey: "x", IsActive: false}})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
	t.Run("más de una clave", func(t *testing.T) {
		_, err := inventory.ResolveStageKey(1, []*entity.StageMapping{
			{ItemID: 1, StageKey: "b", IsActive: true},
			{ItemID: 1, StageKey: "a", IsActive: true},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, []string{"a", "b"}, domain.FieldsOf(err)["stage_keys"])
	})
}
