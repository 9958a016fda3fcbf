package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/labstock/internal/domain/inventory"
)

func TestRounding_MitadHaciaArriba(t *testing.T) {
	tests := []struct {
		in    string
		money string
		qty   string
	}{
		{"1.005", "1.01", "1.005"},
		{"1.0045", "1.00", "1.005"},
		{"2.3333333", "2.33", "2.333"},
		{"0.0005", "0.00", "0.001"},
		{"-1.0005", "-1.00", "-1.001"},
		{"12", "12.00", "12.000"},
	}
	for _, tc := range tests {
		d := decimal.RequireFromString(tc.in)
		assert.Equal(t, tc.money, inventory.RoundMoney(d).StringFixed(2), "money %s", tc.in)
		assert.Equal(t, tc.qty, inventory.RoundQty(d).StringFixed(3), "qty %s", tc.in)
	}
}

func TestCostCalculator_DenominadorMinimoUno(t *testing.T) {
	// stock 0 + entrada 0.5 @ 10 => (0.5*10)/max(0.5,1) = 5.00
	got := inventory.CostCalculator(decimal.Zero, decimal.Zero, decimal.RequireFromString("0.5"), decimal.NewFromInt(10))
	assert.Equal(t, "5.00", got.StringFixed(2))

	got = inventory.CostCalculator(decimal.NewFromInt(100), decimal.NewFromInt(10), decimal.NewFromInt(50), decimal.NewFromInt(16))
	assert.Equal(t, "12.00", got.StringFixed(2))
}
