package inventory

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = roundMoney(((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / max(StockActual + CantEntrada, 1))
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return RoundMoney(num.Div(decimal.Max(sum, one)))
}
