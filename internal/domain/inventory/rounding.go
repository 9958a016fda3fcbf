package inventory

import "github.com/shopspring/decimal"

// Precisión fija del libro: dinero a 2 decimales, cantidades a 3.
const (
	MoneyPlaces int32 = 2
	QtyPlaces   int32 = 3
)

// RoundMoney redondea a 2 decimales, mitad hacia arriba (alejándose de cero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundQty redondea a 3 decimales, mitad hacia arriba (alejándose de cero).
func RoundQty(d decimal.Decimal) decimal.Decimal {
	return d.Round(QtyPlaces)
}
