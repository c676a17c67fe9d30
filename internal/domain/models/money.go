package models

import "github.com/shopspring/decimal"

const (
	QuantityPlaces = 3
	AmountPlaces   = 2
)

// RoundQuantity rounds a stock quantity to gram/millilitre precision.
func RoundQuantity(v float64) float64 {
	return decimal.NewFromFloat(v).Round(QuantityPlaces).InexactFloat64()
}

// RoundAmount rounds a money amount to two decimal places.
func RoundAmount(v float64) float64 {
	return decimal.NewFromFloat(v).Round(AmountPlaces).InexactFloat64()
}

// Amount returns quantity × unitPrice rounded to money precision.
func Amount(quantity, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(unitPrice)).
		Round(AmountPlaces).
		InexactFloat64()
}

// Balance computes opening + in − out without float drift.
func Balance(opening, in, out float64, places int32) float64 {
	return decimal.NewFromFloat(opening).
		Add(decimal.NewFromFloat(in)).
		Sub(decimal.NewFromFloat(out)).
		Round(places).
		InexactFloat64()
}

// Sum adds values exactly and rounds to the given places.
func Sum(places int32, values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(places).InexactFloat64()
}

// Percent returns part / whole × 100 rounded to two places, or 0 when whole is 0.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}
