package domain

import "github.com/shopspring/decimal"

// AveragePricePrecision is the number of decimal places kept when the
// weighted-average price is recomputed. Rounding is half-to-even so
// repeated recomputation introduces no directional drift.
const AveragePricePrecision = 8

// TotalAmount computes units × pricePerUnit. Both inputs are finite
// decimals, so the product is exact and needs no rounding.
func TotalAmount(units, pricePerUnit decimal.Decimal) decimal.Decimal {
	return units.Mul(pricePerUnit)
}

// WeightedAverage recomputes a holding after a purchase of units at amount
// (= units × price). The average is always recomputed fresh from the new
// totals rather than updated incrementally, so it cannot drift across many
// purchases.
func WeightedAverage(existingUnits, existingInvested, units, amount decimal.Decimal) (newUnits, newInvested, newAverage decimal.Decimal) {
	newUnits = existingUnits.Add(units)
	newInvested = existingInvested.Add(amount)
	newAverage = newInvested.Div(newUnits).RoundBank(AveragePricePrecision)
	return newUnits, newInvested, newAverage
}
