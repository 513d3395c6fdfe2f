package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTotalAmount(t *testing.T) {
	testCases := []struct {
		name     string
		units    string
		price    string
		expected string
	}{
		{"whole units", "5", "100", "500"},
		{"fractional units", "2.5", "3420.50", "8551.25"},
		{"tiny fraction", "0.001", "285.45", "0.28545"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalAmount(dec(tc.units), dec(tc.price))
			assert.True(t, got.Equal(dec(tc.expected)),
				"expected %s, got %s", tc.expected, got)
		})
	}
}

func TestWeightedAverage_SamePrice(t *testing.T) {
	// Buying twice at the same price must leave the average unchanged.
	units, invested, avg := WeightedAverage(dec("5"), dec("500"), dec("3"), dec("300"))

	assert.True(t, units.Equal(dec("8")))
	assert.True(t, invested.Equal(dec("800")))
	assert.True(t, avg.Equal(dec("100")))
}

func TestWeightedAverage_DifferentPrices(t *testing.T) {
	// u1=10 at p1=100, then u2=10 at p2=200 -> avg = 150
	units, invested, avg := WeightedAverage(dec("10"), dec("1000"), dec("10"), dec("2000"))

	assert.True(t, units.Equal(dec("20")))
	assert.True(t, invested.Equal(dec("3000")))
	assert.True(t, avg.Equal(dec("150")))
}

func TestWeightedAverage_RoundsHalfToEven(t *testing.T) {
	// 1/3 does not terminate: the average is kept to 8 places, banker's
	// rounding. 100/3 = 33.333333333... -> 33.33333333
	_, _, avg := WeightedAverage(dec("0"), dec("0"), dec("3"), dec("100"))
	assert.True(t, avg.Equal(dec("33.33333333")), "got %s", avg)

	// Exact half at the 9th place rounds to the even neighbour.
	// 0.000000125 / 1 -> 0.00000012 (2 is even)
	_, _, avg = WeightedAverage(dec("0"), dec("0"), dec("1"), dec("0.000000125"))
	assert.True(t, avg.Equal(dec("0.00000012")), "got %s", avg)
}

func TestWeightedAverage_NoDriftOverManyPurchases(t *testing.T) {
	// Repeatedly buying at one price must never move the average off that
	// price, no matter how many times it is recomputed.
	price := dec("3420.50")
	units := decimal.Zero
	invested := decimal.Zero
	avg := decimal.Zero

	for i := 0; i < 500; i++ {
		buy := dec("0.07")
		amount := TotalAmount(buy, price)
		units, invested, avg = WeightedAverage(units, invested, buy, amount)
	}

	require.True(t, avg.Equal(price), "average drifted to %s", avg)
	assert.True(t, units.Equal(dec("35")))
	assert.True(t, invested.Equal(TotalAmount(dec("35"), price)))
}
