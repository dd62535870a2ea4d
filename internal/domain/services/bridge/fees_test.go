package bridge

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
)

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		rate    entities.FeeRate
		wantFee string
	}{
		{
			name:    "three tenths of one hundred",
			amount:  "100",
			rate:    entities.FeeRate{Numerator: 3, Denominator: 10},
			wantFee: "30",
		},
		{
			name:    "floor rounding",
			amount:  "101",
			rate:    entities.FeeRate{Numerator: 1, Denominator: 3},
			wantFee: "33",
		},
		{
			name:    "zero numerator",
			amount:  "1000000",
			rate:    entities.FeeRate{Numerator: 0, Denominator: 1},
			wantFee: "0",
		},
		{
			name:    "full rate takes everything",
			amount:  "77",
			rate:    entities.FeeRate{Numerator: 5, Denominator: 5},
			wantFee: "77",
		},
		{
			name:    "zero amount",
			amount:  "0",
			rate:    entities.FeeRate{Numerator: 3, Denominator: 10},
			wantFee: "0",
		},
		{
			name:    "amount below denominator floors to zero",
			amount:  "2",
			rate:    entities.FeeRate{Numerator: 1, Denominator: 3},
			wantFee: "0",
		},
		{
			// Close to the u128 ceiling; the intermediate product would
			// overflow any fixed 128-bit multiply.
			name:    "huge amount",
			amount:  "170141183460469231731687303715884105727",
			rate:    entities.FeeRate{Numerator: 999, Denominator: 1000},
			wantFee: "169971042277008762499955616412168221621",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			fee, actual, err := ComputeFee(amount, tt.rate)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFee, fee.String())
			assert.True(t, fee.Add(actual).Equal(amount), "fee + actual must equal amount")
			assert.False(t, actual.IsNegative())
		})
	}
}

func TestComputeFeeSplitIsExact(t *testing.T) {
	rates := []entities.FeeRate{
		{Numerator: 1, Denominator: 2},
		{Numerator: 3, Denominator: 10},
		{Numerator: 7, Denominator: 13},
		{Numerator: 0, Denominator: 1},
		{Numerator: 1, Denominator: 1},
	}
	amounts := []string{"1", "7", "99", "1000", "123456789", "18446744073709551615"}

	for _, rate := range rates {
		for _, raw := range amounts {
			amount := decimal.RequireFromString(raw)
			fee, actual, err := ComputeFee(amount, rate)
			require.NoError(t, err)
			assert.True(t, fee.Add(actual).Equal(amount),
				"amount=%s rate=%d/%d", raw, rate.Numerator, rate.Denominator)
			assert.True(t, fee.IsInteger())
			assert.True(t, actual.IsInteger())
		}
	}
}

func TestComputeFeeRejectsInvalidInputs(t *testing.T) {
	t.Run("zero denominator", func(t *testing.T) {
		_, _, err := ComputeFee(decimal.NewFromInt(100), entities.FeeRate{Numerator: 1, Denominator: 0})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidRate)
	})

	t.Run("numerator above denominator", func(t *testing.T) {
		_, _, err := ComputeFee(decimal.NewFromInt(100), entities.FeeRate{Numerator: 11, Denominator: 10})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidRate)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, _, err := ComputeFee(decimal.NewFromInt(-1), entities.FeeRate{Numerator: 1, Denominator: 2})
		assert.ErrorIs(t, err, domainerrors.ErrArithmeticOverflow)
	})

	t.Run("fractional amount", func(t *testing.T) {
		_, _, err := ComputeFee(decimal.RequireFromString("10.5"), entities.FeeRate{Numerator: 1, Denominator: 2})
		assert.ErrorIs(t, err, domainerrors.ErrArithmeticOverflow)
	})

	t.Run("amount beyond the supported range", func(t *testing.T) {
		toobig := decimal.RequireFromString("340282366920938463463374607431768211456")
		_, _, err := ComputeFee(toobig, entities.FeeRate{Numerator: 1, Denominator: 2})
		assert.ErrorIs(t, err, domainerrors.ErrArithmeticOverflow)
	})
}
