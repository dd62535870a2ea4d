package bridge

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
)

// maxAmount bounds the integer domain of balances and transfer amounts
var maxAmount = new(big.Int).Lsh(big.NewInt(1), 127)

// ComputeFee splits amount into the service fee and the remainder actually
// disbursed: fee = floor(amount * numerator / denominator). The product is
// taken in arbitrary precision so a large amount cannot overflow
// mid-computation; only the inputs and outputs are bounds-checked.
func ComputeFee(amount decimal.Decimal, rate entities.FeeRate) (fee, actual decimal.Decimal, err error) {
	if err := rate.Validate(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%v: %w", err, domainerrors.ErrInvalidRate)
	}

	units, err := integerUnits(amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	product := new(big.Int).Mul(units, big.NewInt(int64(rate.Numerator)))
	feeUnits := product.Quo(product, big.NewInt(int64(rate.Denominator)))

	fee = decimal.NewFromBigInt(feeUnits, 0)
	actual = amount.Sub(fee)
	return fee, actual, nil
}

// integerUnits extracts the amount as a big integer, rejecting values
// outside the supported domain
func integerUnits(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() || !amount.IsInteger() {
		return nil, fmt.Errorf("amount %s is not a non-negative integer: %w",
			amount, domainerrors.ErrArithmeticOverflow)
	}

	units := amount.BigInt()
	if units.Cmp(maxAmount) > 0 {
		return nil, fmt.Errorf("amount %s exceeds the supported range: %w",
			amount, domainerrors.ErrArithmeticOverflow)
	}
	return units, nil
}
