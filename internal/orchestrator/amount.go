/**
 * @description
 * USD-to-native amount conversion. Kept separate from the pipeline because the
 * arithmetic policy matters: division happens in exact decimal space and is
 * rounded once, to the asset's native precision, so repeated runs over the same
 * inputs always produce the same wire amount.
 */

package orchestrator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrZeroPrice guards the division: a zero or negative price must never reach here.
var ErrZeroPrice = errors.New("price must be positive")

// ComputeNativeAmount converts a USD amount into native units at the given USD
// price, rounded to the asset's precision (9 decimal places for Solana, 18 for
// EVM assets). Deterministic: same inputs, same output.
func ComputeNativeAmount(amountUSD, priceUSD decimal.Decimal, decimals int32) (decimal.Decimal, error) {
	if priceUSD.Sign() <= 0 {
		return decimal.Zero, ErrZeroPrice
	}
	return amountUSD.DivRound(priceUSD, decimals), nil
}
