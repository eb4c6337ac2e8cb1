package models

const BasisPoints = 10_000

// SplitFee divides amount into the payee payout and the retained fee.
// The fee is floored so payout+fee always equals amount.
func SplitFee(amount int64, feeBPS int) (payout, fee int64) {
	if amount <= 0 || feeBPS <= 0 {
		return amount, 0
	}
	if feeBPS >= BasisPoints {
		return 0, amount
	}
	// amount*bps can overflow int64 for very large amounts; split into whole
	// and remainder parts so the floor stays exact.
	whole := amount / BasisPoints
	rem := amount % BasisPoints
	fee = whole*int64(feeBPS) + rem*int64(feeBPS)/BasisPoints
	return amount - fee, fee
}
