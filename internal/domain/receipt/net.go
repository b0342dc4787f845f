package receipt

import "github.com/shopspring/decimal"

// ResolveNet picks the amount that represents an order or line in the ledger.
//
// Priority: a return contributes its reversal amount (never negative, zero when absent);
// a cancelled order with a positive gross keeps the pre-discount amount; everything else
// uses the discounted amount.
func ResolveNet(gross, discounted, ret decimal.Decimal, isReturn, isDeleted bool) decimal.Decimal {
	if isReturn {
		if ret.IsPositive() {
			return ret
		}
		return decimal.Zero
	}
	if isDeleted && gross.IsPositive() {
		return gross
	}
	return discounted
}
