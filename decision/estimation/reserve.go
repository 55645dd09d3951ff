package estimation

import (
	"github.com/shopspring/decimal"
)

// reserveAndOverhead layers management reserve on labor, then overhead on labor + reserve.
// Both rates are validated non-negative, so both amounts are too.
func reserveAndOverhead(laborCost, reserveRate, overheadRate decimal.Decimal) (reserve, overhead decimal.Decimal) {
	reserve = laborCost.Mul(reserveRate)
	overhead = laborCost.Add(reserve).Mul(overheadRate)
	return reserve, overhead
}
