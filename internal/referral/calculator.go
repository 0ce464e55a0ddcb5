package referral

import "github.com/shopspring/decimal"

// Rates holds the L1, L2 and L3 percentages in tier order.
type Rates [MaxDepth]decimal.Decimal

var hundred = decimal.NewFromInt(100)

// PercentOf returns base*rate/100 rounded half away from zero. The product is
// exact, so 9.2% of 375 is 35 and not 34.
func PercentOf(base int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(base).Mul(rate).Div(hundred).Round(0).IntPart()
}

// ValidPercent reports whether rate lies in [0, 100].
func ValidPercent(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}

// TierCommissions prices each link against the job total using the rate of
// its level.
func TierCommissions(links []Link, total int64, rates Rates) []Commission {
	out := make([]Commission, 0, len(links))
	for _, link := range links {
		if link.Level < 1 || link.Level > MaxDepth {
			continue
		}
		amount := PercentOf(total, rates[link.Level-1])
		switch link.Kind {
		case LinkCustomer:
			out = append(out, CustomerReferral{Level: link.Level, CustomerID: link.ID, Amount: amount})
		case LinkEmployee:
			out = append(out, StaffAcquisition{Level: link.Level, EmployeeID: link.ID, Amount: amount})
		}
	}
	return out
}
