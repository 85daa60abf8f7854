package valuation

import (
	"github.com/shopspring/decimal"

	"stockval/internal/core/types"
)

// statedUnit is the unit cost an entry carries by itself: its unit price, else amount/quantity.
// Zero when neither is usable; carry-forward is not applied here.
func statedUnit(r Row) decimal.Decimal {
	if r.UnitPrice.IsPositive() {
		return r.UnitPrice
	}
	if r.Quantity.IsPositive() && r.Amount.IsPositive() {
		return types.DivOrZero(r.Amount, r.Quantity)
	}
	return decimal.Zero
}

// nextEntryUnits returns, for each position of the ascending sequence, the unit cost of
// the nearest entry at that position or later, or zero if none follows. Entries without
// a stated unit are skipped so they do not hide a priced entry further ahead.
func nextEntryUnits(rows []Row) []decimal.Decimal {
	out := make([]decimal.Decimal, len(rows))
	next := decimal.Zero
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Kind == KindEntry {
			if u := statedUnit(rows[i]); u.IsPositive() {
				next = u
			}
		}
		out[i] = next
	}
	return out
}
