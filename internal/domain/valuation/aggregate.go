package valuation

import (
	"stockval/internal/core/types"
)

// Aggregate sums amount, cost of goods and margin over every row. Entries and inert
// categories add their amount only; their cost and margin are zero by construction.
func Aggregate(rows []Row) Totals {
	t := Totals{Amount: types.Zero(), CostOfGoods: types.Zero(), Margin: types.Zero()}
	for _, r := range rows {
		t.Amount = t.Amount.Add(r.Amount)
		t.CostOfGoods = t.CostOfGoods.Add(r.CostOfGoods)
		t.Margin = t.Margin.Add(r.Margin)
	}
	return t
}
