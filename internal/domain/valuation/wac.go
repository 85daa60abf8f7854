package valuation

import (
	"github.com/shopspring/decimal"
)

// wac holds all stock at one blended unit cost, recomputed on every priced entry.
// stock is not floored at zero: a negative value reports exits without matching entries.
type wac struct {
	units   unitTracker
	stock   decimal.Decimal
	average decimal.Decimal
}

func (w *wac) entry(r *Row) {
	unit, ok := w.units.derive(*r)
	if !r.Quantity.IsPositive() {
		return
	}
	total := w.stock.Add(r.Quantity)
	if ok && total.IsPositive() {
		w.average = w.stock.Mul(w.average).Add(r.Quantity.Mul(unit)).Div(total)
	}
	w.stock = total
}

func (w *wac) exit(_ int, r *Row) {
	if r.Quantity.IsPositive() {
		r.CostOfGoods = r.Quantity.Mul(w.average)
		r.UnitCostUsed = w.average
		w.stock = w.stock.Sub(r.Quantity)
	}
	r.Margin = r.Amount.Sub(r.CostOfGoods)
}

func (w *wac) finish(res *Result) {
	res.Diagnostics.FinalStock = w.stock
}
