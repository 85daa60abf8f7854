package valuation

import (
	"github.com/shopspring/decimal"

	"stockval/internal/core/types"
)

// fifo draws exits from the oldest cost layer first.
type fifo struct {
	units  unitTracker
	layers []CostLayer
	next   []decimal.Decimal

	// consumed is the quantity drawn from layers (shortage quantity excluded).
	consumed decimal.Decimal

	shortages        int
	shortageQuantity decimal.Decimal
}

func (f *fifo) entry(r *Row) {
	unit, ok := f.units.derive(*r)
	if !ok || !r.Quantity.IsPositive() {
		return
	}
	f.layers = append(f.layers, CostLayer{Quantity: r.Quantity, UnitCost: unit})
}

func (f *fifo) exit(i int, r *Row) {
	remaining := r.Quantity
	cost := decimal.Zero

	for remaining.IsPositive() && len(f.layers) > 0 {
		layer := &f.layers[0]
		used := decimal.Min(layer.Quantity, remaining)
		cost = cost.Add(used.Mul(layer.UnitCost))
		layer.Quantity = layer.Quantity.Sub(used)
		remaining = remaining.Sub(used)
		f.consumed = f.consumed.Add(used)
		if !layer.Quantity.IsPositive() {
			f.layers = f.layers[1:]
		}
	}

	if remaining.IsPositive() {
		cost = cost.Add(remaining.Mul(f.shortageUnit(i)))
		f.shortages++
		f.shortageQuantity = f.shortageQuantity.Add(remaining)
	}

	r.CostOfGoods = cost
	r.UnitCostUsed = types.DivOrZero(cost, r.Quantity)
	r.Margin = r.Amount.Sub(cost)
}

// shortageUnit prices quantity that no layer covers: oldest remaining layer, then the
// last known entry unit, then the next entry ahead in time, then zero.
func (f *fifo) shortageUnit(i int) decimal.Decimal {
	if len(f.layers) > 0 && f.layers[0].UnitCost.IsPositive() {
		return f.layers[0].UnitCost
	}
	if f.units.lastKnown.IsPositive() {
		return f.units.lastKnown
	}
	if i < len(f.next) {
		return f.next[i]
	}
	return decimal.Zero
}

func (f *fifo) finish(res *Result) {
	remaining := types.Zero()
	res.Layers = make([]CostLayer, len(f.layers))
	copy(res.Layers, f.layers)
	for _, l := range f.layers {
		remaining = remaining.Add(l.Quantity)
	}
	res.Diagnostics.FinalStock = remaining
	res.Diagnostics.Shortages = f.shortages
	res.Diagnostics.ShortageQuantity = f.shortageQuantity
}
