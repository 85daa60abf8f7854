package valuation

import (
	"strings"

	"github.com/shopspring/decimal"

	"stockval/internal/core/apperror"
)

// Method selects the costing policy.
type Method string

const (
	MethodFIFO Method = "fifo"
	MethodWAC  Method = "wac"
)

// ParseMethod accepts the method names used by the presentation layer, case-insensitively.
// The average aliases cover the Portuguese/Spanish labels ("custo médio ponderado",
// "precio medio ponderado"); "peps" is the Spanish FIFO acronym.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo", "peps":
		return MethodFIFO, nil
	case "wac", "average", "avg", "cmp", "pmp":
		return MethodWAC, nil
	default:
		return "", apperror.NewUnknownMethod(s)
	}
}

// costing is one pass of a costing policy over the ascending sequence.
// Implementations own their running state; a value is used for exactly one run.
type costing interface {
	entry(r *Row)
	exit(i int, r *Row)
	finish(res *Result)
}

func newCosting(method Method, ascending []Row) costing {
	if method == MethodWAC {
		return &wac{}
	}
	return &fifo{next: nextEntryUnits(ascending)}
}

// unitTracker implements the entry cost-derivation rule shared by both policies:
// unit price, else amount/quantity, else the last positive unit seen in this run.
type unitTracker struct {
	lastKnown decimal.Decimal
}

// derive returns the entry's unit cost and whether it is usable (positive).
func (u *unitTracker) derive(r Row) (decimal.Decimal, bool) {
	unit := statedUnit(r)
	if !unit.IsPositive() {
		unit = u.lastKnown
	}
	if !unit.IsPositive() {
		return decimal.Zero, false
	}
	u.lastKnown = unit
	return unit, true
}
