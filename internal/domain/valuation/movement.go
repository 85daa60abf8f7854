// Package valuation computes cost of goods and margin for the movement ledger of a
// single product or a single client, under FIFO or weighted-average costing.
//
// Value is a pure function of its inputs: all running state (cost layers, running
// average, lookahead index) lives on the stack of one call, so independent batches
// can be valued concurrently without coordination.
package valuation

import (
	"github.com/shopspring/decimal"

	"stockval/internal/core/apperror"
	"stockval/internal/core/types"
)

// Movement is one line of the stock ledger as admitted to the engine.
type Movement struct {
	// ID is unique within a batch and used for traceability only.
	ID string `json:"id"`

	// Date is kept as stored upstream: YYYY-MM-DD, DD/MM/YYYY or any parseable string.
	Date string `json:"date"`

	// Type is the raw movement kind ("Entrada", "saída", "purchase", ...).
	Type string `json:"type"`

	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`

	// Amount is the stated line total; zero or negative means "absent".
	Amount types.Money `json:"amount"`
}

// RawMovement is a movement whose numeric fields have not been validated yet,
// as read from storage or from an API payload.
type RawMovement struct {
	ID        string
	Date      string
	Type      string
	Quantity  string
	UnitPrice string
	Amount    string
}

// Parse converts the raw numeric fields. Empty fields are treated as absent (zero);
// non-numeric ones are contract violations naming the offending movement.
func (r RawMovement) Parse() (Movement, error) {
	m := Movement{ID: r.ID, Date: r.Date, Type: r.Type}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"quantity", r.Quantity, &m.Quantity},
		{"unitPrice", r.UnitPrice, &m.UnitPrice},
		{"amount", r.Amount, &m.Amount},
	}
	for _, f := range fields {
		v, err := types.ParseDecimal(f.raw)
		if err != nil {
			return Movement{}, apperror.NewInvalidMovement(r.ID, f.name, f.raw, f.name+" is not a number").WithCause(err)
		}
		*f.dst = v
	}

	return m, nil
}

// ParseMovements parses a whole batch, failing on the first invalid record.
func ParseMovements(raws []RawMovement) ([]Movement, error) {
	out := make([]Movement, 0, len(raws))
	for _, r := range raws {
		m, err := r.Parse()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Row is a movement annotated by the engine. It is a copy: the input Movement is never modified.
type Row struct {
	ID   string
	Date string
	Type string

	// Kind is the normalized classification of Type.
	Kind Kind

	// Timestamp is Unix milliseconds of Date at UTC midnight, 0 when Date is unparseable.
	Timestamp int64

	Quantity  types.Quantity
	UnitPrice types.Money

	// Amount is the stated amount, or Quantity*UnitPrice when the stated one is absent.
	Amount types.Money

	UnitCostUsed types.Money
	CostOfGoods  types.Money
	Margin       types.Money

	// position is the index in the caller's batch (stable tie-break).
	position int
}

// CostLayer is stock received at one unit cost and not yet drawn by exits.
type CostLayer struct {
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
}

// Totals are sums over every row of a batch.
type Totals struct {
	Amount      types.Money `json:"amount"`
	CostOfGoods types.Money `json:"costOfGoods"`
	Margin      types.Money `json:"margin"`
}

// Diagnostics surface data-quality issues the engine degraded around.
type Diagnostics struct {
	// MalformedDates counts rows whose date could not be parsed (sorted first).
	MalformedDates int `json:"malformedDates"`

	// Shortages counts FIFO exits that ran out of cost layers.
	Shortages int `json:"shortages"`

	// ShortageQuantity is the exit quantity priced by the shortage fallback.
	ShortageQuantity types.Quantity `json:"shortageQuantity"`

	// FinalStock is the WAC running stock, or the quantity left in FIFO layers.
	// A negative WAC value means exits exceed recorded entries upstream.
	FinalStock types.Quantity `json:"finalStock"`
}

// Result is the valued batch in display order (most recent first).
type Result struct {
	Method      Method
	Rows        []Row
	Totals      Totals
	Layers      []CostLayer
	Diagnostics Diagnostics
}
