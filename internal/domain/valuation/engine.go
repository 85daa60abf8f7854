package valuation

import (
	"stockval/internal/core/apperror"
	"stockval/internal/core/types"
)

// Value values one product's (or one client's) movements with the given method.
//
// The batch may arrive in any order. Rows come back most recent first, annotated with
// unit cost used, cost of goods and margin, together with batch totals. Malformed dates,
// missing prices and unknown categories degrade gracefully; a negative quantity fails
// the whole batch because it would corrupt every later row.
func Value(movements []Movement, method Method) (*Result, error) {
	if method != MethodFIFO && method != MethodWAC {
		return nil, apperror.NewUnknownMethod(string(method))
	}

	rows, malformed, err := normalize(movements)
	if err != nil {
		return nil, err
	}

	SortAscending(rows)

	c := newCosting(method, rows)
	for i := range rows {
		switch rows[i].Kind {
		case KindEntry:
			c.entry(&rows[i])
		case KindExit:
			c.exit(i, &rows[i])
		}
	}

	res := &Result{Method: method, Rows: rows}
	c.finish(res)
	res.Diagnostics.MalformedDates = malformed

	SortDisplay(res.Rows)
	res.Totals = Aggregate(res.Rows)

	return res, nil
}

// normalize builds the annotated copies of the batch and counts unparseable dates.
func normalize(movements []Movement) ([]Row, int, error) {
	rows := make([]Row, len(movements))
	malformed := 0

	for i, m := range movements {
		if m.Quantity.IsNegative() {
			return nil, 0, apperror.NewInvalidMovement(m.ID, "quantity", m.Quantity.String(), "quantity must not be negative")
		}

		ts, ok := ParseTimestamp(m.Date)
		if !ok {
			malformed++
		}

		amount := m.Amount
		if !amount.IsPositive() {
			amount = types.Zero()
			if m.UnitPrice.IsPositive() {
				amount = m.Quantity.Mul(m.UnitPrice)
			}
		}

		rows[i] = Row{
			ID:        m.ID,
			Date:      m.Date,
			Type:      m.Type,
			Kind:      NormalizeKind(m.Type),
			Timestamp: ts,
			Quantity:  m.Quantity,
			UnitPrice: m.UnitPrice,
			Amount:    amount,
			position:  i,
		}
	}

	return rows, malformed, nil
}
