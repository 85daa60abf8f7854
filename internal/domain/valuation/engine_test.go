package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockval/internal/core/apperror"
)

// dec parses a test decimal; "" is zero.
func dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

func mv(id, date, typ, qty, price, amount string) Movement {
	return Movement{ID: id, Date: date, Type: typ, Quantity: dec(qty), UnitPrice: dec(price), Amount: dec(amount)}
}

func rowByID(t *testing.T, res *Result, id string) Row {
	t.Helper()
	for _, r := range res.Rows {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("row %s not found", id)
	return Row{}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"expected %s but got %s", want, got.String()}, msgAndArgs...)...)
}

// twoEntriesOneExit is the shared ledger of the FIFO/WAC scenarios, deliberately unordered.
func twoEntriesOneExit() []Movement {
	return []Movement{
		mv("out", "2024-01-10", "saída", "12", "150", ""),
		mv("in1", "2024-01-01", "entrada", "10", "100", ""),
		mv("in2", "2024-01-05", "entrada", "5", "120", ""),
	}
}

func TestValue_FIFO_NoShortage(t *testing.T) {
	res, err := Value(twoEntriesOneExit(), MethodFIFO)
	require.NoError(t, err)

	out := rowByID(t, res, "out")
	assertDec(t, "1240", out.CostOfGoods)
	assertDec(t, "1800", out.Amount)
	assertDec(t, "560", out.Margin)
	assert.Equal(t, "103.33", out.UnitCostUsed.StringFixed(2))

	require.Len(t, res.Layers, 1)
	assertDec(t, "3", res.Layers[0].Quantity)
	assertDec(t, "120", res.Layers[0].UnitCost)
	assertDec(t, "3", res.Diagnostics.FinalStock)
	assert.Zero(t, res.Diagnostics.Shortages)
}

func TestValue_WAC_SameData(t *testing.T) {
	res, err := Value(twoEntriesOneExit(), MethodWAC)
	require.NoError(t, err)

	out := rowByID(t, res, "out")
	assert.Equal(t, "106.67", out.UnitCostUsed.StringFixed(2))
	assert.Equal(t, "1280.00", out.CostOfGoods.StringFixed(2))
	assert.Equal(t, "520.00", out.Margin.StringFixed(2))
	assertDec(t, "3", res.Diagnostics.FinalStock)
	assert.Empty(t, res.Layers)
}

func TestValue_FIFO_ShortageUsesLookahead(t *testing.T) {
	movements := []Movement{
		mv("out", "2024-01-01", "venda", "5", "0", "1500"),
		mv("in", "2024-02-01", "compra", "5", "200", ""),
	}

	res, err := Value(movements, MethodFIFO)
	require.NoError(t, err)

	out := rowByID(t, res, "out")
	assertDec(t, "1000", out.CostOfGoods)
	assertDec(t, "200", out.UnitCostUsed)
	assertDec(t, "500", out.Margin)
	assert.Equal(t, 1, res.Diagnostics.Shortages)
	assertDec(t, "5", res.Diagnostics.ShortageQuantity)
}

func TestValue_FIFO_ShortagePrefersLastKnownUnit(t *testing.T) {
	movements := []Movement{
		mv("in1", "2024-01-01", "entrada", "2", "50", ""),
		mv("out", "2024-01-02", "saida", "5", "0", ""),
		mv("in2", "2024-01-03", "entrada", "5", "200", ""),
	}

	res, err := Value(movements, MethodFIFO)
	require.NoError(t, err)

	// 2 from the layer at 50, 3 short priced at the last known entry unit (50), not the lookahead (200).
	assertDec(t, "250", rowByID(t, res, "out").CostOfGoods)
}

func TestValue_FIFO_ShortageWithoutAnyEntryIsZero(t *testing.T) {
	res, err := Value([]Movement{mv("out", "2024-01-01", "saida", "4", "10", "")}, MethodFIFO)
	require.NoError(t, err)

	out := rowByID(t, res, "out")
	assertDec(t, "0", out.CostOfGoods)
	assertDec(t, "40", out.Margin)
}

func TestValue_MalformedDateSortsFirst(t *testing.T) {
	movements := []Movement{
		mv("in", "2024-01-01", "entrada", "10", "10", ""),
		mv("bad", "not-a-date", "entrada", "1", "5", ""),
		mv("out", "02/01/2024", "saida", "2", "20", ""),
	}

	res, err := Value(movements, MethodFIFO)
	require.NoError(t, err)

	bad := rowByID(t, res, "bad")
	assert.Zero(t, bad.Timestamp)
	assert.Equal(t, 1, res.Diagnostics.MalformedDates)

	// Display order is most recent first, so the malformed row is last.
	assert.Equal(t, "bad", res.Rows[len(res.Rows)-1].ID)

	// The malformed entry is processed first, so the exit draws its layer at 5 before the one at 10.
	assertDec(t, "15", rowByID(t, res, "out").CostOfGoods)
	assertDec(t, "145", res.Totals.Amount)
}

func TestValue_DerivesAmountAndUnit(t *testing.T) {
	movements := []Movement{
		mv("in1", "2024-01-01", "entrada", "4", "0", "40"), // unit from amount/quantity = 10
		mv("in2", "2024-01-02", "entrada", "6", "0", ""),   // no price: carries 10 forward
		mv("out", "2024-01-03", "saida", "10", "15", ""),   // amount derived: 150
	}

	res, err := Value(movements, MethodFIFO)
	require.NoError(t, err)

	out := rowByID(t, res, "out")
	assertDec(t, "150", out.Amount)
	assertDec(t, "100", out.CostOfGoods)
	assertDec(t, "50", out.Margin)
	assertDec(t, "0", rowByID(t, res, "in2").Amount)
}

func TestValue_NegativePriceIsAbsent(t *testing.T) {
	movements := []Movement{
		mv("in", "2024-01-01", "entrada", "5", "-10", ""),
		mv("out", "2024-01-02", "saida", "2", "-7", "-14"),
	}

	res, err := Value(movements, MethodFIFO)
	require.NoError(t, err)

	assertDec(t, "0", rowByID(t, res, "in").Amount)
	assertDec(t, "0", rowByID(t, res, "out").Amount)
	assertDec(t, "0", res.Totals.Amount)
	assert.Equal(t, 1, res.Diagnostics.Shortages)
}

func TestValue_EntryWithoutAnyUnitAddsNoLayer(t *testing.T) {
	movements := []Movement{
		mv("in", "2024-01-01", "entrada", "5", "0", ""),
		mv("out", "2024-01-02", "saida", "5", "10", ""),
	}

	res, err := Value(movements, MethodFIFO)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Diagnostics.Shortages)
	assertDec(t, "0", rowByID(t, res, "out").CostOfGoods)
}

func TestValue_OtherCategoryIsInert(t *testing.T) {
	movements := []Movement{
		mv("in", "2024-01-01", "entrada", "10", "10", ""),
		mv("adj", "2024-01-02", "ajuste", "7", "3", ""),
		mv("out", "2024-01-03", "saida", "10", "12", ""),
	}

	for _, method := range []Method{MethodFIFO, MethodWAC} {
		t.Run(string(method), func(t *testing.T) {
			res, err := Value(movements, method)
			require.NoError(t, err)

			adj := rowByID(t, res, "adj")
			assert.Equal(t, KindOther, adj.Kind)
			assertDec(t, "0", adj.CostOfGoods)
			assertDec(t, "0", adj.Margin)
			assertDec(t, "100", rowByID(t, res, "out").CostOfGoods)
			assertDec(t, "241", res.Totals.Amount)
			assertDec(t, "0", res.Diagnostics.FinalStock)
		})
	}
}

func TestValue_WAC_NegativeStockIsNotClamped(t *testing.T) {
	movements := []Movement{
		mv("in", "2024-01-01", "entrada", "2", "10", ""),
		mv("out", "2024-01-02", "saida", "5", "20", ""),
	}

	res, err := Value(movements, MethodWAC)
	require.NoError(t, err)

	assertDec(t, "-3", res.Diagnostics.FinalStock)
	assertDec(t, "50", rowByID(t, res, "out").CostOfGoods)
}

func TestValue_WAC_ExitsDoNotChangeAverage(t *testing.T) {
	movements := []Movement{
		mv("in1", "2024-01-01", "entrada", "10", "10", ""),
		mv("out1", "2024-01-02", "saida", "5", "0", ""),
		mv("in2", "2024-01-03", "entrada", "5", "40", ""),
		mv("out2", "2024-01-04", "saida", "10", "0", ""),
	}

	res, err := Value(movements, MethodWAC)
	require.NoError(t, err)

	assertDec(t, "10", rowByID(t, res, "out1").UnitCostUsed)
	// (5*10 + 5*40) / 10 = 25
	assertDec(t, "25", rowByID(t, res, "out2").UnitCostUsed)
	assertDec(t, "250", rowByID(t, res, "out2").CostOfGoods)
}

func TestValue_NegativeQuantityFails(t *testing.T) {
	movements := []Movement{
		mv("ok", "2024-01-01", "entrada", "1", "1", ""),
		mv("bad", "2024-01-02", "saida", "-3", "1", ""),
	}

	_, err := Value(movements, MethodFIFO)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidMovement, appErr.Code)
	assert.Equal(t, "bad", appErr.Details["movement_id"])
	assert.Equal(t, "quantity", appErr.Details["field"])
}

func TestValue_UnknownMethod(t *testing.T) {
	_, err := Value(twoEntriesOneExit(), Method("lifo"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnknownMethod, appErr.Code)
}

func TestValue_EmptyBatch(t *testing.T) {
	res, err := Value(nil, MethodWAC)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assertDec(t, "0", res.Totals.Amount)
}

func TestValue_DoesNotMutateInput(t *testing.T) {
	movements := twoEntriesOneExit()
	snapshot := make([]Movement, len(movements))
	copy(snapshot, movements)

	_, err := Value(movements, MethodFIFO)
	require.NoError(t, err)
	assert.Equal(t, snapshot, movements)
}

func TestValue_Deterministic(t *testing.T) {
	movements := []Movement{
		mv("a", "2024-01-01", "entrada", "3", "7.5", ""),
		mv("b", "2024-01-01", "saida", "2", "9", ""),
		mv("c", "bogus", "entrada", "1", "", "4"),
		mv("d", "2024-01-03", "venda", "5", "10", "0"),
		mv("e", "03/01/2024", "compra", "4", "8.25", ""),
	}

	for _, method := range []Method{MethodFIFO, MethodWAC} {
		first, err := Value(movements, method)
		require.NoError(t, err)
		second, err := Value(movements, method)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestValue_TotalsConsistency(t *testing.T) {
	movements := []Movement{
		mv("a", "2024-01-01", "entrada", "3", "7.5", ""),
		mv("b", "2024-01-02", "saida", "2", "9", ""),
		mv("c", "2024-01-02", "ajuste", "1", "4", ""),
		mv("d", "2024-01-03", "venda", "5", "10", "55"),
		mv("e", "2024-01-04", "compra", "4", "8.25", ""),
		mv("f", "2024-01-05", "saida", "3", "11", ""),
	}

	for _, method := range []Method{MethodFIFO, MethodWAC} {
		t.Run(string(method), func(t *testing.T) {
			res, err := Value(movements, method)
			require.NoError(t, err)

			amount, cost, margin, exitAmount := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
			for _, r := range res.Rows {
				amount = amount.Add(r.Amount)
				cost = cost.Add(r.CostOfGoods)
				margin = margin.Add(r.Margin)
				if r.Kind == KindExit {
					exitAmount = exitAmount.Add(r.Amount)
				}
			}

			assert.True(t, res.Totals.Amount.Equal(amount))
			assert.True(t, res.Totals.CostOfGoods.Equal(cost))
			assert.True(t, res.Totals.Margin.Equal(margin))
			assert.True(t, res.Totals.Margin.Equal(exitAmount.Sub(res.Totals.CostOfGoods)))
		})
	}
}
