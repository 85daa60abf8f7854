package dto

import (
	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
)

// --- Requests ---

// MethodQuery selects the costing method; empty means the server default.
type MethodQuery struct {
	Method string `form:"method"`
}

// MovementRequest is one movement of a preview batch.
type MovementRequest struct {
	ID        string `json:"id" binding:"required"`
	Date      string `json:"date"`
	Kind      string `json:"kind"`
	Quantity  Number `json:"quantity"`
	UnitPrice Number `json:"unitPrice"`
	Amount    Number `json:"amount"`
}

// ToRaw converts to the engine's unvalidated movement.
func (r MovementRequest) ToRaw() valuation.RawMovement {
	return valuation.RawMovement{
		ID:        r.ID,
		Date:      r.Date,
		Type:      r.Kind,
		Quantity:  string(r.Quantity),
		UnitPrice: string(r.UnitPrice),
		Amount:    string(r.Amount),
	}
}

// PreviewRequest values an unsaved batch.
type PreviewRequest struct {
	Method    string            `json:"method"`
	Movements []MovementRequest `json:"movements" binding:"dive"`
}

// RawMovements converts every movement of the request.
func (r PreviewRequest) RawMovements() []valuation.RawMovement {
	out := make([]valuation.RawMovement, len(r.Movements))
	for i, m := range r.Movements {
		out[i] = m.ToRaw()
	}
	return out
}

// BatchRequest values several products with one method.
type BatchRequest struct {
	ProductIDs []string `json:"productIds" binding:"required,min=1,max=100,dive,uuid"`
	Method     string   `json:"method"`
}

// --- Responses ---

// RowResponse is one valued movement. Decimals are rendered as strings.
type RowResponse struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Kind         string `json:"kind"`
	Category     string `json:"category"`
	Timestamp    int64  `json:"timestamp"`
	Quantity     string `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	Amount       string `json:"amount"`
	UnitCostUsed string `json:"unitCostUsed"`
	CostOfGoods  string `json:"costOfGoods"`
	Margin       string `json:"margin"`
}

// TotalsResponse sums a valued batch.
type TotalsResponse struct {
	Amount      string `json:"amount"`
	CostOfGoods string `json:"costOfGoods"`
	Margin      string `json:"margin"`
}

// LayerResponse is a remaining FIFO cost layer.
type LayerResponse struct {
	Quantity string `json:"quantity"`
	UnitCost string `json:"unitCost"`
}

// DiagnosticsResponse reports data-quality signals of a run.
type DiagnosticsResponse struct {
	MalformedDates   int    `json:"malformedDates"`
	Shortages        int    `json:"shortages"`
	ShortageQuantity string `json:"shortageQuantity"`
	FinalStock       string `json:"finalStock"`
}

// ValuationResponse is a valued batch in display order.
type ValuationResponse struct {
	Method      string              `json:"method"`
	Rows        []RowResponse       `json:"rows"`
	Totals      TotalsResponse      `json:"totals"`
	Layers      []LayerResponse     `json:"layers"`
	Diagnostics DiagnosticsResponse `json:"diagnostics"`
}

// FromResult converts an engine result to its response DTO.
func FromResult(res *valuation.Result) ValuationResponse {
	rows := make([]RowResponse, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = RowResponse{
			ID:           r.ID,
			Date:         r.Date,
			Kind:         r.Type,
			Category:     r.Kind.String(),
			Timestamp:    r.Timestamp,
			Quantity:     r.Quantity.String(),
			UnitPrice:    r.UnitPrice.String(),
			Amount:       r.Amount.String(),
			UnitCostUsed: r.UnitCostUsed.String(),
			CostOfGoods:  r.CostOfGoods.String(),
			Margin:       r.Margin.String(),
		}
	}

	layers := make([]LayerResponse, len(res.Layers))
	for i, l := range res.Layers {
		layers[i] = LayerResponse{Quantity: l.Quantity.String(), UnitCost: l.UnitCost.String()}
	}

	return ValuationResponse{
		Method: string(res.Method),
		Rows:   rows,
		Totals: TotalsResponse{
			Amount:      res.Totals.Amount.String(),
			CostOfGoods: res.Totals.CostOfGoods.String(),
			Margin:      res.Totals.Margin.String(),
		},
		Layers: layers,
		Diagnostics: DiagnosticsResponse{
			MalformedDates:   res.Diagnostics.MalformedDates,
			Shortages:        res.Diagnostics.Shortages,
			ShortageQuantity: res.Diagnostics.ShortageQuantity.String(),
			FinalStock:       res.Diagnostics.FinalStock.String(),
		},
	}
}

// ScopeValuationResponse is one product of a batch response.
type ScopeValuationResponse struct {
	ProductID string            `json:"productId"`
	Result    ValuationResponse `json:"result"`
}

// FromScopeResults converts batch results, keeping request order.
func FromScopeResults(results []movements.ScopeResult) []ScopeValuationResponse {
	out := make([]ScopeValuationResponse, len(results))
	for i, r := range results {
		out[i] = ScopeValuationResponse{ProductID: r.Scope.ID.String(), Result: FromResult(r.Result)}
	}
	return out
}
