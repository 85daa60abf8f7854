package handlers

import (
	"github.com/gin-gonic/gin"

	"stockval/internal/core/id"
	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
	"stockval/internal/infrastructure/http/v1/dto"
)

// ValuationHandler serves valuations of stored ledgers and unsaved batches.
type ValuationHandler struct {
	*BaseHandler
	service       *movements.Service
	defaultMethod valuation.Method
}

// NewValuationHandler creates a valuation handler; requests without a method use defaultMethod.
func NewValuationHandler(base *BaseHandler, service *movements.Service, defaultMethod valuation.Method) *ValuationHandler {
	if defaultMethod == "" {
		defaultMethod = valuation.MethodFIFO
	}
	return &ValuationHandler{BaseHandler: base, service: service, defaultMethod: defaultMethod}
}

func (h *ValuationHandler) method(c *gin.Context, raw string) (valuation.Method, bool) {
	if raw == "" {
		return h.defaultMethod, true
	}
	m, err := valuation.ParseMethod(raw)
	if err != nil {
		h.Error(c, err)
		return "", false
	}
	return m, true
}

// Product values every movement of one product.
// GET /api/v1/valuations/products/:id?method=fifo|wac
func (h *ValuationHandler) Product(c *gin.Context) {
	h.valuateScope(c, movements.ProductScope)
}

// Client values every movement billed to one client.
// GET /api/v1/valuations/clients/:id?method=fifo|wac
func (h *ValuationHandler) Client(c *gin.Context) {
	h.valuateScope(c, movements.ClientScope)
}

func (h *ValuationHandler) valuateScope(c *gin.Context, scopeOf func(id.ID) movements.Scope) {
	scopeID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var q dto.MethodQuery
	if !h.BindQuery(c, &q) {
		return
	}
	method, ok := h.method(c, q.Method)
	if !ok {
		return
	}

	res, err := h.service.Valuate(c.Request.Context(), scopeOf(scopeID), method)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromResult(res))
}

// Batch values several products with one method.
// POST /api/v1/valuations/products/batch
func (h *ValuationHandler) Batch(c *gin.Context) {
	var req dto.BatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	method, ok := h.method(c, req.Method)
	if !ok {
		return
	}

	scopes := make([]movements.Scope, len(req.ProductIDs))
	for i, raw := range req.ProductIDs {
		// Already validated as UUIDs by binding.
		scopes[i] = movements.ProductScope(id.MustParse(raw))
	}

	results, err := h.service.ValuateMany(c.Request.Context(), scopes, method)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": dto.FromScopeResults(results)})
}

// Preview values a batch supplied in the request without touching storage.
// POST /api/v1/valuations/preview
func (h *ValuationHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if !h.BindJSON(c, &req) {
		return
	}
	method, ok := h.method(c, req.Method)
	if !ok {
		return
	}

	res, err := h.service.Preview(c.Request.Context(), req.RawMovements(), method)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromResult(res))
}
