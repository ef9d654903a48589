package pricing

import (
	"net/http"

	"github.com/HodayaSing/ai-pos/internal/common"
	"github.com/HodayaSing/ai-pos/internal/obs"
)

// HandlerConfig wires the pricing HTTP handlers.
type HandlerConfig struct {
	Estimator *Estimator
}

// Handler exposes totals and price suggestions over HTTP.
type Handler struct {
	estimator *Estimator
}

// NewHandler constructs the handler. A nil estimator gets a private random source.
func NewHandler(cfg HandlerConfig) *Handler {
	est := cfg.Estimator
	if est == nil {
		est = NewEstimator(nil)
	}
	return &Handler{estimator: est}
}

type estimateRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Name        string `json:"name" validate:"required_without=Category"`
}

type estimateResponse struct {
	Price float64 `json:"price"`
}

// Estimate handles POST /api/pricing/estimate.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	price := h.estimator.Estimate(req.Category, req.Description, req.Name)
	obs.ObservePriceEstimate()
	common.Success(w, http.StatusOK, estimateResponse{Price: price})
}

type totalsLine struct {
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
}

type totalsRequest struct {
	Lines []totalsLine `json:"lines" validate:"dive"`
	Tip   struct {
		Kind  TipKind `json:"kind" validate:"omitempty,oneof=percentage amount"`
		Value float64 `json:"value" validate:"gte=0"`
	} `json:"tip"`
	Discounts struct {
		Manual float64 `json:"manual" validate:"gte=0"`
		Coupon float64 `json:"coupon" validate:"gte=0"`
	} `json:"discounts"`
}

// Totals handles POST /api/pricing/totals. Values are rounded to cents for display.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	lines := make([]Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	kind := req.Tip.Kind
	if kind == "" {
		kind = TipPercentage
	}
	totals := Compute(lines, Tip{Kind: kind, Value: req.Tip.Value}, Discounts{
		Manual: req.Discounts.Manual,
		Coupon: req.Discounts.Coupon,
	})
	common.Success(w, http.StatusOK, totals.Rounded())
}
