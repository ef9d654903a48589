package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/HodayaSing/ai-pos/internal/common"
	"github.com/HodayaSing/ai-pos/internal/pricing"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

// View is the cart as returned to clients, with derived values.
type View struct {
	*Cart
	ItemCount int            `json:"itemCount"`
	Totals    pricing.Totals `json:"totals"`
}

func viewOf(c *Cart) View {
	return View{Cart: c, ItemCount: c.ItemCount(), Totals: c.Totals().Rounded()}
}

// Routes mounts the cart endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Clear)
	r.Post("/{id}/close", h.Close)
	r.Post("/{id}/items", h.AddItem)
	r.Patch("/{id}/items/{itemId}", h.UpdateItem)
	r.Delete("/{id}/items/{itemId}", h.RemoveItem)
	r.Put("/{id}/tip", h.SetTip)
	r.Put("/{id}/discounts", h.SetDiscounts)
	r.Put("/{id}/note", h.SetNote)
}

// Create creates an empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Create(r.Context())
	h.respond(w, http.StatusCreated, c, err)
}

// Get returns cart contents and computed totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Clear(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, c, err)
}

// Close deletes the cart and answers with its final totals.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Close(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID int64 `json:"productId" validate:"required,gt=0"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.AddProduct(r.Context(), chi.URLParam(r, "id"), payload.ProductID)
	h.respond(w, http.StatusOK, c, err)
}

// UpdateItem sets a line quantity. Zero or negative quantities remove the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Quantity *int `json:"quantity" validate:"required"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), itemID, *payload.Quantity)
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), itemID)
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) SetTip(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind  pricing.TipKind `json:"kind" validate:"required,oneof=percentage amount"`
		Value float64         `json:"value" validate:"gte=0"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.SetTip(r.Context(), chi.URLParam(r, "id"), pricing.Tip{Kind: payload.Kind, Value: payload.Value})
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) SetDiscounts(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Manual     float64 `json:"manual" validate:"gte=0"`
		Coupon     float64 `json:"coupon" validate:"gte=0"`
		CouponCode string  `json:"couponCode" validate:"max=64"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.SetDiscounts(r.Context(), chi.URLParam(r, "id"), payload.Manual, payload.Coupon, payload.CouponCode)
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) SetNote(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Note string `json:"note" validate:"max=500"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.SetNote(r.Context(), chi.URLParam(r, "id"), payload.Note)
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) respond(w http.ResponseWriter, status int, c *Cart, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, status, viewOf(c))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("Cart not found", err))
	case errors.Is(err, ErrProductNotFound):
		common.WriteError(w, common.NotFound("Product not found", err))
	case errors.Is(err, ErrInvalidInput):
		common.WriteError(w, common.BadRequest("", err.Error(), err))
	default:
		common.WriteError(w, err)
	}
}

func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || id <= 0 {
		common.WriteError(w, common.BadRequest("itemId", "Valid item ID is required", err))
		return 0, false
	}
	return id, true
}
