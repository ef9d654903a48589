package ai

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/common"
)

const notConfiguredMessage = "OpenAI API key is not configured. Please set the AI_API_KEY environment variable."

// Handler exposes the AI service under /api/ai.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the AI endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/generate", h.Generate)
	r.Get("/models", h.Models)
	r.Post("/modify-product", h.ModifyProduct)
	r.Post("/generate-dish-image", h.GenerateDishImage)
	r.Post("/translate", h.Translate)
	r.Post("/recognize-products", h.RecognizeProducts)
	r.Post("/recipe-recommendations", h.RecipeRecommendations)
	r.Post("/search", h.Search)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		common.WriteError(w, common.BadRequest("prompt", "Prompt is required", nil))
		return
	}
	out, err := h.svc.Generate(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, err, "Failed to generate a response")
		return
	}
	common.Success(w, http.StatusOK, out)
}

func (h *Handler) Models(w http.ResponseWriter, _ *http.Request) {
	common.Success(w, http.StatusOK, h.svc.Models())
}

func (h *Handler) ModifyProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product      *ProductDraft `json:"product"`
		Instructions string        `json:"instructions"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Product == nil || strings.TrimSpace(req.Instructions) == "" {
		common.WriteError(w, common.BadRequest("", "Product and instructions are required", nil))
		return
	}
	out, err := h.svc.ModifyProduct(r.Context(), *req.Product, req.Instructions)
	if err != nil {
		writeError(w, err, "Failed to modify product")
		return
	}
	common.Success(w, http.StatusOK, out)
}

func (h *Handler) GenerateDishImage(w http.ResponseWriter, r *http.Request) {
	var req Dish
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		common.WriteError(w, common.BadRequest("name", "Dish name is required", nil))
		return
	}
	url, err := h.svc.GenerateDishImage(r.Context(), req)
	if err != nil {
		writeError(w, err, "Failed to generate dish image")
		return
	}
	common.Success(w, http.StatusOK, map[string]string{"imageUrl": url})
}

// Translate responds with a top-level translatedText field.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text           string `json:"text"`
		TargetLanguage string `json:"targetLanguage"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" || req.TargetLanguage == "" {
		common.WriteError(w, common.BadRequest("", "Text and target language are required", nil))
		return
	}
	if !catalog.ValidLanguage(req.TargetLanguage) {
		common.WriteError(w, common.BadRequest("targetLanguage", `Target language must be either "en" or "he"`, nil))
		return
	}
	out, err := h.svc.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		writeError(w, err, "Failed to translate text")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "translatedText": out})
}

func (h *Handler) RecognizeProducts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		common.WriteError(w, common.BadRequest("image", "Image is required", nil))
		return
	}
	out, err := h.svc.RecognizeProducts(r.Context(), req.Image)
	if err != nil {
		writeError(w, err, "Failed to recognize products")
		return
	}
	common.Success(w, http.StatusOK, out)
}

func (h *Handler) RecipeRecommendations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Products []string `json:"products"`
	}
	if !decode(w, r, &req) {
		return
	}
	products := req.Products[:0]
	for _, p := range req.Products {
		if p = strings.TrimSpace(p); p != "" {
			products = append(products, p)
		}
	}
	if len(products) == 0 {
		common.WriteError(w, common.BadRequest("products", "At least one product is required", nil))
		return
	}
	recipes, err := h.svc.RecipeRecommendations(r.Context(), products)
	if err != nil {
		writeError(w, err, "Failed to get recipe recommendations")
		return
	}
	common.Success(w, http.StatusOK, map[string]any{"recipes": recipes})
}

type searchResponse struct {
	Success  bool           `json:"success"`
	Data     []catalog.View `json:"data"`
	Query    string         `json:"query"`
	Language string         `json:"language"`
}

// Search echoes the query and language next to the matches.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string `json:"query"`
		Language string `json:"language"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		common.WriteError(w, common.BadRequest("query", "Search query is required", nil))
		return
	}
	if req.Language == "" {
		req.Language = catalog.LanguageEnglish
	}
	products, err := h.svc.SearchProducts(r.Context(), req.Query, req.Language)
	if err != nil {
		writeError(w, err, "Failed to search products")
		return
	}
	common.JSON(w, http.StatusOK, searchResponse{
		Success:  true,
		Data:     catalog.Views(products),
		Query:    req.Query,
		Language: req.Language,
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := common.DecodeJSON(r, dst); err != nil {
		common.WriteError(w, err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, ErrNotConfigured):
		common.WriteError(w, common.Unavailable(notConfiguredMessage, err))
	case common.IsAppError(err):
		common.WriteError(w, err)
	default:
		common.WriteError(w, common.Upstream(message, err))
	}
}
