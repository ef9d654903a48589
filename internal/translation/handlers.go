package translation

import (
	"errors"
	"net/http"

	"github.com/HodayaSing/ai-pos/internal/ai"
	"github.com/HodayaSing/ai-pos/internal/common"
)

// Handler serves POST /api/ai/generate-product-translations.
type Handler struct {
	Svc *Service
}

type generateRequest struct {
	TargetLanguage string `json:"targetLanguage"`
	Overwrite      bool   `json:"overwrite"`
	Async          bool   `json:"async"`
}

type generateResponse struct {
	Success bool `json:"success"`
	Report
}

// Generate runs a bulk translation inline, or queues it when async is set.
// The report is returned at the top level of the body.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "he"
	}
	if req.Async {
		added, err := h.Svc.Enqueue(r.Context(), req.TargetLanguage, req.Overwrite)
		if err != nil {
			writeError(w, err)
			return
		}
		common.Success(w, http.StatusAccepted, map[string]any{"queued": true, "duplicate": !added})
		return
	}
	report, err := h.Svc.GenerateAll(r.Context(), req.TargetLanguage, req.Overwrite)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, generateResponse{Success: true, Report: report})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ai.ErrNotConfigured) {
		common.WriteError(w, common.Unavailable("OpenAI API key is not configured. Please set the AI_API_KEY environment variable.", err))
		return
	}
	common.WriteError(w, err)
}
