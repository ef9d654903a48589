package catalog

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/HodayaSing/ai-pos/internal/common"
)

// ImageSaver stores an uploaded image and returns its public URL.
type ImageSaver interface {
	SaveUpload(ctx context.Context, fh *multipart.FileHeader) (string, error)
}

// HandlerConfig wires catalog HTTP handlers.
type HandlerConfig struct {
	Service *Service
	Images  ImageSaver
	// MaxUploadBytes bounds a multipart request body.
	MaxUploadBytes int64
}

// Handler exposes catalog endpoints over HTTP.
type Handler struct {
	svc            *Service
	images         ImageSaver
	maxUploadBytes int64
}

// NewHandler constructs a catalog handler.
func NewHandler(cfg HandlerConfig) *Handler {
	limit := cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	return &Handler{svc: cfg.Service, images: cfg.Images, maxUploadBytes: limit}
}

// Routes mounts the product endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/category/{category}", h.ListByCategory)
	r.Get("/translations/{productKey}", h.Translations)
	r.Get("/key/{productKey}/{language}", h.GetByKey)
	r.Put("/key/{productKey}/{language}", h.UpsertByKey)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/products[?language=].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	products, err := h.svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("language")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, Views(products))
}

func (h *Handler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	products, err := h.svc.ListByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, Views(products))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, p.ToView())
}

func (h *Handler) GetByKey(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	p, err := h.svc.GetByKey(r.Context(), chi.URLParam(r, "productKey"), chi.URLParam(r, "language"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, p.ToView())
}

type translationsResponse struct {
	ProductKey string          `json:"product_key"`
	Locales    map[string]View `json:"locales"`
}

func (h *Handler) Translations(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	key := chi.URLParam(r, "productKey")
	byLang, err := h.svc.Translations(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := translationsResponse{ProductKey: key, Locales: make(map[string]View, len(byLang))}
	for lang, p := range byLang {
		resp.Locales[lang] = p.ToView()
	}
	common.Success(w, http.StatusOK, resp)
}

// Create handles POST /api/products with a JSON or multipart body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in CreateInput
	if isMultipart(r) {
		form, err := h.parseForm(w, r)
		if err != nil {
			h.writeError(w, err)
			return
		}
		in = CreateInput{
			ProductKey:  form.value("product_key"),
			Language:    form.value("language"),
			Name:        form.value("name"),
			Description: form.value("description"),
			Category:    form.value("category"),
			Image:       form.value("image"),
		}
		if raw, ok := form.lookup("price"); ok && strings.TrimSpace(raw) != "" {
			price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				h.writeError(w, common.BadRequest("price", "Price must be a positive number", err))
				return
			}
			in.Price = &price
		}
		if fh := form.file("image"); fh != nil {
			url, err := h.saveImage(r.Context(), fh)
			if err != nil {
				h.writeError(w, err)
				return
			}
			in.Image = url
		}
	} else if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, http.StatusCreated, p.ToView())
}

// Update handles PUT /api/products/{id}. Only provided fields change.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	in, err := h.decodeUpdate(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	p, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, p.ToView())
}

// UpsertByKey handles PUT /api/products/key/{productKey}/{language}.
func (h *Handler) UpsertByKey(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	in, err := h.decodeUpdate(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	p, created, err := h.svc.UpsertLocale(r.Context(), chi.URLParam(r, "productKey"), chi.URLParam(r, "language"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	common.Success(w, status, p.ToView())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, common.Envelope{Success: true, Message: "Product deleted successfully"})
}

func (h *Handler) decodeUpdate(w http.ResponseWriter, r *http.Request) (UpdateInput, error) {
	var in UpdateInput
	if !isMultipart(r) {
		if err := common.DecodeJSON(r, &in); err != nil {
			return UpdateInput{}, err
		}
		return in, nil
	}
	form, err := h.parseForm(w, r)
	if err != nil {
		return UpdateInput{}, err
	}
	for field, dst := range map[string]**string{
		"name":        &in.Name,
		"description": &in.Description,
		"category":    &in.Category,
		"image":       &in.Image,
	} {
		if v, ok := form.lookup(field); ok {
			*dst = &v
		}
	}
	if raw, ok := form.lookup("price"); ok && strings.TrimSpace(raw) != "" {
		price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return UpdateInput{}, common.BadRequest("price", "Price must be a positive number", err)
		}
		in.Price = &price
	}
	if fh := form.file("image"); fh != nil {
		url, err := h.saveImage(r.Context(), fh)
		if err != nil {
			return UpdateInput{}, err
		}
		in.Image = &url
	}
	return in, nil
}

func (h *Handler) saveImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if h.images == nil {
		return "", common.Unavailable("image uploads are not configured", nil)
	}
	return h.images.SaveUpload(ctx, fh)
}

type multipartForm struct {
	*multipart.Form
}

func (f multipartForm) lookup(key string) (string, bool) {
	values, ok := f.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (f multipartForm) value(key string) string {
	v, _ := f.lookup(key)
	return v
}

func (f multipartForm) file(key string) *multipart.FileHeader {
	files := f.File[key]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// formOverhead leaves room for the text fields next to the image part.
const formOverhead = 1 << 20

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (multipartForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return multipartForm{}, common.NewAppError("FILE_TOO_LARGE", fmt.Sprintf("File too large. Maximum size is %dMB.", h.maxUploadBytes>>20), http.StatusRequestEntityTooLarge, err)
		}
		return multipartForm{}, common.BadRequest("", "invalid multipart form", err)
	}
	return multipartForm{r.MultipartForm}, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("Product not found", err))
	case errors.Is(err, ErrDuplicate):
		common.WriteError(w, common.Conflict("A product with this key and language already exists", err))
	default:
		common.WriteError(w, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		common.WriteError(w, common.BadRequest("id", "Valid product ID is required", err))
		return 0, false
	}
	return uint(id), true
}
