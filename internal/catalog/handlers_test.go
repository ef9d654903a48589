package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/catalog"
)

type fakeImages struct {
	saved []string
}

func (f *fakeImages) SaveUpload(_ context.Context, fh *multipart.FileHeader) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	f.saved = append(f.saved, fh.Filename+":"+string(data))
	return "http://localhost:3000/uploads/product-1-2.png", nil
}

type productEnvelope struct {
	Success bool         `json:"success"`
	Data    catalog.View `json:"data"`
	Error   string       `json:"error"`
	Message string       `json:"message"`
}

type listEnvelope struct {
	Success bool           `json:"success"`
	Data    []catalog.View `json:"data"`
}

func newRouter(t *testing.T) (http.Handler, *fakeImages) {
	t.Helper()
	env := newTestEnv(t)
	images := &fakeImages{}
	h := catalog.NewHandler(catalog.HandlerConfig{Service: env.svc, Images: images})
	r := chi.NewRouter()
	r.Route("/api/products", h.Routes)
	return r, images
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProductHandlersJSON(t *testing.T) {
	router, _ := newRouter(t)

	rec := serve(router, jsonRequest(http.MethodPost, "/api/products", `{"name":"Hummus","category":"Starters","price":8.5}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created productEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.Equal(t, 8.5, created.Data.Price)
	require.Equal(t, "en", created.Data.Language)

	rec = serve(router, jsonRequest(http.MethodPost, "/api/products", `{"name":"Hummus"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var failed productEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	require.False(t, failed.Success)
	require.Equal(t, "Name, category, and price are required fields", failed.Error)

	rec = serve(router, jsonRequest(http.MethodPost, "/api/products", `{"name":"Hummus","category":"Starters","price":-4}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Price must be a positive number")

	rec = serve(router, jsonRequest(http.MethodPut, "/api/products/1", `{"description":"Chickpeas and tahini"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var updated productEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Chickpeas and tahini", updated.Data.Description)
	require.Equal(t, "Hummus", updated.Data.Name)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/products?language=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list listEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/products/category/Starters", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/api/products/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted productEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	require.Equal(t, "Product deleted successfully", deleted.Message)
}

func TestProductHandlersErrors(t *testing.T) {
	router, _ := newRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Valid product ID is required")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/products/42", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Product not found")

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/api/products/42", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/products?language=de", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductHandlersMultipart(t *testing.T) {
	router, images := newRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Malabi"))
	require.NoError(t, mw.WriteField("category", "Desserts"))
	require.NoError(t, mw.WriteField("price", "6.49"))
	require.NoError(t, mw.WriteField("product_key", "malabi"))
	part, err := mw.CreateFormFile("image", "malabi.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created productEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Data.Image)
	require.Equal(t, "http://localhost:3000/uploads/product-1-2.png", *created.Data.Image)
	require.Equal(t, []string{"malabi.png:png-bytes"}, images.saved)

	var upd bytes.Buffer
	mw = multipart.NewWriter(&upd)
	require.NoError(t, mw.WriteField("price", "7.25"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPut, "/api/products/1", &upd)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated productEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, 7.25, updated.Data.Price)
	require.Equal(t, "Malabi", updated.Data.Name)
}

func TestProductHandlersTranslations(t *testing.T) {
	router, _ := newRouter(t)

	rec := serve(router, jsonRequest(http.MethodPost, "/api/products", `{"product_key":"sabich","name":"Sabich","category":"Lunch","price":11}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(router, jsonRequest(http.MethodPut, "/api/products/key/sabich/he", `{"name":"סביח"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(router, jsonRequest(http.MethodPut, "/api/products/key/sabich/he", `{"description":"חציל וביצה"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/products/key/sabich/he", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var he productEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &he))
	require.Equal(t, "סביח", he.Data.Name)
	require.Equal(t, 11.0, he.Data.Price)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/products/translations/sabich", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			ProductKey string                  `json:"product_key"`
			Locales    map[string]catalog.View `json:"locales"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "sabich", resp.Data.ProductKey)
	require.Len(t, resp.Data.Locales, 2)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/products/key/sabich/fr", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
