package promo

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateHandler(t *testing.T) {
	h := &Handler{Svc: &Service{Q: &stubQueries{code: fixedCode("5")}}}

	rec := httptest.NewRecorder()
	h.Validate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"code":"save5","subtotal":"36.00"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"valid":true`)
	require.Contains(t, rec.Body.String(), `"discount":"5"`)

	rec = httptest.NewRecorder()
	h.Validate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"code":"SAVE5","subtotal":"36.00"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Validate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"code":"OTHER","subtotal":"36.00"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"reason":"not_found"`)

	rec = httptest.NewRecorder()
	h.Validate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"code":"bad code"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetActiveHandler(t *testing.T) {
	q := &stubQueries{code: fixedCode("5")}
	h := &Handler{Svc: &Service{Q: q}}
	r := chi.NewRouter()
	r.Patch("/api/v1/admin/promos/{code}/active", h.SetActive)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/admin/promos/save5/active", strings.NewReader(`{"active":false}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, q.code.Active)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/admin/promos/missing/active", strings.NewReader(`{"active":true}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/admin/promos/save5/active", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
