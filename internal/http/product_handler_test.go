package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Hkilla-ux/shopsmart/internal/catalog"
	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

func newProductRouter() (chi.Router, *catalog.MemoryRepository) {
	repo := catalog.NewMemoryRepository()
	repo.Put(&domain.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("10.00"), CreatedAt: time.Now()})
	repo.Put(&domain.Product{ID: "p2", Name: "Gadget", Price: decimal.RequireFromString("5.00"), CreatedAt: time.Now()})

	handler := NewProductHandler(catalog.NewService(repo, nil), 5*time.Second)
	r := chi.NewRouter()
	r.Get("/products", handler.GetProducts)
	r.Get("/products/{id}", handler.GetProduct)
	return r, repo
}

func TestProductHandler_GetProducts(t *testing.T) {
	router, _ := newProductRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var products []*domain.Product
	if err := json.NewDecoder(w.Body).Decode(&products); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("expected 2 products, got %d", len(products))
	}
}

func TestProductHandler_GetProduct(t *testing.T) {
	router, _ := newProductRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/p1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var product domain.Product
	if err := json.NewDecoder(w.Body).Decode(&product); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if product.ID != "p1" || product.Name != "Widget" {
		t.Errorf("unexpected product: %+v", product)
	}
}

func TestProductHandler_GetProductNotFound(t *testing.T) {
	router, _ := newProductRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != "not_found" {
		t.Errorf("expected code not_found, got %q", resp.Code)
	}
}
