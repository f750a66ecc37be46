package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/fakestore/internal/domain"
	"github.com/fjod/go_cart/fakestore/pkg/logger"
)

// ProductCatalog is the part of the catalog client the handlers use.
type ProductCatalog interface {
	FetchAll(ctx context.Context) ([]domain.Product, error)
	FetchOne(ctx context.Context, id int64) (domain.Product, error)
	Create(ctx context.Context, draft domain.ProductDraft) (domain.Product, error)
	Update(ctx context.Context, id int64, draft domain.ProductDraft) (domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

type ProductHandler struct {
	responder
	catalog      ProductCatalog
	timeout      time.Duration
	maxBodyBytes int64
}

func NewProductHandler(catalog ProductCatalog, log *logger.Logger, timeout time.Duration, maxBodyBytes int64) *ProductHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ProductHandler{
		responder:    responder{log: log},
		catalog:      catalog,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
	}
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.FetchAll(ctx)
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, &ProductsResponse{Products: products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := productIDParam(r, "id")
	if err != nil {
		h.respondValidation(w, r, err)
		return
	}

	product, err := h.catalog.FetchOne(ctx, id)
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var draft domain.ProductDraft
	if err := decodeJSONBody(w, r, h.maxBodyBytes, &draft); err != nil {
		h.respondValidation(w, r, err)
		return
	}

	product, err := h.catalog.Create(ctx, draft)
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := productIDParam(r, "id")
	if err != nil {
		h.respondValidation(w, r, err)
		return
	}

	var draft domain.ProductDraft
	if err := decodeJSONBody(w, r, h.maxBodyBytes, &draft); err != nil {
		h.respondValidation(w, r, err)
		return
	}

	product, err := h.catalog.Update(ctx, id, draft)
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, product)
}

// Delete looks the product up first so the response can show what was
// removed, and so unknown ids fail with 404 before any delete is sent.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := productIDParam(r, "id")
	if err != nil {
		h.respondValidation(w, r, err)
		return
	}

	product, err := h.catalog.FetchOne(ctx, id)
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	if err := h.catalog.Delete(ctx, id); err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, product)
}
