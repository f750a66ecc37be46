package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/fakestore/internal/cart"
	"github.com/fjod/go_cart/fakestore/internal/checkout"
	"github.com/fjod/go_cart/fakestore/internal/domain"
	"github.com/fjod/go_cart/fakestore/pkg/logger"
)

type ProductFetcher interface {
	FetchOne(ctx context.Context, id int64) (domain.Product, error)
}

type CartSessions interface {
	Get(ctx context.Context, sessionID string) *cart.Store
}

type Checkouter interface {
	Checkout(ctx context.Context, sessionID string, c domain.Cart) (checkout.Summary, error)
}

type CartHandler struct {
	responder
	products     ProductFetcher
	sessions     CartSessions
	checkout     Checkouter
	timeout      time.Duration
	maxBodyBytes int64
}

func NewCartHandler(products ProductFetcher, sessions CartSessions, co Checkouter, log *logger.Logger, timeout time.Duration, maxBodyBytes int64) *CartHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CartHandler{
		responder:    responder{log: log},
		products:     products,
		sessions:     sessions,
		checkout:     co,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  *int  `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type CartLineResponse struct {
	domain.Product
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type CartResponse struct {
	Items          []CartLineResponse `json:"items"`
	TotalAmount    string             `json:"total_amount"`
	TotalItemCount int                `json:"total_item_count"`
}

type AddItemResponse struct {
	Quantity int          `json:"quantity"`
	Cart     CartResponse `json:"cart"`
}

func convertCart(c domain.Cart) CartResponse {
	resp := CartResponse{
		Items:          make([]CartLineResponse, len(c.Lines)),
		TotalAmount:    c.TotalAmount().StringFixed(2),
		TotalItemCount: c.TotalItemCount(),
	}
	for i, l := range c.Lines {
		resp.Items[i] = CartLineResponse{
			Product:   l.Product,
			Quantity:  l.Quantity,
			LineTotal: l.Total().StringFixed(2),
		}
	}
	return resp
}

func (h *CartHandler) sessionCart(r *http.Request) *cart.Store {
	return h.sessions.Get(r.Context(), getSessionID(r.Context()))
}

func (h *CartHandler) storageError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error(r.Context(), "cart write failed", err)
	h.respondError(w, r, http.StatusServiceUnavailable, "storage_unavailable", "cart could not be saved")
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store := h.sessionCart(r)
	h.respondJSON(w, r, http.StatusOK, convertCart(store.Load(r.Context())))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSONBody(w, r, h.maxBodyBytes, &req); err != nil {
		h.respondValidation(w, r, err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.products.FetchOne(ctx, req.ProductID)
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	store := h.sessionCart(r)
	newQty, err := store.AddProduct(ctx, product, quantity)
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusCreated, AddItemResponse{
		Quantity: newQty,
		Cart:     convertCart(store.Snapshot()),
	})
}

func (h *CartHandler) lineMutation(mutate func(s *cart.Store, ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r, "product_id")
		if err != nil {
			h.respondValidation(w, r, err)
			return
		}

		store := h.sessionCart(r)
		if err := mutate(store, r.Context(), id); err != nil {
			h.storageError(w, r, err)
			return
		}

		h.respondJSON(w, r, http.StatusOK, convertCart(store.Snapshot()))
	}
}

func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.lineMutation((*cart.Store).IncrementLine)(w, r)
}

func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.lineMutation((*cart.Store).DecrementLine)(w, r)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.lineMutation((*cart.Store).RemoveLine)(w, r)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store := h.sessionCart(r)
	if err := store.Clear(r.Context()); err != nil {
		h.storageError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, convertCart(store.Snapshot()))
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	c, err := h.sessionCart(r).Read(ctx)
	if err != nil {
		h.log.Error(ctx, "cart read failed", err)
		h.respondError(w, r, http.StatusServiceUnavailable, "storage_unavailable", "cart could not be read")
		return
	}

	summary, err := h.checkout.Checkout(ctx, sessionID, c)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		h.respondError(w, r, http.StatusConflict, "empty_cart", "your cart is empty")
		return
	case err != nil:
		h.respondError(w, r, http.StatusServiceUnavailable, "checkout_unavailable", "checkout could not be started")
		return
	}

	h.respondJSON(w, r, http.StatusAccepted, summary)
}
