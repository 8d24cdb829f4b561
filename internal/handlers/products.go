package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/augenstern326/star-exchange/internal/httputil"
	"github.com/augenstern326/star-exchange/internal/ledger"
	"github.com/augenstern326/star-exchange/internal/middleware"
	"github.com/augenstern326/star-exchange/internal/models"
)

type CreateProductRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PriceStars    int    `json:"price_stars"`
	StockQuantity int    `json:"stock_quantity"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceStars  *int    `json:"price_stars"`
	StockDelta  *int    `json:"stock_delta"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), &models.Product{
		ParentID:      parentID,
		Name:          req.Name,
		Description:   req.Description,
		PriceStars:    req.PriceStars,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, product)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := ledger.ProductFilter{
		ParentID:   queryUint(r, "parent_id"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	products, err := h.svc.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid product id")
		return
	}
	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid product id")
		return
	}
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	product, err := h.svc.UpdateProduct(r.Context(), id, ledger.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		PriceStars:  req.PriceStars,
		StockDelta:  req.StockDelta,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid product id")
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
