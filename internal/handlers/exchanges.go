package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/augenstern326/star-exchange/internal/httputil"
)

type CreateExchangeRequest struct {
	ChildID   uint `json:"child_id"`
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

func (h *Handler) CreateExchange(w http.ResponseWriter, r *http.Request) {
	var req CreateExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	exchange, err := h.svc.Exchange(r.Context(), req.ChildID, req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, exchange)
}

func (h *Handler) ListExchanges(w http.ResponseWriter, r *http.Request) {
	exchanges, err := h.svc.ListExchanges(r.Context(), queryUint(r, "child_id"))
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exchanges)
}

func (h *Handler) GetExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid exchange id")
		return
	}
	exchange, err := h.svc.GetExchange(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exchange)
}

func (h *Handler) CancelExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid exchange id")
		return
	}
	exchange, err := h.svc.CancelExchange(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exchange)
}

func (h *Handler) CompleteExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid exchange id")
		return
	}
	exchange, err := h.svc.CompleteExchange(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exchange)
}
