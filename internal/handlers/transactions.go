package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/augenstern326/star-exchange/internal/httputil"
	"github.com/augenstern326/star-exchange/internal/middleware"
)

type AdjustBalanceRequest struct {
	ChildID     uint   `json:"child_id"`
	Amount      int    `json:"amount"`
	Description string `json:"description"`
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	txs, err := h.svc.ListTransactions(r.Context(), queryUint(r, "child_id"), limit)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txs)
}

func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	user, err := h.svc.AdjustBalance(r.Context(), req.ChildID, req.Amount, req.Description, &parentID)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) ChildStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid child id")
		return
	}
	stats, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) ReconcileChild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid child id")
		return
	}
	report, err := h.svc.Reconcile(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
