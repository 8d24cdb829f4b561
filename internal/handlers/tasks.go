package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/augenstern326/star-exchange/internal/httputil"
	"github.com/augenstern326/star-exchange/internal/ledger"
	"github.com/augenstern326/star-exchange/internal/middleware"
	"github.com/augenstern326/star-exchange/internal/models"
)

type CreateTaskRequest struct {
	ChildID          *uint      `json:"child_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	RewardStars      int        `json:"reward_stars"`
	RequiresApproval *bool      `json:"requires_approval"`
	Deadline         *time.Time `json:"deadline"`
}

type ApproveTaskRequest struct {
	Approved bool `json:"approved"`
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	requiresApproval := true
	if req.RequiresApproval != nil {
		requiresApproval = *req.RequiresApproval
	}
	task, err := h.svc.CreateTask(r.Context(), &models.Task{
		ParentID:         parentID,
		ChildID:          req.ChildID,
		Title:            req.Title,
		Description:      req.Description,
		RewardStars:      req.RewardStars,
		RequiresApproval: requiresApproval,
		Deadline:         req.Deadline,
	})
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, task)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := ledger.TaskFilter{
		ParentID: queryUint(r, "parent_id"),
		ChildID:  queryUint(r, "child_id"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.TaskStatus(raw)
		filter.Status = &status
	}
	tasks, err := h.svc.ListTasks(r.Context(), filter)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid task id")
		return
	}
	task, err := h.svc.GetTask(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) StartTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid task id")
		return
	}
	task, err := h.svc.StartTask(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid task id")
		return
	}
	task, err := h.svc.CompleteTask(r.Context(), id)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid task id")
		return
	}
	var req ApproveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	task, err := h.svc.ApproveTask(r.Context(), id, req.Approved)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid task id")
		return
	}
	if err := h.svc.DeleteTask(r.Context(), id); err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
