// Package handlers carries the JSON boundary. Handlers validate input, call
// the ledger service and translate its errors; no business rule lives here.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/augenstern326/star-exchange/configs"
	"github.com/augenstern326/star-exchange/internal/httputil"
	"github.com/augenstern326/star-exchange/internal/ledger"
	"github.com/augenstern326/star-exchange/internal/logger"
	"github.com/augenstern326/star-exchange/internal/middleware"
	"github.com/augenstern326/star-exchange/internal/models"
)

type Handler struct {
	svc *ledger.Service
}

func New(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	ParentID *uint  `json:"parent_id"`
	Nickname string `json:"nickname"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to create account")
		return
	}

	user, err := h.svc.CreateAccount(r.Context(), ledger.CreateAccountInput{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.Role(req.Role),
		ParentID:     req.ParentID,
		Nickname:     req.Nickname,
	})
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}

	user, err := h.svc.GetAccountByUsername(r.Context(), req.Username)
	if err != nil ||
		(req.Role != "" && string(user.Role) != req.Role) ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid username, password or role")
		return
	}

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.Secret))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed, User: user})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	user, err := h.svc.GetAccount(r.Context(), userID)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	children, err := h.svc.ListChildren(r.Context(), userID)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, children)
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// queryUint parses an optional unsigned query parameter, nil when absent.
func queryUint(r *http.Request, key string) *uint {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	id := uint(v)
	return &id
}
