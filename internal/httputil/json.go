package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/augenstern326/star-exchange/internal/ledger"
)

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, code int, errCode, msg string) {
	WriteJSON(w, code, ErrorResponse{Code: errCode, Error: msg})
}

// WriteLedgerError maps a ledger error onto its HTTP status and stable code.
func WriteLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, ledger.ErrTaskNotFound),
		errors.Is(err, ledger.ErrProductNotFound),
		errors.Is(err, ledger.ErrExchangeNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, ledger.ErrInvalidState):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, ledger.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrInsufficientBalance):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ledger.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	}
	WriteError(w, status, ledger.Code(err), msg)
}
