package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/assistant"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/loan"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/session"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/transfer"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("malformed request body")

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Status: "error", Message: msg})
}

// statusFor maps domain sentinels to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, session.ErrInvalidLocation),
		errors.Is(err, session.ErrInvalidCURP),
		errors.Is(err, assistant.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotInitialized),
		errors.Is(err, ledger.ErrAlreadyInitialized),
		errors.Is(err, session.ErrStepOutOfOrder),
		errors.Is(err, session.ErrScanInProgress),
		errors.Is(err, assistant.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, transfer.ErrInsufficientFunds),
		errors.Is(err, transfer.ErrInvalidDestination),
		errors.Is(err, transfer.ErrMissingRecipient),
		errors.Is(err, loan.ErrOutOfRange),
		errors.Is(err, loan.ErrInvalidStep),
		errors.Is(err, session.ErrBiometricFailed):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
