package server

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/assistant"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/loan"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/money"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/session"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/transfer"
)

type Deps struct {
	Ledger     *ledger.Ledger
	Outcome    session.Outcome
	Onboarding *session.Onboarding
	Transfers  *transfer.Service
	Loans      *loan.Service
	Chat       *assistant.Conversation
}

type Handler struct {
	Deps
	logger *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Deps: deps, logger: logger}
}

type sessionResponse struct {
	NeedsOnboarding bool   `json:"needsOnboarding"`
	OnboardingStep  string `json:"onboardingStep"`
	Bootstrap       string `json:"bootstrap"`
	Degraded        bool   `json:"degraded"`
}

type userView struct {
	Name        string          `json:"name"`
	CURP        string          `json:"curp"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
}

type dashboardResponse struct {
	User               userView             `json:"user"`
	Balance            decimal.Decimal      `json:"balance"`
	BalanceDisplay     string               `json:"balanceDisplay"`
	CreditLimitDisplay string               `json:"creditLimitDisplay"`
	Transactions       []models.Transaction `json:"transactions"`
	Degraded           bool                 `json:"degraded"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type curpRequest struct {
	CURP string `json:"curp"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferPreview struct {
	transfer.Request
	AmountDisplay string `json:"amountDisplay"`
}

type transferResponse struct {
	Receipt        transfer.Receipt `json:"receipt"`
	BalanceDisplay string           `json:"balanceDisplay"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatLog struct {
	Messages []assistant.Message `json:"messages"`
	Pending  bool                `json:"pending"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequireLedger answers 409 on ledger routes until onboarding has completed.
func (h *Handler) RequireLedger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Ledger.Initialized() {
			writeError(w, http.StatusConflict, "needs onboarding")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		NeedsOnboarding: !h.Ledger.Initialized(),
		OnboardingStep:  h.Onboarding.Step().String(),
		Bootstrap:       h.Outcome.String(),
		Degraded:        h.Ledger.Degraded(),
	})
}

func (h *Handler) VerifyLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		h.fail(w, session.ErrInvalidLocation)
		return
	}
	if err := h.Onboarding.VerifyLocation(*req.Latitude, *req.Longitude); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"step":     h.Onboarding.Step().String(),
		"location": h.Onboarding.Location(),
	})
}

func (h *Handler) SubmitCURP(w http.ResponseWriter, r *http.Request) {
	var req curpRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Onboarding.SubmitCURP(req.CURP); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"step": h.Onboarding.Step().String()})
}

func (h *Handler) ScanBiometric(w http.ResponseWriter, r *http.Request) {
	if err := h.Onboarding.ScanBiometric(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"step": h.Onboarding.Step().String()})
}

func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Onboarding.Complete(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.dashboard(snap, false))
}

// Dashboard accepts ?masked=true to hide the balance in the display fields.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Ledger.Snapshot()
	if err != nil {
		h.fail(w, err)
		return
	}
	masked, _ := strconv.ParseBool(r.URL.Query().Get("masked"))
	writeJSON(w, http.StatusOK, h.dashboard(snap, masked))
}

func (h *Handler) ValidateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transfer.Request
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Transfers.Validate(req); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transferPreview{Request: req, AmountDisplay: money.Format(req.Amount)})
}

func (h *Handler) SendTransfer(w http.ResponseWriter, r *http.Request) {
	var req transfer.Request
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	receipt, err := h.Transfers.Send(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	snap, err := h.Ledger.Snapshot()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse{
		Receipt:        receipt,
		BalanceDisplay: money.Format(snap.User.Balance),
	})
}

func (h *Handler) LoanOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.Loans.Offer()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *Handler) LoanQuote(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	quote, err := h.Loans.Quote(req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) ConfirmLoan(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	tx, err := h.Loans.Confirm(r.Context(), req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) ChatLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chatLog{Messages: h.Chat.Messages(), Pending: h.Chat.Pending()})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	reply, err := h.Chat.Send(r.Context(), req.Question)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) dashboard(snap ledger.Snapshot, masked bool) dashboardResponse {
	resp := dashboardResponse{
		User: userView{
			Name:        snap.User.Name,
			CURP:        snap.User.CURP,
			CreditLimit: snap.User.CreditLimit,
		},
		Balance:            snap.User.Balance,
		BalanceDisplay:     money.Format(snap.User.Balance),
		CreditLimitDisplay: money.Format(snap.User.CreditLimit),
		Transactions:       snap.Transactions,
		Degraded:           h.Ledger.Degraded(),
	}
	if resp.Transactions == nil {
		resp.Transactions = []models.Transaction{}
	}
	if masked {
		resp.BalanceDisplay = money.Masked()
	}
	return resp
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
