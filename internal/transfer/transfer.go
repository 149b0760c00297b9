package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/metrics"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
)

// CLABELength is the number of digits in a destination account identifier.
const CLABELength = 18

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidDestination = errors.New("invalid CLABE, must be 18 digits")
	ErrMissingRecipient   = errors.New("recipient name is required")
)

type Request struct {
	Recipient string          `json:"recipient"`
	CLABE     string          `json:"clabe"`
	Amount    decimal.Decimal `json:"amount"`
}

// Receipt is what the confirmation screen shows. The tracking key is display-only.
type Receipt struct {
	TrackingKey string             `json:"trackingKey"`
	Recipient   string             `json:"recipient"`
	CLABE       string             `json:"clabe"`
	Transaction models.Transaction `json:"transaction"`
}

// Service validates peer transfers and records them as debits.
type Service struct {
	ledger *ledger.Ledger
	logger *zap.Logger

	mu sync.Mutex // serializes check-then-debit so two sends can't both pass the funds check
}

func NewService(l *ledger.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, logger: logger}
}

// Validate runs the same checks as Send without recording anything.
func (s *Service) Validate(req Request) error {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		return err
	}
	return s.check(req, snap.User.Balance)
}

func (s *Service) Send(ctx context.Context, req Request) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.ledger.Snapshot()
	if err != nil {
		return Receipt{}, err
	}
	if err := s.check(req, snap.User.Balance); err != nil {
		return Receipt{}, err
	}

	recipient := strings.TrimSpace(req.Recipient)
	tx, err := s.ledger.RecordTransaction(ctx, models.Debit, req.Amount, "SPEI Transfer to "+recipient)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		TrackingKey: "GP" + ulid.Make().String(),
		Recipient:   recipient,
		CLABE:       req.CLABE,
		Transaction: tx,
	}
	s.logger.Info("transfer sent",
		zap.String("tracking_key", receipt.TrackingKey),
		zap.String("transaction_id", tx.ID),
		zap.String("amount", tx.Amount.StringFixed(2)),
	)
	return receipt, nil
}

// check applies the rules in the order the transfer form reports them.
func (s *Service) check(req Request, balance decimal.Decimal) error {
	if err := ledger.ValidateAmount(req.Amount); err != nil {
		return s.reject("invalid_amount", err)
	}
	if req.Amount.GreaterThan(balance) {
		return s.reject("insufficient_funds", fmt.Errorf("%w: requested %s, available %s",
			ErrInsufficientFunds, req.Amount.StringFixed(2), balance.StringFixed(2)))
	}
	if !ValidCLABE(req.CLABE) {
		return s.reject("invalid_destination", ErrInvalidDestination)
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return s.reject("missing_recipient", ErrMissingRecipient)
	}
	return nil
}

func (s *Service) reject(reason string, err error) error {
	metrics.FlowRejections.WithLabelValues("transfer", reason).Inc()
	return err
}

// ValidCLABE reports whether id is exactly 18 ASCII digits.
func ValidCLABE(id string) bool {
	if len(id) != CLABELength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
