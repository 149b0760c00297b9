package loan

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/metrics"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
)

const DisbursementDescription = "Loan Disbursement"

var (
	ErrOutOfRange  = errors.New("loan amount outside allowed range")
	ErrInvalidStep = errors.New("loan amount must be a multiple of the slider step")
	ErrInvalidTerm = errors.New("loan term must be at least one month")
)

// Terms are the fixed conditions every loan is offered under.
type Terms struct {
	MinimumIncrement decimal.Decimal // lower slider bound
	Step             decimal.Decimal // slider step
	AnnualRate       decimal.Decimal // 0.25 for 25%
	TermMonths       int
}

func DefaultTerms() Terms {
	return Terms{
		MinimumIncrement: decimal.NewFromInt(500),
		Step:             decimal.NewFromInt(500),
		AnnualRate:       decimal.RequireFromString("0.25"),
		TermMonths:       12,
	}
}

// Offer describes the slider shown to the user.
type Offer struct {
	Min        decimal.Decimal `json:"min"`
	Max        decimal.Decimal `json:"max"`
	Step       decimal.Decimal `json:"step"`
	AnnualRate decimal.Decimal `json:"annualRate"`
	TermMonths int             `json:"termMonths"`
}

type Quote struct {
	Amount         decimal.Decimal `json:"amount"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	TotalRepayment decimal.Decimal `json:"totalRepayment"`
	AnnualRate     decimal.Decimal `json:"annualRate"`
	TermMonths     int             `json:"termMonths"`
}

// MonthlyPayment is amount * (1 + rate) / months rounded to cents. It is a flat
// figure, not an amortization schedule.
func MonthlyPayment(amount, annualRate decimal.Decimal, months int) (decimal.Decimal, error) {
	if months < 1 {
		return decimal.Zero, ErrInvalidTerm
	}
	total := amount.Mul(decimal.NewFromInt(1).Add(annualRate))
	return total.Div(decimal.NewFromInt(int64(months))).Round(2), nil
}

// Service quotes and disburses loans against the user's credit limit.
type Service struct {
	ledger *ledger.Ledger
	terms  Terms
	logger *zap.Logger
}

func NewService(l *ledger.Ledger, terms Terms, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, terms: terms, logger: logger}
}

func (s *Service) Offer() (Offer, error) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		return Offer{}, err
	}
	return Offer{
		Min:        s.terms.MinimumIncrement,
		Max:        snap.User.CreditLimit,
		Step:       s.terms.Step,
		AnnualRate: s.terms.AnnualRate,
		TermMonths: s.terms.TermMonths,
	}, nil
}

func (s *Service) Quote(amount decimal.Decimal) (Quote, error) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		return Quote{}, err
	}
	if err := s.check(amount, snap.User.CreditLimit); err != nil {
		return Quote{}, err
	}
	monthly, err := MonthlyPayment(amount, s.terms.AnnualRate, s.terms.TermMonths)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Amount:         amount,
		MonthlyPayment: monthly,
		TotalRepayment: amount.Mul(decimal.NewFromInt(1).Add(s.terms.AnnualRate)).Round(2),
		AnnualRate:     s.terms.AnnualRate,
		TermMonths:     s.terms.TermMonths,
	}, nil
}

// Confirm credits the loan. The ledger does not look at the credit limit again.
func (s *Service) Confirm(ctx context.Context, amount decimal.Decimal) (models.Transaction, error) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.check(amount, snap.User.CreditLimit); err != nil {
		return models.Transaction{}, err
	}
	tx, err := s.ledger.RecordTransaction(ctx, models.Credit, amount, DisbursementDescription)
	if err != nil {
		return models.Transaction{}, err
	}
	s.logger.Info("loan disbursed", zap.String("transaction_id", tx.ID), zap.String("amount", amount.StringFixed(2)))
	return tx, nil
}

func (s *Service) check(amount, creditLimit decimal.Decimal) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return s.reject("invalid_amount", err)
	}
	if amount.LessThan(s.terms.MinimumIncrement) || amount.GreaterThan(creditLimit) {
		return s.reject("out_of_range", fmt.Errorf("%w: %s not in [%s, %s]", ErrOutOfRange,
			amount.StringFixed(2), s.terms.MinimumIncrement.StringFixed(2), creditLimit.StringFixed(2)))
	}
	if s.terms.Step.IsPositive() && !amount.Sub(s.terms.MinimumIncrement).Mod(s.terms.Step).IsZero() {
		return s.reject("invalid_step", fmt.Errorf("%w: %s", ErrInvalidStep, s.terms.Step.StringFixed(2)))
	}
	return nil
}

func (s *Service) reject(reason string, err error) error {
	metrics.FlowRejections.WithLabelValues("loan", reason).Inc()
	return err
}
