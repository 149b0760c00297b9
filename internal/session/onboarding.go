package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
)

// Step is a stage of the onboarding sequence.
type Step int

const (
	StepLocation Step = iota + 1
	StepIdentity
	StepBiometric
	StepComplete
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepLocation:
		return "location"
	case StepIdentity:
		return "identity"
	case StepBiometric:
		return "biometric"
	case StepComplete:
		return "complete"
	case StepDone:
		return "done"
	}
	return "unknown"
}

// CURPLength is the fixed length of a CURP identity string.
const CURPLength = 18

var (
	ErrStepOutOfOrder  = errors.New("onboarding step out of order")
	ErrInvalidLocation = errors.New("invalid location")
	ErrInvalidCURP     = errors.New("CURP must be 18 characters")
	ErrBiometricFailed = errors.New("biometric verification failed")
	ErrScanInProgress  = errors.New("biometric scan already in progress")
)

// BiometricScanner verifies the user's face. Verification is simulated.
type BiometricScanner interface {
	Scan(ctx context.Context) error
}

// DelayScanner succeeds after Delay, or fails if ctx ends first.
type DelayScanner struct {
	Delay time.Duration
}

func (s DelayScanner) Scan(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnboardingConfig holds the values a freshly onboarded ledger starts with.
type OnboardingConfig struct {
	DisplayName  string
	SeedBalance  decimal.Decimal
	CreditLimit  decimal.Decimal
	WelcomeBonus decimal.Decimal
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Onboarding walks location -> identity -> biometric -> complete and then
// creates the ledger. Each step only opens after the previous one.
type Onboarding struct {
	ledger  *ledger.Ledger
	scanner BiometricScanner
	cfg     OnboardingConfig
	logger  *zap.Logger

	mu       sync.Mutex
	step     Step
	scanning bool
	location *Location
	curp     string
}

func NewOnboarding(l *ledger.Ledger, scanner BiometricScanner, cfg OnboardingConfig, logger *zap.Logger) *Onboarding {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Onboarding{
		ledger:  l,
		scanner: scanner,
		cfg:     cfg,
		logger:  logger,
		step:    StepLocation,
	}
	if l.Initialized() {
		o.step = StepDone
	}
	return o
}

func (o *Onboarding) Step() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

// Location returns the verified coordinates, nil before step one passed.
func (o *Onboarding) Location() *Location {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.location == nil {
		return nil
	}
	loc := *o.location
	return &loc
}

// VerifyLocation accepts any valid coordinate pair.
func (o *Onboarding) VerifyLocation(lat, lon float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.expect(StepLocation); err != nil {
		return err
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidLocation, lat, lon)
	}
	o.location = &Location{Latitude: lat, Longitude: lon}
	o.step = StepIdentity
	return nil
}

// SubmitCURP stores the upper-cased identity string.
func (o *Onboarding) SubmitCURP(curp string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.expect(StepIdentity); err != nil {
		return err
	}
	curp = strings.ToUpper(strings.TrimSpace(curp))
	if utf8.RuneCountInString(curp) != CURPLength {
		return ErrInvalidCURP
	}
	o.curp = curp
	o.step = StepBiometric
	return nil
}

// ScanBiometric runs the scanner without holding the lock, so Step stays readable meanwhile.
func (o *Onboarding) ScanBiometric(ctx context.Context) error {
	o.mu.Lock()
	if err := o.expect(StepBiometric); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.scanning {
		o.mu.Unlock()
		return ErrScanInProgress
	}
	o.scanning = true
	o.mu.Unlock()

	err := o.scanner.Scan(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.scanning = false
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBiometricFailed, err)
	}
	o.step = StepComplete
	return nil
}

// Complete creates the ledger with the welcome bonus.
func (o *Onboarding) Complete(ctx context.Context) (ledger.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.expect(StepComplete); err != nil {
		return ledger.Snapshot{}, err
	}
	snap, err := o.ledger.Initialize(ctx,
		ledger.Profile{Name: o.cfg.DisplayName, CURP: o.curp},
		o.cfg.SeedBalance, o.cfg.CreditLimit, o.cfg.WelcomeBonus,
	)
	if errors.Is(err, ledger.ErrAlreadyInitialized) {
		o.step = StepDone
		return ledger.Snapshot{}, err
	}
	if err != nil {
		return ledger.Snapshot{}, err
	}

	o.step = StepDone
	o.logger.Info("onboarding completed", zap.String("name", o.cfg.DisplayName))
	return snap, nil
}

func (o *Onboarding) expect(step Step) error {
	if o.step != step {
		return fmt.Errorf("%w: at %s, want %s", ErrStepOutOfOrder, o.step, step)
	}
	return nil
}
