package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/metrics"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
)

// Fixed answers used instead of propagating a backend failure.
const (
	EmptyAnswerMessage = "I'm sorry, I couldn't generate a response. Please try again."
	FailureMessage     = "There was an error processing your request. Please check your connection or API key setup and try again."
)

// ErrUnavailable marks a failed or timed-out completion call. It never leaves Ask.
var ErrUnavailable = errors.New("assistant unavailable")

// contextEntry is the trimmed transaction shape sent to the model.
type contextEntry struct {
	Type        models.TransactionType `json:"type"`
	Amount      json.Number            `json:"amount"`
	Description string                 `json:"description"`
	Date        string                 `json:"date"`
}

type Config struct {
	Temperature float32
	Timeout     time.Duration
}

// Bridge formats transaction history for a text-completion backend. It keeps no state.
type Bridge struct {
	completer interfaces.Completer
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewBridge(completer interfaces.Completer, cfg Config, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		completer: completer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Ask always returns text: the model's answer or one of the fixed apologies.
func (b *Bridge) Ask(ctx context.Context, question string, history []models.Transaction) string {
	req, err := b.buildRequest(question, history)
	if err != nil {
		b.logger.Error("building assistant prompt failed", zap.Error(err))
		metrics.AssistantRequests.WithLabelValues("error").Inc()
		return FailureMessage
	}

	answer, err := b.complete(ctx, req)
	switch {
	case err != nil:
		b.logger.Warn("assistant call failed", zap.Error(err))
		metrics.AssistantRequests.WithLabelValues("error").Inc()
		return FailureMessage
	case strings.TrimSpace(answer) == "":
		metrics.AssistantRequests.WithLabelValues("empty").Inc()
		return EmptyAnswerMessage
	}
	metrics.AssistantRequests.WithLabelValues("ok").Inc()
	return answer
}

func (b *Bridge) complete(ctx context.Context, req interfaces.CompletionRequest) (answer string, err error) {
	if b.completer == nil {
		return "", fmt.Errorf("%w: no completion backend configured", ErrUnavailable)
	}
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		metrics.AssistantLatency.Observe(time.Since(start).Seconds())
		// a misbehaving client library must not take the session down
		if r := recover(); r != nil {
			answer, err = "", fmt.Errorf("%w: panic: %v", ErrUnavailable, r)
		}
	}()

	answer, err = b.completer.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return answer, nil
}

func (b *Bridge) buildRequest(question string, history []models.Transaction) (interfaces.CompletionRequest, error) {
	txContext, err := TransactionContext(history)
	if err != nil {
		return interfaces.CompletionRequest{}, err
	}
	prompt := fmt.Sprintf(`Based on the following JSON transaction data, answer the user's question.

Transactions:
%s

User Question:
%q`, txContext, question)

	return interfaces.CompletionRequest{
		SystemInstruction: SystemInstruction(b.now()),
		Prompt:            prompt,
		Temperature:       b.cfg.Temperature,
	}, nil
}

// TransactionContext serializes history with the date cut to YYYY-MM-DD.
func TransactionContext(history []models.Transaction) (string, error) {
	entries := make([]contextEntry, 0, len(history))
	for _, tx := range history {
		entries = append(entries, contextEntry{
			Type:        tx.Type,
			Amount:      json.Number(tx.Amount.String()),
			Description: tx.Description,
			Date:        tx.Date.UTC().Format(time.DateOnly),
		})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SystemInstruction is the fixed persona, dated to today.
func SystemInstruction(today time.Time) string {
	return "You are 'Aura', a professional and concise financial assistant for GoldPayments, " +
		"a luxury fintech platform. Your tone is professional, helpful, and slightly formal. " +
		"Analyze the user's transaction history to answer their questions. " +
		"Keep your answers brief and to the point. Never mention that you are an AI or a language model. " +
		"All monetary values are in MXN. Today's date is " + today.UTC().Format(time.DateOnly) + "."
}
