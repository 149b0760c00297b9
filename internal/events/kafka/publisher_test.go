package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/models/events"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish_TransactionRecorded(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher([]string{"localhost:9092"}, "transaction_recorded", nil)
	p.writer = w

	event := events.TransactionRecorded{
		EventID:       "evt-1",
		TransactionID: "tx_01HZX",
		Type:          "debit",
		Amount:        decimal.RequireFromString("250.75"),
		Description:   "SPEI Transfer to Bruce Wayne",
		BalanceAfter:  decimal.RequireFromString("749.25"),
		OccurredAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "tx_01HZX", string(w.msgs[0].Key))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "evt-1", body["eventId"])
	assert.Equal(t, "250.75", body["amount"])
	assert.Equal(t, "749.25", body["balanceAfter"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriteError(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "transaction_recorded", nil)
	p.writer = &recordingWriter{err: errors.New("broker down")}

	err := p.Publish(context.Background(), map[string]string{"k": "v"})
	assert.ErrorContains(t, err, "broker down")
}

func TestPublish_EncodeError(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "t", nil)
	p.writer = &recordingWriter{}

	err := p.Publish(context.Background(), make(chan int))
	assert.Error(t, err)
}
