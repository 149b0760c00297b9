package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	mock_interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces/mocks"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
)

func staticHistory() ([]models.Transaction, error) { return sampleHistory, nil }

func TestConversation_StartsWithGreeting(t *testing.T) {
	c := NewConversation(NewBridge(nil, Config{}, nil), staticHistory)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderBot, msgs[0].Sender)
	assert.Equal(t, GreetingMessage, msgs[0].Text)
	assert.False(t, c.Pending())
}

func TestConversation_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	completer := mock_interfaces.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("You earned MXN 15,000.00.", nil)

	c := NewConversation(fixedBridge(completer, Config{}), staticHistory)

	reply, err := c.Send(context.Background(), "  income?  ")
	require.NoError(t, err)
	assert.Equal(t, SenderBot, reply.Sender)
	assert.Equal(t, "You earned MXN 15,000.00.", reply.Text)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, SenderUser, msgs[1].Sender)
	assert.Equal(t, "income?", msgs[1].Text)
	assert.Equal(t, reply.ID, msgs[2].ID)
	assert.NotEqual(t, msgs[1].ID, msgs[2].ID)
}

func TestConversation_RejectsBlankQuestion(t *testing.T) {
	c := NewConversation(NewBridge(nil, Config{}, nil), staticHistory)

	_, err := c.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Len(t, c.Messages(), 1)
}

func TestConversation_HistoryErrorIsReturned(t *testing.T) {
	boom := errors.New("needs onboarding")
	c := NewConversation(NewBridge(nil, Config{}, nil), func() ([]models.Transaction, error) {
		return nil, boom
	})

	_, err := c.Send(context.Background(), "balance?")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, c.Messages(), 1)
}

func TestConversation_BusyWhileAnswering(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	entered := make(chan struct{})
	release := make(chan struct{})
	completer := mock_interfaces.NewMockCompleter(ctrl)
	completer.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
			close(entered)
			<-release
			return "done", nil
		})

	c := NewConversation(fixedBridge(completer, Config{}), staticHistory)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first")
		errc <- err
	}()
	<-entered

	assert.True(t, c.Pending())
	_, err := c.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	assert.False(t, c.Pending())

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[1].Text)
	assert.Equal(t, "done", msgs[2].Text)
}
