package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
)

const GreetingMessage = "Hello! How can I help you with your finances today?"

var (
	ErrBusy          = errors.New("a question is already being answered")
	ErrEmptyQuestion = errors.New("question is empty")
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	ID     string    `json:"id"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// HistoryFunc supplies the transaction history a question is answered against.
type HistoryFunc func() ([]models.Transaction, error)

// Conversation is the per-session chat log. Only one question may be
// outstanding at a time, which keeps the log strictly question/answer ordered.
type Conversation struct {
	bridge  *Bridge
	history HistoryFunc

	mu       sync.Mutex
	messages []Message
	pending  bool
}

func NewConversation(bridge *Bridge, history HistoryFunc) *Conversation {
	return &Conversation{
		bridge:   bridge,
		history:  history,
		messages: []Message{newMessage(SenderBot, GreetingMessage)},
	}
}

// Send asks question and blocks until the answer is appended. A second Send
// while one is in flight fails with ErrBusy instead of queueing.
func (c *Conversation) Send(ctx context.Context, question string) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, ErrEmptyQuestion
	}
	history, err := c.history()
	if err != nil {
		return Message{}, err
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.pending = true
	c.messages = append(c.messages, newMessage(SenderUser, question))
	c.mu.Unlock()

	answer := c.bridge.Ask(ctx, question, history)

	c.mu.Lock()
	defer c.mu.Unlock()
	reply := newMessage(SenderBot, answer)
	c.messages = append(c.messages, reply)
	c.pending = false
	return reply, nil
}

func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func newMessage(sender Sender, text string) Message {
	return Message{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		SentAt: time.Now().UTC(),
	}
}
