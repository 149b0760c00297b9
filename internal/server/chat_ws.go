package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/assistant"
)

const (
	wsReadLimit   = 4096
	wsIdleTimeout = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// chatFrame is written for every question received on the socket.
type chatFrame struct {
	Type    string             `json:"type"` // "message" or "error"
	Message *assistant.Message `json:"message,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// ChatSocket serves the chat over a websocket. Each inbound {"question": ...}
// gets exactly one frame back. Questions on one socket are answered in order;
// a question from another client while one is pending gets an error frame.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("chat socket closed", zap.Error(err))
			}
			return
		}

		frame := chatFrame{Type: "message"}
		reply, err := h.Chat.Send(r.Context(), req.Question)
		if err != nil {
			frame = chatFrame{Type: "error", Error: err.Error()}
		} else {
			frame.Message = &reply
		}
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug("chat socket write failed", zap.Error(err))
			return
		}
	}
}
