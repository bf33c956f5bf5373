package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/logging"
)

// ScoreboardSource is the live board of the current quiz.
type ScoreboardSource interface {
	Snapshot() domain.Scoreboard
	Subscribe() (<-chan domain.Scoreboard, func())
}

const writeWait = 10 * time.Second

type WSHandler struct {
	board    ScoreboardSource
	log      *logging.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(board ScoreboardSource, log *logging.Logger) *WSHandler {
	return &WSHandler{
		board: board,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS streams scoreboard updates to an overlay. The overlay may send
// {"type":"refresh"} to get the current snapshot again.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	// the server's read timeout must not apply to a long-lived socket
	_ = conn.SetReadDeadline(time.Time{})

	updates, cancel := h.board.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// one writer per connection; gorilla connections are not safe for concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debugf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "scoreboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "refresh":
			reply = outboundMessage[any]{Type: "scoreboard", Payload: h.board.Snapshot()}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
