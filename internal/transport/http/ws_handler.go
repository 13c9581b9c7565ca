package http

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gatemaster/internal/app"
)

// AttemptSource is the part of an attempt the watch server reads.
type AttemptSource interface {
	Snapshot() app.AttemptSnapshot
	Subscribe() (<-chan app.AttemptSnapshot, func())
	Done() <-chan struct{}
}

// WatchHandler streams the snapshots of the attempt currently running in
// this process. The attempt is attached once it exists.
type WatchHandler struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu     sync.RWMutex
	source AttemptSource
}

func NewWatchHandler(log zerolog.Logger) *WatchHandler {
	return &WatchHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "watch").Logger(),
	}
}

// Attach makes source the attempt served to new watchers.
func (h *WatchHandler) Attach(source AttemptSource) {
	h.mu.Lock()
	h.source = source
	h.mu.Unlock()
}

func (h *WatchHandler) current() AttemptSource {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.source
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeAttempt writes the current snapshot as JSON.
func (h *WatchHandler) ServeAttempt(w http.ResponseWriter, r *http.Request) {
	source := h.current()
	if source == nil {
		http.Error(w, "no attempt in progress", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(source.Snapshot()); err != nil {
		h.log.Debug().Err(err).Msg("encode snapshot")
	}
}

// ServeWS upgrades to a websocket and pushes a snapshot message on every
// attempt change, then a final message once the attempt is done.
func (h *WatchHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	source := h.current()
	if source == nil {
		http.Error(w, "no attempt in progress", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := source.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		done := source.Done()
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-done:
				done = nil
				select {
				case send <- outboundMessage[any]{Type: "finished", Payload: source.Snapshot()}:
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
		var msg outboundMessage[any]
		switch inbound.Type {
		case "snapshot":
			msg = outboundMessage[any]{Type: "snapshot", Payload: source.Snapshot()}
		default:
			msg = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
