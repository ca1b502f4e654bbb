package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"op-quiz-engine/internal/app"
	"op-quiz-engine/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	closing bool
	active  sync.WaitGroup
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Close disconnects every live session and waits for their handlers to return. Later
// upgrades are closed immediately.
func (h *WSHandler) Close() {
	h.mu.Lock()
	h.closing = true
	for conn := range h.conns {
		conn.Close()
	}
	h.mu.Unlock()
	h.active.Wait()
}

func (h *WSHandler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.conns[conn] = struct{}{}
	h.active.Add(1)
	return true
}

func (h *WSHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.active.Done()
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
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one quiz session over the connection. Query
// parameters: quiz (slug, optional), preview (bool) and clientId (namespaces saved progress).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	slug := query.Get("quiz")
	preview, _ := strconv.ParseBool(query.Get("preview"))
	clientID := query.Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := h.logger.With(zap.String("client_id", clientID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	if !h.track(conn) {
		return
	}
	defer h.untrack(conn)

	engine := h.service.NewEngine(slug, preview, clientID)
	defer engine.Close()

	views, cancel := engine.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	viewsDone := make(chan struct{})

	// Single writer: gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	// Views include timer-driven auto-advance, so they are forwarded independently of reads.
	go func() {
		defer close(viewsDone)
		for {
			select {
			case view, ok := <-views:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "view", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	if _, err := engine.Load(r.Context()); err != nil {
		logger.Warn("quiz load failed", zap.String("slug", slug), zap.Error(err))
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "action":
			var action app.Action
			if err := json.Unmarshal(inbound.Payload, &action); err != nil {
				push(errorMessage("bad_request", "invalid action payload"))
				continue
			}
			if _, err := engine.Dispatch(r.Context(), action); err != nil {
				logger.Debug("action rejected", zap.String("action", string(action.Kind)), zap.Error(err))
				push(errorMessage(errorCode(err), err.Error()))
			}
		default:
			push(errorMessage("bad_request", "unsupported message type"))
		}
	}

	close(closeSignals)
	<-viewsDone
	close(send)
	<-writerDone
}

func errorMessage(code, message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: message}}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrSequenceLocked):
		return "sequence_locked"
	case errors.Is(err, domain.ErrSequenceNotFound):
		return "sequence_not_found"
	case errors.Is(err, domain.ErrAnswerNotFound):
		return "answer_not_found"
	case errors.Is(err, domain.ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, domain.ErrNoProgress):
		return "no_progress"
	default:
		return "internal"
	}
}
