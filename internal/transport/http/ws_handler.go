package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quiz-play-service/internal/app"
	"quiz-play-service/internal/domain"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
)

type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
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

type togglePayload struct {
	QuestionID int    `json:"questionId"`
	ChoiceID   string `json:"choiceId"`
}

type attemptPayload struct {
	AttemptID string `json:"attemptId"`
	QuizID    string `json:"quizId"`
}

type statePayload struct {
	State   domain.SessionState  `json:"state"`
	Trigger domain.FinishTrigger `json:"trigger,omitempty"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// engineEvent is one listener notification, forwarded off the engine goroutine.
type engineEvent struct {
	tick      bool
	remaining int
	state     domain.SessionState
}

// socketListener hands engine notifications to the connection. It never blocks
// the engine: a client that stops reading loses ticks and stale updates, while
// the attempt keeps its own time.
type socketListener struct {
	events chan engineEvent
}

func (l *socketListener) StateChanged(_ string, state domain.SessionState) {
	select {
	case l.events <- engineEvent{state: state}:
		return
	default:
	}
	// Drop the oldest queued event so the latest state still gets through.
	select {
	case <-l.events:
	default:
	}
	select {
	case l.events <- engineEvent{state: state}:
	default:
	}
}

func (l *socketListener) Tick(_ string, remainingSeconds int) {
	select {
	case l.events <- engineEvent{tick: true, remaining: remainingSeconds}:
	default:
	}
}

// ServeWS upgrades the request and binds one attempt at quizId to the connection.
// Closing the socket before the attempt is submitted abandons it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], sendBuffer)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	listener := &socketListener{events: make(chan engineEvent, sendBuffer)}
	engine, err := h.service.Start(ctx, quizID, listener)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	log.Printf("attempt %s: started on quiz %s from %s", engine.ID(), quizID, r.RemoteAddr)

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	go func() {
		defer close(pumpDone)
		for {
			select {
			case ev := <-listener.events:
				for _, msg := range eventMessages(engine, ev) {
					emit(msg)
				}
			case <-closeSignals:
				return
			}
		}
	}()

	emit(outboundMessage[any]{Type: "attempt", Payload: attemptPayload{AttemptID: engine.ID(), QuizID: quizID}})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "toggle":
			var payload togglePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.ChoiceID == "" {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid toggle payload"}})
				continue
			}
			engine.Toggle(payload.QuestionID, payload.ChoiceID)
		case "finish":
			engine.Finish()
		case "retry":
			result, err := h.service.Retry(ctx, engine.ID())
			if err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{
					Message:   err.Error(),
					Retryable: errors.Is(err, domain.ErrSubmitFailed),
				}})
				continue
			}
			emit(outboundMessage[any]{Type: "result", Payload: result})
		default:
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	// Cancelling before the deferred close lets an unfinished attempt be abandoned.
	cancel()
	close(closeSignals)
	<-pumpDone
	<-writerDone
}

// eventMessages renders one engine notification for the client.
func eventMessages(engine *app.SessionEngine, ev engineEvent) []outboundMessage[any] {
	if ev.tick {
		return []outboundMessage[any]{{Type: "tick", Payload: tickPayload{RemainingSeconds: ev.remaining}}}
	}

	msgs := []outboundMessage[any]{{Type: "state", Payload: statePayload{State: ev.state, Trigger: engine.Trigger()}}}
	switch ev.state {
	case domain.StateActive:
		if quiz, ok := engine.Quiz(); ok {
			msgs = append(msgs,
				outboundMessage[any]{Type: "quiz", Payload: quiz},
				outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: engine.RemainingSeconds()}},
			)
		}
	case domain.StateCompleted:
		if result, ok := engine.Result(); ok {
			msgs = append(msgs, outboundMessage[any]{Type: "result", Payload: result})
		}
	case domain.StateFailed:
		err := engine.Err()
		if err == nil {
			err = errors.New("attempt failed")
		}
		msgs = append(msgs, outboundMessage[any]{Type: "error", Payload: errorPayload{
			Message:   err.Error(),
			Retryable: errors.Is(err, domain.ErrSubmitFailed),
		}})
	}
	return msgs
}
