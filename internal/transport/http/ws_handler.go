package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"arena-service/internal/achievements"
	"arena-service/internal/app"
	"arena-service/internal/domain"
	"github.com/gorilla/websocket"
)

// ArenaRegistry resolves the per-user arena behind a connection.
type ArenaRegistry interface {
	GetOrCreate(userID string) *app.Arena
}

type WSHandler struct {
	registry ArenaRegistry
	upgrader websocket.Upgrader
}

func NewWSHandler(registry ArenaRegistry) *WSHandler {
	return &WSHandler{
		registry: registry,
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

type startPayload struct {
	Difficulty string `json:"difficulty"`
}

type answerPayload struct {
	AnswerID string `json:"answerId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and wires it into the user's arena.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	arena := h.registry.GetOrCreate(userID)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	arena.SetNotifier(func(def achievements.Definition) {
		select {
		case send <- outboundMessage[any]{Type: "achievementUnlocked", Payload: def}:
		default:
			// slow client, drop the push; the status snapshot still carries it
		}
	})
	defer arena.SetNotifier(nil)

	// Pull the authoritative snapshot up front; stale data is acceptable if
	// the backend is briefly unreachable.
	if err := arena.Progression().FetchStatus(r.Context()); err != nil {
		log.Printf("status fetch failed for %s: %v", userID, err)
	}
	send <- outboundMessage[any]{Type: "status", Payload: arena.Progression().Snapshot()}
	send <- outboundMessage[any]{Type: "state", Payload: arena.State()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg("invalid start payload")
				continue
			}
			difficulty, err := domain.ParseDifficulty(payload.Difficulty)
			if err != nil {
				send <- errMsg(err.Error())
				continue
			}
			if err := arena.Start(r.Context(), difficulty); err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: arena.State()}

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg("invalid answer payload")
				continue
			}
			outcome, err := arena.SubmitAnswer(payload.AnswerID)
			if err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
			send <- outboundMessage[any]{Type: "state", Payload: arena.State()}

		case "next":
			finished, err := arena.Next(r.Context())
			if err != nil && !errors.Is(err, domain.ErrResultNotSaved) {
				send <- errMsg(err.Error())
				continue
			}
			if errors.Is(err, domain.ErrResultNotSaved) {
				send <- errMsg("your points could not be saved")
			}
			send <- outboundMessage[any]{Type: "state", Payload: arena.State()}
			if finished {
				send <- outboundMessage[any]{Type: "status", Payload: arena.Progression().Snapshot()}
			}

		case "reset":
			arena.Reset()
			send <- outboundMessage[any]{Type: "state", Payload: arena.State()}

		case "status":
			if err := arena.Progression().FetchStatus(r.Context()); err != nil {
				send <- errMsg("status unavailable")
			}
			send <- outboundMessage[any]{Type: "status", Payload: arena.Progression().Snapshot()}

		default:
			send <- errMsg("unsupported message type")
		}
	}

	close(send)
	<-writerDone
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
