package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-orchestrator/internal/app"
	"trivia-orchestrator/internal/domain"
)

type WSHandler struct {
	service  *app.Service
	auth     Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, auth Authenticator) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    auth,
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

// decodeCommand maps an inbound envelope to the command union. Auto-confirm
// is scheduler-internal and deliberately not decodable from clients.
func decodeCommand(typ string, payload json.RawMessage) (domain.Command, error) {
	unmarshal := func(dest any) error {
		if len(payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, dest); err != nil {
			return domain.ErrInvalidPayload(err.Error())
		}
		return nil
	}

	switch typ {
	case "joinSession":
		return domain.JoinSession{}, nil
	case "reorderParticipants":
		var c domain.ReorderParticipants
		return c, unmarshal(&c)
	case "startRound":
		var c domain.StartRound
		return c, unmarshal(&c)
	case "checkRoundReadiness":
		var c domain.CheckRoundReadiness
		return c, unmarshal(&c)
	case "selectAnswer":
		var c domain.SelectAnswer
		return c, unmarshal(&c)
	case "confirmAnswer":
		var c domain.ConfirmAnswer
		return c, unmarshal(&c)
	case "submitSimultaneousAnswer":
		var c domain.SubmitSimultaneousAnswer
		return c, unmarshal(&c)
	case "skipQuestion":
		var c domain.SkipQuestion
		return c, unmarshal(&c)
	case "endSimultaneousParticipation":
		return domain.EndSimultaneousParticipation{}, nil
	case "dispatchBonus":
		var c domain.DispatchBonus
		return c, unmarshal(&c)
	case "abortRound":
		return domain.AbortRound{}, nil
	}
	return nil, domain.ErrInvalidPayload("unsupported message type " + typ)
}

func errorEventFrom(err error) domain.Event {
	var de *domain.Error
	if errors.As(err, &de) {
		return domain.ErrorEvent(de)
	}
	return domain.ErrorEvent(domain.Errorf(domain.CodeInternal, "internal error"))
}

// ServeWS upgrades the connection and wires it into the session: one writer
// goroutine, one broadcast pump, and a read loop dispatching commands.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	actor, err := h.auth.Authenticate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Dispatch(r.Context(), quizID, actor, domain.JoinSession{})
	if err != nil {
		_ = conn.WriteJSON(errorEventFrom(err))
		return
	}

	updates, cancel := h.service.Subscribe(quizID)
	defer cancel()
	defer h.service.Leave(quizID, actor.ParticipantID)

	send := make(chan domain.Event, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
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
				case send <- update:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if joined != nil {
		send <- *joined
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		cmd, err := decodeCommand(inbound.Type, inbound.Payload)
		if err != nil {
			send <- errorEventFrom(err)
			continue
		}
		reply, err := h.service.Dispatch(r.Context(), quizID, actor, cmd)
		if err != nil {
			send <- errorEventFrom(err)
			continue
		}
		if reply != nil {
			send <- *reply
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
