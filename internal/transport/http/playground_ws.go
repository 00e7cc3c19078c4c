package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"codemaster-service/internal/logger"
	"codemaster-service/internal/preview"
)

// PlaygroundHandler gives every connection its own unsaved workspace.
type PlaygroundHandler struct {
	log      *logger.Logger
	debounce time.Duration
	upgrader websocket.Upgrader
}

// NewPlaygroundHandler builds the playground socket. A positive debounce
// coalesces bursts of edits into one preview push.
func NewPlaygroundHandler(log *logger.Logger, debounce time.Duration) *PlaygroundHandler {
	return &PlaygroundHandler{
		log:      log.With("component", "playground_ws"),
		debounce: debounce,
		upgrader: newUpgrader(),
	}
}

type editPayload struct {
	Buffer preview.Buffer `json:"buffer"`
	Text   string         `json:"text"`
}

type loadPayload struct {
	Example string `json:"example"`
}

func (h *PlaygroundHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ws := preview.NewWorkspace()
	send := make(chan outboundMessage[any], 16)
	dirty := make(chan struct{}, 1)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	publisherDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", "error", err)
				return
			}
		}
	}()

	push := func() bool {
		select {
		case send <- outboundMessage[any]{Type: "preview", Payload: ws.Document()}:
			return true
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(publisherDone)
		var timer *time.Timer
		var fire <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-dirty:
				if h.debounce <= 0 {
					if !push() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(h.debounce)
				} else {
					timer.Reset(h.debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if !push() {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "preview", Payload: ws.Document()}

	markDirty := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "edit":
			var payload editPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage(errBadRequest)
				continue
			}
			if _, err := ws.Edit(payload.Buffer, payload.Text); err != nil {
				send <- errorMessage(err)
				continue
			}
			markDirty()
		case "load":
			var payload loadPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage(errBadRequest)
				continue
			}
			if _, err := ws.Load(payload.Example); err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "preview", Payload: ws.Document()}
		case "clear":
			send <- outboundMessage[any]{Type: "preview", Payload: ws.Clear()}
		default:
			send <- errorMessage(errBadRequest)
		}
	}

	close(closeSignals)
	<-publisherDone
	close(send)
	<-writerDone
}
