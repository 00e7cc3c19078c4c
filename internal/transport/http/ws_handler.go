package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"codemaster-service/internal/account"
	"codemaster-service/internal/app"
	"codemaster-service/internal/logger"
)

// WSHandler streams one lesson session per connection.
type WSHandler struct {
	service  *app.LessonService
	accounts *account.Service
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.LessonService, accounts *account.Service, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service:  service,
		accounts: accounts,
		log:      log.With("component", "lesson_ws"),
		upgrader: newUpgrader(),
	}
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     *int   `json:"option"`
}

type navigatePayload struct {
	CourseID string `json:"courseId"`
	LessonID string `json:"lessonId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorBody(err)}
}

// ServeWS upgrades the request and drives the lesson for the signed-in
// learner, or for an anonymous viewer when nobody is signed in.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("courseId")
	lessonID := r.URL.Query().Get("lessonId")
	if courseID == "" || lessonID == "" {
		http.Error(w, "missing courseId or lessonId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ref := app.Ref{UserID: h.accounts.Current().UserID(), CourseID: courseID, LessonID: lessonID}
	log := h.log.With("course_id", courseID, "lesson_id", lessonID, "user_id", ref.UserID)

	if _, err := h.service.Open(ctx, ref); err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer h.service.Leave(ctx, ref)

	updates, cancel, err := h.service.Subscribe(ctx, ref)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write failed", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- eventMessage(courseID, ev):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	log.Debug("lesson connection opened")
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		// State changes reach this connection through the subscription.
		if err := h.dispatch(r, ref, inbound); err != nil {
			send <- errorMessage(err)
		}
	}
	log.Debug("lesson connection closed")

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, ref app.Ref, inbound inboundMessage) error {
	ctx := r.Context()
	var err error
	switch inbound.Type {
	case "next":
		_, err = h.service.Next(ctx, ref)
	case "prev":
		_, err = h.service.Prev(ctx, ref)
	case "answer":
		var payload answerPayload
		if jerr := json.Unmarshal(inbound.Payload, &payload); jerr != nil || payload.QuestionID == "" || payload.Option == nil {
			return errBadRequest
		}
		_, err = h.service.Answer(ctx, ref, payload.QuestionID, *payload.Option)
	case "submit":
		_, err = h.service.Submit(ctx, ref)
	case "retry":
		_, err = h.service.Retry(ctx, ref)
	case "showCertificate":
		_, err = h.service.ShowCertificate(ctx, ref)
	default:
		return errBadRequest
	}
	return err
}

func eventMessage(courseID string, ev app.Event) outboundMessage[any] {
	if ev.Type == app.EventNavigate {
		return outboundMessage[any]{Type: string(app.EventNavigate), Payload: navigatePayload{CourseID: courseID, LessonID: ev.Navigate}}
	}
	return outboundMessage[any]{Type: string(app.EventState), Payload: ev.State}
}
