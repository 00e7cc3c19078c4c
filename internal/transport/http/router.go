package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"codemaster-service/internal/logger"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	API        *API
	Lesson     *WSHandler
	Playground *PlaygroundHandler
	Log        *logger.Logger
}

// NewRouter mounts the REST, page and socket endpoints.
func NewRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/courses", h.API.listCourses)
	mux.HandleFunc("GET /api/courses/{id}", h.API.getCourse)
	mux.HandleFunc("GET /api/categories", h.API.listCategories)

	mux.HandleFunc("POST /api/auth/register", h.API.register)
	mux.HandleFunc("POST /api/auth/login", h.API.login)
	mux.HandleFunc("POST /api/auth/logout", h.API.logout)
	mux.HandleFunc("GET /api/auth/me", h.API.me)

	mux.HandleFunc("GET /api/certificates", h.API.listCertificates)
	mux.HandleFunc("GET /api/certificates/{id}/image", h.API.certificateImage)

	mux.HandleFunc("POST /api/preview", h.API.composePreview)
	mux.HandleFunc("GET /playground", h.API.playground)

	mux.HandleFunc("GET /ws/lesson", h.Lesson.ServeWS)
	mux.HandleFunc("GET /ws/playground", h.Playground.ServeWS)

	return logRequests(h.Log, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack is required by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func logRequests(log *logger.Logger, next http.Handler) http.Handler {
	log = log.With("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
