package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"codemaster-service/internal/account"
	"codemaster-service/internal/app"
	"codemaster-service/internal/catalog"
	"codemaster-service/internal/certificate"
	"codemaster-service/internal/content"
	"codemaster-service/internal/infra/memory"
	"codemaster-service/internal/logger"
)

type testServer struct {
	*httptest.Server
	users    *memory.UserStore
	accounts *account.Service
}

func newTestServer(t *testing.T, debounce time.Duration) *testServer {
	t.Helper()
	seed, err := catalog.Seed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	certs, err := certificate.NewRenderer()
	if err != nil {
		t.Fatalf("certificate renderer: %v", err)
	}

	log := logger.Nop()
	users := memory.NewUserStore()
	courses := memory.NewCourseRepository(memory.NewStaticCourseLoader(seed), time.Minute)
	lessons := app.NewLessonService(memory.NewSessionStore(), courses, users, log,
		app.WithDelays(10*time.Millisecond, 10*time.Millisecond),
		app.WithRenderer(content.NewRenderer()),
	)
	accounts := account.NewService(users, log)

	server := httptest.NewServer(NewRouter(Handlers{
		API:        NewAPI(courses, accounts, certs, log),
		Lesson:     NewWSHandler(lessons, accounts, log),
		Playground: NewPlaygroundHandler(log, debounce),
		Log:        log,
	}))
	t.Cleanup(server.Close)
	return &testServer{Server: server, users: users, accounts: accounts}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+s.URL[len("http"):]+path, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *testServer) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(s.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) register(t *testing.T) {
	t.Helper()
	resp := s.postJSON(t, "/api/auth/register", map[string]string{
		"name": "Ada Lovelace", "email": "ada@example.com", "password": "secret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

// readUntilPhase skips state messages until one reports phase.
func readUntilPhase(conn *websocket.Conn, t *testing.T, phase string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		_, payload := readNext(conn, t, "state")
		if payload["phase"] == phase {
			return payload
		}
	}
	t.Fatalf("phase %s never reached", phase)
	return nil
}

func send(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}
