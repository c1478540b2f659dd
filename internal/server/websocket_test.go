package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dashboard-console/internal/auth"
	"dashboard-console/internal/model"
)

type frame struct {
	Type  string         `json:"type"`
	Event string         `json:"event"`
	Body  map[string]any `json:"body"`
}

func dialFeed(t *testing.T, tc *testConsole, token string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(tc.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil returns the first frame accepted by match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if match(f) {
			return f
		}
	}
}

func TestWebSocket_SendsCurrentViews(t *testing.T) {
	tc := newTestConsole(t, nil)
	conn := dialFeed(t, tc, tc.login(t))

	seen := map[string]bool{}
	for len(seen) < 5 {
		f := readUntil(t, conn, func(f frame) bool { return f.Type == "update" })
		seen[f.Event] = true
	}
	for _, name := range []string{"account", "apps", "members", "analytics", "onboarding"} {
		if !seen[name] {
			t.Fatalf("expected initial %s view, got %v", name, seen)
		}
	}
}

func TestWebSocketPingPong(t *testing.T) {
	tc := newTestConsole(t, nil)
	conn := dialFeed(t, tc, tc.login(t))

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	readUntil(t, conn, func(f frame) bool { return f.Type == "pong" })
}

func TestWebSocket_PushesStoreChanges(t *testing.T) {
	tc := newTestConsole(t, nil)
	tok := tc.login(t)
	conn := dialFeed(t, tc, tok)
	readUntil(t, conn, func(f frame) bool { return f.Event == "apps" })

	if w := tc.do(t, http.MethodPost, "/v1/apps", tok, map[string]string{"name": "Live"}); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	readUntil(t, conn, func(f frame) bool {
		if f.Type != "update" || f.Event != "apps" {
			return false
		}
		apps, _ := f.Body["apps"].([]any)
		return len(apps) == 1
	})
}

func TestWebSocket_RejectsInvalidToken(t *testing.T) {
	tc := newTestConsole(t, nil)
	srv := httptest.NewServer(tc.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=bogus"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}

	tc.login(t)
	other, err := auth.CreateToken(model.User{ID: "99"}, tokenCfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	_, resp, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token="+other, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a viewer of another user, got %v", err)
	}
}
