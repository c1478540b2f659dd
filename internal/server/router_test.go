package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/api"
	"dashboard-console/internal/auth"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/hub"
	"dashboard-console/internal/middleware"
	"dashboard-console/internal/model"
	"dashboard-console/internal/storage"
	"dashboard-console/internal/store"
	"dashboard-console/internal/tracking"
)

var tokenCfg = auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}

// upstream is a minimal stand-in for the hosted backend.
type upstream struct {
	mu     sync.Mutex
	apps   []gin.H
	nextID int
	bodies map[string]map[string]any
}

func (u *upstream) record(c *gin.Context) map[string]any {
	raw, _ := io.ReadAll(c.Request.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	u.mu.Lock()
	u.bodies[c.FullPath()] = body
	u.mu.Unlock()
	return body
}

func (u *upstream) body(path string) map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bodies[path]
}

func sessionUser() gin.H {
	return gin.H{"id": 1234, "account_id": 4321, "account_token": "T", "token": "U", "email": "nyan@cat.io", "first_name": "Nyan"}
}

func (u *upstream) router() *gin.Engine {
	r := gin.New()
	g := r.Group("/0.4")

	g.POST("/organizations/members/login", func(c *gin.Context) {
		body := u.record(c)
		if body["password"] != "secret" {
			c.JSON(http.StatusUnauthorized, gin.H{"errors": []gin.H{{"code": 4011, "message": "Invalid credentials"}}})
			return
		}
		c.JSON(http.StatusCreated, sessionUser())
	})
	g.DELETE("/organizations/:account/members/:id/logout", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	g.POST("/organizations", func(c *gin.Context) {
		body := u.record(c)
		c.JSON(http.StatusCreated, gin.H{"id": 4321, "name": body["name"], "token": "T"})
	})
	g.POST("/organizations/:account/members", func(c *gin.Context) {
		u.record(c)
		c.JSON(http.StatusCreated, sessionUser())
	})
	g.GET("/organizations/:account/applications", func(c *gin.Context) {
		u.mu.Lock()
		defer u.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"applications": u.apps})
	})
	g.POST("/organizations/:account/applications", func(c *gin.Context) {
		body := u.record(c)
		u.mu.Lock()
		defer u.mu.Unlock()
		u.nextID++
		app := gin.H{
			"id":          u.nextID,
			"name":        body["name"],
			"description": body["description"],
			"created_at":  "2026-01-0" + strconv.Itoa(u.nextID) + "T00:00:00Z",
		}
		u.apps = append(u.apps, app)
		c.JSON(http.StatusCreated, app)
	})
	g.DELETE("/organizations/:account/applications/:id", func(c *gin.Context) {
		u.mu.Lock()
		defer u.mu.Unlock()
		id, _ := strconv.Atoi(c.Param("id"))
		kept := u.apps[:0]
		for _, app := range u.apps {
			if app["id"] != id {
				kept = append(kept, app)
			}
		}
		u.apps = kept
		c.Status(http.StatusNoContent)
	})
	g.GET("/analytics/apps/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"users": []gin.H{{"bucket": "2026-01-02", "value": 5}},
		})
	})
	return r
}

type testConsole struct {
	router   *gin.Engine
	state    *store.State
	hub      *hub.Hub
	upstream *upstream
	sink     *tracking.Recorder
}

func newTestConsole(t *testing.T, limiter *middleware.RateLimiter) *testConsole {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := &upstream{bodies: make(map[string]map[string]any)}
	backend := httptest.NewServer(up.router())
	t.Cleanup(backend.Close)

	client, err := api.New(api.Options{BaseURL: backend.URL, Version: "0.4"})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}

	sink := &tracking.Recorder{}
	d := action.NewDispatcher()
	state := store.NewState(d, storage.NewMemoryKV(), sink, zap.NewNop())
	if err := state.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := flux.NewQueue(16, zap.NewNop())
	go func() { _ = q.Run(ctx) }()

	h := hub.New()
	go func() { _ = hub.NewFeed(h, state, zap.NewNop()).Run(ctx) }()
	t.Cleanup(cancel)

	if limiter == nil {
		limiter = middleware.NewRateLimiter(100, time.Minute)
	}
	t.Cleanup(limiter.Stop)

	r := NewRouter(Deps{
		State:       state,
		Creator:     action.NewCreator(client, q, d, zap.NewNop()),
		TokenConfig: tokenCfg,
		Hub:         h,
		AuthLimiter: limiter,
		Timeout:     5 * time.Second,
	})
	return &testConsole{router: r, state: state, hub: h, upstream: up, sink: sink}
}

func (tc *testConsole) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)
	return w
}

func (tc *testConsole) login(t *testing.T) string {
	t.Helper()
	w := tc.do(t, http.MethodPost, "/v1/login", "", map[string]string{"email": "nyan@cat.io", "password": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("expected token, got %s", w.Body.String())
	}
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("unmarshal %s: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	tc := newTestConsole(t, nil)
	if w := tc.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestLogin_IssuesTokenForSessionUser(t *testing.T) {
	tc := newTestConsole(t, nil)
	tok := tc.login(t)

	claims, err := auth.VerifyToken(tok, tokenCfg)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.UserID != "1234" || claims.AccountID != "4321" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !tc.state.Account.IsAuthenticated() {
		t.Fatalf("expected authenticated session")
	}
	if calls := tc.sink.Tracked(); len(calls) == 0 {
		t.Fatalf("expected login tracked")
	}
}

func TestLogin_FailureReturnsErrorList(t *testing.T) {
	tc := newTestConsole(t, nil)
	w := tc.do(t, http.MethodPost, "/v1/login", "", map[string]string{"email": "nyan@cat.io", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Errors []model.ErrorItem `json:"errors"`
	}
	decode(t, w, &resp)
	if len(resp.Errors) != 1 || resp.Errors[0].Code != 4011 {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	tc := newTestConsole(t, middleware.NewRateLimiter(1, time.Minute))
	tc.login(t)
	w := tc.do(t, http.MethodPost, "/v1/login", "", map[string]string{"email": "nyan@cat.io", "password": "secret"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestProtected_RequiresCurrentSession(t *testing.T) {
	tc := newTestConsole(t, nil)
	if w := tc.do(t, http.MethodGet, "/v1/apps", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	other, err := auth.CreateToken(model.User{ID: "99"}, tokenCfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	tc.login(t)
	if w := tc.do(t, http.MethodGet, "/v1/apps", other, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a stale viewer, got %d", w.Code)
	}
}

func TestApps_CreateListDelete(t *testing.T) {
	tc := newTestConsole(t, nil)
	tok := tc.login(t)

	w := tc.do(t, http.MethodPost, "/v1/apps", tok, map[string]string{
		"name":        "<b>Chat</b> & more",
		"description": "<script>alert(1)</script>support",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	sent := tc.upstream.body("/0.4/organizations/:account/applications")
	if sent["name"] != "Chat & more" || sent["description"] != "support" {
		t.Fatalf("expected markup stripped, got %v", sent)
	}

	tc.do(t, http.MethodPost, "/v1/apps", tok, map[string]string{"name": "Second"})

	w = tc.do(t, http.MethodGet, "/v1/apps", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var list store.ApplicationsView
	decode(t, w, &list)
	if len(list.Apps) != 2 || list.Status != store.StatusPopulated {
		t.Fatalf("unexpected apps view: %+v", list)
	}

	if w := tc.do(t, http.MethodDelete, "/v1/apps/1", tok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	apps := tc.state.Apps.Apps()
	if len(apps) != 1 || apps[0].ID != "2" {
		t.Fatalf("expected only app 2 left, got %+v", apps)
	}
}

func TestApps_CreateRequiresName(t *testing.T) {
	tc := newTestConsole(t, nil)
	tok := tc.login(t)
	if w := tc.do(t, http.MethodPost, "/v1/apps", tok, map[string]string{"name": "<i></i>"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSignup_CreatesAccountUserAndFirstApp(t *testing.T) {
	tc := newTestConsole(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/signup", bytes.NewReader([]byte(
		`{"email":"nyan@cat.io","password":"secret","firstName":"Nyan","lastName":"Cat"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://console.example.com/signup")
	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	account := tc.upstream.body("/0.4/organizations")
	if account["name"] != "nyan@cat.io" || account["plan"] != "free" {
		t.Fatalf("unexpected account request: %v", account)
	}
	member := tc.upstream.body("/0.4/organizations/:account/members")
	if member["referrer"] != "https://console.example.com/signup" {
		t.Fatalf("expected referrer forwarded, got %v", member)
	}
	apps := tc.state.Apps.Apps()
	if len(apps) != 1 || apps[0].Name != "Testing Application" {
		t.Fatalf("expected first app created, got %+v", apps)
	}
}

func TestAnalytics_ExplicitRange(t *testing.T) {
	tc := newTestConsole(t, nil)
	tok := tc.login(t)

	w := tc.do(t, http.MethodGet, "/v1/analytics?app=7&start=2026-01-01&end=2026-01-03", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var view store.AnalyticsView
	decode(t, w, &view)
	if len(view.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %v", view.Labels)
	}
	if got := view.Dimensions["users"]; len(got) != 3 || got[1] != 5 {
		t.Fatalf("expected users [0 5 0], got %v", got)
	}

	if w := tc.do(t, http.MethodGet, "/v1/analytics?app=7&start=2026-01-03&end=2026-01-01", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", w.Code)
	}
	if w := tc.do(t, http.MethodGet, "/v1/analytics?app=7&range=forever", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown preset, got %d", w.Code)
	}
}

func TestOnboarding_SelectPersonaAndOptions(t *testing.T) {
	tc := newTestConsole(t, nil)
	tok := tc.login(t)

	if w := tc.do(t, http.MethodPost, "/v1/onboarding/persona", tok, map[string]string{"persona": "pirate"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown persona, got %d", w.Code)
	}
	if w := tc.do(t, http.MethodPost, "/v1/onboarding/persona", tok, map[string]string{"persona": "product"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w := tc.do(t, http.MethodPost, "/v1/onboarding/options", tok, map[string][]string{"options": {"chat", "<b></b>"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var view store.OnboardingView
	decode(t, w, &view)
	if view.Persona != store.PersonaProduct || len(view.Options) != 1 || view.Options[0] != "chat" {
		t.Fatalf("unexpected onboarding view: %+v", view)
	}
}

func TestLogout_EndsSession(t *testing.T) {
	tc := newTestConsole(t, nil)
	tok := tc.login(t)

	if w := tc.do(t, http.MethodPost, "/v1/logout", tok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if tc.state.Account.IsAuthenticated() {
		t.Fatalf("expected session cleared")
	}
	if w := tc.do(t, http.MethodGet, "/v1/state", tok, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}
