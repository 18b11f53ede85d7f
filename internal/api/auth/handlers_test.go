package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/cache"
	"github.com/codr1/drivewise-admin/internal/ratelimit"
	"github.com/codr1/drivewise-admin/internal/session"
)

// preLoginSessionID is a well-formed session ID the browser already holds.
const preLoginSessionID = "YXV0aC10ZXN0LXNlc3Npb24taWRlbnRpZmllci0zMiE"

type authTestContext struct {
	manager *session.Manager
	cache   *cache.MemoryStore
}

func setupAuthTest(t *testing.T, l *ratelimit.Limiter) authTestContext {
	t.Helper()

	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		switch {
		case body.Username == "admin" && body.Password == "secret":
			w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer"}`))
		case body.Username == "broken":
			http.Error(w, "db down", http.StatusInternalServerError)
		default:
			http.Error(w, `{"detail":"Invalid credentials"}`, http.StatusUnauthorized)
		}
	}))
	t.Cleanup(backendServer.Close)

	// Save and restore global state
	prevClient, prevLimiter, prevMetric := client, limiter, metric
	t.Cleanup(func() {
		client, limiter, metric = prevClient, prevLimiter, prevMetric
	})
	InitHandlers(backend.New(backendServer.URL), l, nil)

	store := cache.NewMemoryStore()
	return authTestContext{
		manager: session.NewManager(session.Options{TTL: time.Hour, Cache: store, CacheTTL: time.Hour}),
		cache:   store,
	}
}

func (c authTestContext) request(t *testing.T, method, target string, form url.Values) (*http.Request, *session.Session) {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: "drivewise_session", Value: preLoginSessionID})
	sess, err := c.manager.FromRequest(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	return req.WithContext(session.NewContext(req.Context(), sess)), sess
}

func TestHandleLoginSuccess(t *testing.T) {
	tc := setupAuthTest(t, nil)
	req, sess := tc.request(t, http.MethodPost, "/login", url.Values{"username": {" admin "}, "password": {"secret"}})

	rec := httptest.NewRecorder()
	HandleLogin(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if got := sess.Token(req.Context()); got != "tok-123" {
		t.Fatalf("expected token stored, got %q", got)
	}
	if got := sess.Username(req.Context()); got != "admin" {
		t.Fatalf("expected trimmed username, got %q", got)
	}
}

func TestHandleLoginRotatesSessionID(t *testing.T) {
	tc := setupAuthTest(t, nil)
	req, sess := tc.request(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	if sess.ID() != preLoginSessionID {
		t.Fatalf("expected the pre-login cookie to be honoured, got %q", sess.ID())
	}

	rec := httptest.NewRecorder()
	HandleLogin(rec, req)

	if sess.ID() == preLoginSessionID {
		t.Fatal("expected sign-in to issue a new session id")
	}
	var issued *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "drivewise_session" {
			issued = cookie
		}
	}
	if issued == nil || issued.Value != sess.ID() {
		t.Fatalf("expected cookie for the new session id, got %+v", rec.Result().Cookies())
	}

	// The pre-login id no longer carries the token.
	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(&http.Cookie{Name: "drivewise_session", Value: preLoginSessionID})
	old, err := tc.manager.FromRequest(httptest.NewRecorder(), stale)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if got := old.Token(stale.Context()); got != "" {
		t.Fatalf("expected no token under the pre-login id, got %q", got)
	}

	fresh := httptest.NewRequest(http.MethodGet, "/", nil)
	fresh.AddCookie(issued)
	current, err := tc.manager.FromRequest(httptest.NewRecorder(), fresh)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if got := current.Token(fresh.Context()); got != "tok-123" {
		t.Fatalf("expected token under the new id, got %q", got)
	}
}

func TestHandleLoginRejected(t *testing.T) {
	tc := setupAuthTest(t, nil)
	req, sess := tc.request(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})

	rec := httptest.NewRecorder()
	HandleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Fatalf("expected error message, got %q", rec.Body.String())
	}
	if sess.Token(req.Context()) != "" {
		t.Fatal("expected no token after rejected login")
	}
}

func TestHandleLoginBackendError(t *testing.T) {
	tc := setupAuthTest(t, nil)
	req, _ := tc.request(t, http.MethodPost, "/login", url.Values{"username": {"broken"}, "password": {"x"}})

	rec := httptest.NewRecorder()
	HandleLogin(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleLoginMissingFields(t *testing.T) {
	tc := setupAuthTest(t, nil)
	req, _ := tc.request(t, http.MethodPost, "/login", url.Values{"username": {"admin"}})

	rec := httptest.NewRecorder()
	HandleLogin(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleLoginThrottled(t *testing.T) {
	tc := setupAuthTest(t, ratelimit.New(&ratelimit.Config{MaxAttempts: 2, Lockout: time.Minute, MaxIPPerHour: 100}))

	for i := 0; i < 2; i++ {
		req, _ := tc.request(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
		rec := httptest.NewRecorder()
		HandleLogin(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	// Even the right password is refused during lockout.
	req, sess := tc.request(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	rec := httptest.NewRecorder()
	HandleLogin(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if sess.Token(req.Context()) != "" {
		t.Fatal("throttled login must not store a token")
	}
}

func TestHandleLogoutClearsTokenAndCache(t *testing.T) {
	tc := setupAuthTest(t, nil)
	req, sess := tc.request(t, http.MethodPost, "/logout", nil)
	ctx := req.Context()
	if err := sess.SetToken(ctx, "tok", "admin"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := sess.Cache().StoreJSON(ctx, "bookings", []string{"b1"}); err != nil {
		t.Fatalf("StoreJSON: %v", err)
	}

	rec := httptest.NewRecorder()
	HandleLogout(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if sess.Token(ctx) != "" {
		t.Fatal("expected token cleared")
	}
	var rows []string
	if ok, _ := sess.Cache().LoadJSON(ctx, "bookings", &rows); ok {
		t.Fatalf("expected cache cleared, got %v", rows)
	}
}

func TestHandleLoginPageRedirectsWhenSignedIn(t *testing.T) {
	tc := setupAuthTest(t, nil)
	req, sess := tc.request(t, http.MethodGet, "/login", nil)

	rec := httptest.NewRecorder()
	HandleLoginPage(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="username"`) {
		t.Fatalf("expected login form, got %d", rec.Code)
	}

	if err := sess.SetToken(req.Context(), "tok", "admin"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	rec = httptest.NewRecorder()
	HandleLoginPage(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
}

func TestDisplayName(t *testing.T) {
	signed := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "username_claim", token: signed(jwt.MapClaims{"username": "alice", "sub": "42"}), want: "alice"},
		{name: "sub_claim", token: signed(jwt.MapClaims{"sub": "admin@example.com"}), want: "admin@example.com"},
		{name: "opaque_token", token: "not-a-jwt", want: ""},
		{name: "garbage_segments", token: "a.b.c", want: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := DisplayName(test.token); got != test.want {
				t.Fatalf("DisplayName() = %q, want %q", got, test.want)
			}
		})
	}
}
