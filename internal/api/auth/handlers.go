package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/api/apiutil"
	"github.com/codr1/drivewise-admin/internal/api/htmx"
	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/metrics"
	"github.com/codr1/drivewise-admin/internal/ratelimit"
	"github.com/codr1/drivewise-admin/internal/session"
	authtempl "github.com/codr1/drivewise-admin/internal/templates/components/auth"
	"github.com/codr1/drivewise-admin/internal/templates/layouts"
)

const (
	loginOutcomeSuccess   = "success"
	loginOutcomeRejected  = "rejected"
	loginOutcomeError     = "error"
	loginOutcomeThrottled = "throttled"
)

var (
	client  *backend.Client
	limiter *ratelimit.Limiter
	metric  *metrics.Metrics
)

// InitHandlers must be called during server startup before handling requests.
// A nil limiter disables throttling; nil metrics are ignored.
func InitHandlers(c *backend.Client, l *ratelimit.Limiter, m *metrics.Metrics) {
	client = c
	limiter = l
	metric = m
}

// HandleLoginPage renders the sign-in form for GET /login. Sessions already
// holding a token go straight to the dashboard.
func HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil && sess.Token(r.Context()) != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderLogin(w, r, http.StatusOK, authtempl.LoginData{})
}

// HandleLogin exchanges credentials for a backend token on POST /login.
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if client == nil {
		logger.Error().Msg("Auth handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		logger.Error().Msg("Login request without session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	username := apiutil.FormValue(r, "username")
	password := r.PostFormValue("password")
	data := authtempl.LoginData{Username: username}
	if username == "" || password == "" {
		data.Error = "Username and password are required."
		renderLogin(w, r, http.StatusBadRequest, data)
		return
	}

	ip := ratelimit.ClientIP(r)
	if limiter != nil {
		if result := limiter.CheckLogin(username, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(r.Context(), username, ip, result.Reason)
			metric.IncLogin(loginOutcomeThrottled)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Round(time.Second).Seconds())))
			data.Error = "Too many sign-in attempts. Please wait and try again."
			renderLogin(w, r, http.StatusTooManyRequests, data)
			return
		}
	}

	result := client.Auth().Login(r.Context(), sess, username, password)
	rejected := result.Unauthorized || result.StatusCode == http.StatusBadRequest || result.StatusCode == http.StatusForbidden
	if limiter != nil && (result.Success || rejected) {
		if limiter.RecordLogin(username, ip, result.Success) {
			logger.Warn().Str("username", ratelimit.SanitizeUsername(username)).Str("ip", ip).Msg("Login locked out after repeated failures")
		}
	}

	switch {
	case result.Success:
		if err := sess.Rotate(r.Context(), w); err != nil {
			logger.Error().Err(err).Msg("Failed to rotate session after sign-in")
			sess.End(r.Context())
			metric.IncLogin(loginOutcomeError)
			data.Error = "Sign-in is unavailable right now. Please try again."
			renderLogin(w, r, http.StatusInternalServerError, data)
			return
		}
		metric.IncLogin(loginOutcomeSuccess)
		logger.Info().Str("username", ratelimit.SanitizeUsername(username)).Msg("Admin signed in")
		htmx.Redirect(w, r, "/")
	case rejected:
		metric.IncLogin(loginOutcomeRejected)
		logger.Info().Str("username", ratelimit.SanitizeUsername(username)).Int("status", result.StatusCode).Msg("Sign-in rejected")
		data.Error = "Invalid username or password."
		renderLogin(w, r, http.StatusUnauthorized, data)
	default:
		metric.IncLogin(loginOutcomeError)
		logger.Error().Str("error", result.Error).Int("status", result.StatusCode).Msg("Sign-in failed")
		data.Error = "Sign-in is unavailable right now. Please try again."
		renderLogin(w, r, http.StatusBadGateway, data)
	}
}

// HandleLogout clears the token and every cached list, then returns to the
// login screen.
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		if client != nil {
			client.Auth().Logout(r.Context(), sess)
		} else {
			sess.End(r.Context())
		}
		log.Ctx(r.Context()).Info().Msg("Admin signed out")
	}
	htmx.Redirect(w, r, "/login")
}

func renderLogin(w http.ResponseWriter, r *http.Request, status int, data authtempl.LoginData) {
	page := layouts.Bare("Sign in", authtempl.LoginForm(data))
	apiutil.RenderHTMLComponentStatus(r.Context(), w, status, page, nil, "Failed to render login page", "Failed to render page")
}
