// Package ratelimit throttles admin sign-in attempts.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	MaxAttempts  int           // Failed sign-ins per username before lockout (default: 5)
	Lockout      time.Duration // Lockout duration after max attempts (default: 5m)
	MaxIPPerHour int           // Sign-in attempts per IP per hour (default: 30)

	// Clock for testing (nil uses real time)
	Clock Clock
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  5,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 30,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type entry struct {
	count    int
	firstAt  time.Time
	lastAt   time.Time
	lockedAt time.Time // zero if not locked
}

// Limiter tracks failed sign-ins per username and all sign-ins per client IP.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex
	// Keyed by hash of username or IP
	byUser map[string]*entry
	byIP   map[string]*entry
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		config: cfg,
		clock:  clock,
		byUser: make(map[string]*entry),
		byIP:   make(map[string]*entry),
	}
}

// CheckLogin reports whether a sign-in attempt may be forwarded to the backend.
// It does not record the attempt.
func (l *Limiter) CheckLogin(username, ip string) LimitResult {
	now := l.clock.Now()
	userKey := hashKey("user:", normalizeUsername(username))
	ipKey := hashKey("ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if e := l.byUser[userKey]; e != nil && !e.lockedAt.IsZero() {
		if elapsed := now.Sub(e.lockedAt); elapsed < l.config.Lockout {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.Lockout - elapsed,
				Reason:     "lockout",
			}
		}
	}

	if e := l.byIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordLogin records a forwarded sign-in attempt. Failed attempts count
// toward the username lockout; a success clears it. It returns true when this
// attempt triggered a lockout.
func (l *Limiter) RecordLogin(username, ip string, succeeded bool) (lockedOut bool) {
	now := l.clock.Now()
	userKey := hashKey("user:", normalizeUsername(username))
	ipKey := hashKey("ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	if e := l.byIP[ipKey]; e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.byIP[ipKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}

	if succeeded {
		delete(l.byUser, userKey)
		return false
	}

	e := l.byUser[userKey]
	switch {
	case e == nil, !e.lockedAt.IsZero() && now.Sub(e.lockedAt) >= l.config.Lockout:
		e = &entry{firstAt: now}
		l.byUser[userKey] = e
	}
	e.count++
	e.lastAt = now
	if e.count >= l.config.MaxAttempts && e.lockedAt.IsZero() {
		e.lockedAt = now
		lockedOut = true
	}
	return lockedOut
}

// Sweep drops entries that can no longer affect a decision. It is run by the
// scheduler.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	maxAge := l.config.Lockout + time.Hour
	for k, e := range l.byUser {
		if now.Sub(e.lastAt) > maxAge {
			delete(l.byUser, k)
			removed++
		}
	}
	for k, e := range l.byIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byIP, k)
			removed++
		}
	}
	return removed
}

func hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

// normalizeUsername lowercases the username to prevent case-based bypass.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ClientIP returns the host part of r.RemoteAddr. Proxy headers are resolved
// before this point by the server's ProxyHeaders middleware.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SanitizeUsername masks a username for logging.
func SanitizeUsername(username string) string {
	username = normalizeUsername(username)
	if len(username) > 2 {
		return username[:2] + "***"
	}
	return "***"
}

// LogRateLimitExceeded logs a throttled sign-in with a masked username.
func LogRateLimitExceeded(ctx context.Context, username, ip, reason string) {
	log.Ctx(ctx).Warn().
		Str("event", "rate_limit_exceeded").
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Login rate limit exceeded")
}
