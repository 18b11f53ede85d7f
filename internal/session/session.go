// Package session scopes the backend auth token and the list caches to one
// browser. The cookie carries only an opaque ID; the token stays server-side.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/cache"
)

const sessionIDBytes = 32

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Store      Store
	Cache      cache.Store
	CacheTTL   time.Duration
	Now        func() time.Time
}

// Manager issues and resolves sessions.
type Manager struct {
	cookieName string
	ttl        time.Duration
	secure     bool
	store      Store
	cache      cache.Store
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewManager(opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CookieName == "" {
		opts.CookieName = "drivewise_session"
	}
	return &Manager{
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		store:      opts.Store,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		now:        opts.Now,
	}
}

// FromRequest returns the session named by the request cookie. A new session ID
// is issued, and its cookie set, when the request carries none or the value is
// not one this manager could have issued.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(m.cookieName); err == nil && validSessionID(cookie.Value) {
		return m.newSession(cookie.Value), nil
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	m.setCookie(w, id)
	return m.newSession(id), nil
}

// Sweep removes expired session records and, for stores that do not expire
// keys themselves, expired cache entries.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	removed, err := m.store.Sweep(ctx, m.now())
	if err != nil {
		return removed, err
	}
	if sweeper, ok := m.cache.(interface {
		Sweep(context.Context) (int, error)
	}); ok {
		n, err := sweeper.Sweep(ctx)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (m *Manager) newSession(id string) *Session {
	return &Session{
		id:    id,
		mgr:   m,
		cache: m.namespace(id),
	}
}

// namespace keys the session's list cache by the ID digest, never the raw ID.
func (m *Manager) namespace(id string) cache.Namespace {
	return cache.NewNamespace(m.cache, RedisKey(id), m.cacheTTL)
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	if w == nil {
		return
	}
	cookie := &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.ttl > 0 {
		cookie.Expires = m.now().Add(m.ttl)
		cookie.MaxAge = int(m.ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}

// Session is the per-request view of one browser session. The token is read
// from the store on first access and mirrored in memory afterwards.
type Session struct {
	id    string
	mgr   *Manager
	cache cache.Namespace

	mu     sync.Mutex
	loaded bool
	record Record
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Cache returns the list-snapshot namespace owned by this session.
func (s *Session) Cache() cache.Namespace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// Token returns the backend bearer token, or "" when none is held.
func (s *Session) Token(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.record.Token
}

// Username returns the name the token was issued to, when known.
func (s *Session) Username(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.record.Username
}

func (s *Session) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true
	record, err := s.mgr.store.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to load session")
		}
		return
	}
	s.record = record
}

// SetToken stores a freshly issued token for this session.
func (s *Session) SetToken(ctx context.Context, token, username string) error {
	now := s.mgr.now()
	record := Record{
		Token:     token,
		Username:  username,
		CreatedAt: now,
	}
	if s.mgr.ttl > 0 {
		record.ExpiresAt = now.Add(s.mgr.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mgr.store.Save(ctx, s.id, record); err != nil {
		return err
	}
	s.record = record
	s.loaded = true
	return nil
}

// ClearToken drops the token from memory and from the store.
func (s *Session) ClearToken(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = Record{}
	s.loaded = true
	if err := s.mgr.store.Delete(ctx, s.id); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to delete session")
	}
}

// End tears the session down: the token and every cached list snapshot.
func (s *Session) End(ctx context.Context) {
	s.ClearToken(ctx)
	if err := s.Cache().Clear(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to clear session cache")
	}
}

// Rotate moves the session to a freshly issued ID and sets its cookie on w.
// The record follows the session; the old ID's record and cached lists are
// dropped.
func (s *Session) Rotate(ctx context.Context, w http.ResponseWriter) error {
	id, err := newSessionID()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	if s.record.Token != "" {
		if err := s.mgr.store.Save(ctx, id, s.record); err != nil {
			return err
		}
	}
	if err := s.mgr.store.Delete(ctx, s.id); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to delete rotated session")
	}
	if err := s.cache.Clear(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to clear rotated session cache")
	}

	s.id = id
	s.cache = s.mgr.namespace(id)
	s.mgr.setCookie(w, id)
	return nil
}

type contextKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by the session middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func validSessionID(id string) bool {
	if len(id) != base64.RawURLEncoding.EncodedLen(sessionIDBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}
