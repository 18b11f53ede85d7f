// Package listctl implements the fetch / filter / optimistic-update cycle
// shared by every status-bearing table in the dashboard.
package listctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/cache"
	"github.com/codr1/drivewise-admin/internal/models"
)

var (
	ErrRowNotFound   = errors.New("row not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type State int

const (
	// StateLoading means no rows have been fetched or restored yet.
	StateLoading State = iota
	StateLoaded
	// StateUpdating means a status write is in flight for at least one row.
	StateUpdating
	// StateFailed means the last fetch failed; any rows held are stale.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateUpdating:
		return "updating"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is what a controller needs from the browser session: the token for
// backend calls and the namespace its snapshot is cached in.
type Session interface {
	backend.TokenHolder
	Cache() cache.Namespace
}

// Resource describes one backend collection.
type Resource[T any] struct {
	// Name labels logs and keys the cached snapshot.
	Name       string
	Statuses   models.StatusSet
	Fetch      func(ctx context.Context, sess backend.TokenHolder, serverFilter string) backend.Result[[]T]
	Update     func(ctx context.Context, sess backend.TokenHolder, id, status string) backend.Result[json.RawMessage]
	ID         func(T) string
	Status     func(T) string
	SetStatus  func(row *T, status string)
	SearchText func(T) []string
}

// Controller holds one session's rows for one resource.
type Controller[T any] struct {
	res  Resource[T]
	sess Session

	mu       sync.Mutex
	state    State
	rows     []T
	lastErr  string
	inFlight int
}

func New[T any](res Resource[T], sess Session) *Controller[T] {
	return &Controller[T]{res: res, sess: sess}
}

// Restore seeds rows from the session's cached snapshot, if one exists, so a
// revisit renders without a loading state. It reports whether a snapshot was found.
func (c *Controller[T]) Restore(ctx context.Context) bool {
	var cached []T
	ok, err := c.sess.Cache().LoadJSON(ctx, c.res.Name, &cached)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("resource", c.res.Name).Msg("Failed to restore cached rows")
		return false
	}
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLoading {
		c.rows = cached
		c.state = StateLoaded
	}
	return true
}

// LoadResult reports the outcome of a fetch.
type LoadResult struct {
	Success      bool
	Unauthorized bool
	Error        string
}

// Load fetches rows from the backend. On success the held rows become exactly
// the fetched rows and the cached snapshot is overwritten. On failure the held
// rows are left as they were and the controller enters StateFailed. Nothing is
// applied when ctx ends before the response arrives.
func (c *Controller[T]) Load(ctx context.Context, serverFilter string) LoadResult {
	logger := log.Ctx(ctx).With().Str("resource", c.res.Name).Logger()

	result := c.res.Fetch(ctx, c.sess, serverFilter)
	if ctx.Err() != nil {
		logger.Debug().Msg("Fetch finished after request ended; result discarded")
		return LoadResult{Error: ctx.Err().Error()}
	}

	if !result.Success {
		logger.Error().Str("error", result.Error).Int("status", result.StatusCode).Msg("Failed to fetch rows")
		c.mu.Lock()
		c.state = StateFailed
		c.lastErr = result.Error
		c.mu.Unlock()
		return LoadResult{Unauthorized: result.Unauthorized, Error: result.Error}
	}

	rows := result.Data
	if rows == nil {
		rows = []T{}
	}

	c.mu.Lock()
	c.rows = rows
	c.lastErr = ""
	if c.inFlight > 0 {
		c.state = StateUpdating
	} else {
		c.state = StateLoaded
	}
	c.mu.Unlock()

	if err := c.sess.Cache().StoreJSON(ctx, c.res.Name, rows); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache rows")
	}
	return LoadResult{Success: true}
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the message of the last failed fetch, if any.
func (c *Controller[T]) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Rows returns a copy of the held rows.
func (c *Controller[T]) Rows() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.rows))
	copy(out, c.rows)
	return out
}

// View applies f over the held rows and returns the requested page.
func (c *Controller[T]) View(f Filter) Page[T] {
	rows := c.Rows()
	filtered := Apply(rows, f, c.res.Status, c.res.SearchText)
	page := Paginate(filtered, f.Page, f.PageSize)
	page.Held = len(rows)
	return page
}

// Find returns the held row with the given ID.
func (c *Controller[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(id); idx >= 0 {
		return c.rows[idx], true
	}
	var zero T
	return zero, false
}

// UpdateOutcome reports what an optimistic status write settled on.
type UpdateOutcome[T any] struct {
	Row      T
	Previous string
	// Requested is the status the user asked for.
	Requested string
	// Committed is true when the backend accepted the write; otherwise the row
	// holds Previous again.
	Committed    bool
	Unauthorized bool
	Error        string
}

// UpdateStatus sets a row's status optimistically, writes it to the backend,
// and restores the previous status if the backend reports failure. Concurrent
// updates to the same row are not serialized: a later optimistic write or
// rollback may overwrite an earlier one.
func (c *Controller[T]) UpdateStatus(ctx context.Context, id, status string) (UpdateOutcome[T], error) {
	if len(c.res.Statuses) > 0 && !c.res.Statuses.IsValid(status) {
		return UpdateOutcome[T]{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	logger := log.Ctx(ctx).With().Str("resource", c.res.Name).Str("id", id).Logger()

	// Capture, then apply optimistically.
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return UpdateOutcome[T]{}, fmt.Errorf("%w: %s %s", ErrRowNotFound, c.res.Name, id)
	}
	previous := c.res.Status(c.rows[idx])
	c.res.SetStatus(&c.rows[idx], status)
	c.inFlight++
	c.state = StateUpdating
	optimistic := c.snapshotLocked()
	c.mu.Unlock()

	c.storeCache(ctx, optimistic)

	result := c.res.Update(ctx, c.sess, id, status)

	outcome := UpdateOutcome[T]{
		Previous:     previous,
		Requested:    status,
		Committed:    result.Success,
		Unauthorized: result.Unauthorized,
		Error:        result.Error,
	}

	c.mu.Lock()
	c.inFlight--
	if c.inFlight == 0 {
		c.state = StateLoaded
	}
	idx = c.indexLocked(id)
	if !result.Success && idx >= 0 {
		c.res.SetStatus(&c.rows[idx], previous)
	}
	if idx >= 0 {
		outcome.Row = c.rows[idx]
	}
	settled := c.snapshotLocked()
	c.mu.Unlock()

	if result.Success {
		logger.Info().Str("from", previous).Str("to", status).Msg("Status updated")
	} else {
		logger.Error().Str("error", result.Error).Str("from", previous).Str("to", status).Msg("Status update failed; rolled back")
	}

	// The snapshot outlives this request, so it is settled even if ctx has ended.
	c.storeCache(context.WithoutCancel(ctx), settled)
	return outcome, nil
}

func (c *Controller[T]) indexLocked(id string) int {
	for i := range c.rows {
		if c.res.ID(c.rows[i]) == id {
			return i
		}
	}
	return -1
}

func (c *Controller[T]) snapshotLocked() []T {
	out := make([]T, len(c.rows))
	copy(out, c.rows)
	return out
}

func (c *Controller[T]) storeCache(ctx context.Context, rows []T) {
	if err := c.sess.Cache().StoreJSON(ctx, c.res.Name, rows); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("resource", c.res.Name).Msg("Failed to cache rows")
	}
}
