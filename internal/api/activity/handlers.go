// internal/api/activity/handlers.go
package activity

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/api/apiutil"
	"github.com/codr1/drivewise-admin/internal/api/auth"
	"github.com/codr1/drivewise-admin/internal/db"
	activitytempl "github.com/codr1/drivewise-admin/internal/templates/components/activity"
	"github.com/codr1/drivewise-admin/internal/templates/layouts"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Journal is the read side of the status-change journal.
type Journal interface {
	RecentStatusChanges(ctx context.Context, limit int) ([]db.StatusChange, error)
}

var journal Journal

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(j Journal) {
	journal = j
}

// HandleActivityPage renders GET /activity, the newest status edits first.
func HandleActivityPage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if journal == nil {
		logger.Error().Msg("Activity handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	limit := defaultLimit
	if raw := apiutil.FormValue(r, "limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			apiutil.WriteHandlerError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "limit must be a positive integer", Err: err})
			return
		}
		limit = min(parsed, maxLimit)
	}

	var data activitytempl.Data
	changes, err := journal.RecentStatusChanges(r.Context(), limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load status changes")
		data.Error = err.Error()
	}
	data.Entries = make([]activitytempl.Entry, 0, len(changes))
	for _, change := range changes {
		data.Entries = append(data.Entries, activitytempl.Entry{
			Resource:   change.Resource,
			RecordID:   change.RecordID,
			FromStatus: change.FromStatus,
			ToStatus:   change.ToStatus,
			Committed:  change.Committed,
			Actor:      change.Actor,
			Error:      change.Error,
			CreatedAt:  change.CreatedAt,
		})
	}

	page := layouts.Base(auth.Shell(r.Context(), "Activity", "activity"), activitytempl.Page(data))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render activity page", "Failed to render page")
}
