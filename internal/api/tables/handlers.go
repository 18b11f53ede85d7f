// internal/api/tables/handlers.go
package tables

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/api/apiutil"
	"github.com/codr1/drivewise-admin/internal/api/auth"
	"github.com/codr1/drivewise-admin/internal/api/htmx"
	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/db"
	"github.com/codr1/drivewise-admin/internal/listctl"
	"github.com/codr1/drivewise-admin/internal/metrics"
	"github.com/codr1/drivewise-admin/internal/models"
	"github.com/codr1/drivewise-admin/internal/request"
	"github.com/codr1/drivewise-admin/internal/session"
	tabletempl "github.com/codr1/drivewise-admin/internal/templates/components/tables"
	"github.com/codr1/drivewise-admin/internal/templates/layouts"
)

const (
	updateOutcomeCommitted  = "committed"
	updateOutcomeRolledBack = "rolled_back"

	updateFailedEvent = "status-update-failed"
)

// Journal records status edits made through the tables.
type Journal interface {
	RecordStatusChange(ctx context.Context, change db.StatusChange) (db.StatusChange, error)
}

var (
	client     *backend.Client
	journal    Journal
	metric     *metrics.Metrics
	fetchLimit = backend.DefaultLimit
	pageSize   = listctl.DefaultPageSize
)

// InitHandlers must be called during server startup before handling requests.
// journal and m may be nil.
func InitHandlers(c *backend.Client, j Journal, m *metrics.Metrics, limit, size int) {
	client = c
	journal = j
	metric = m
	if limit > 0 {
		fetchLimit = limit
	}
	if size > 0 {
		pageSize = size
	}
}

// table describes how one resource is listed and rendered.
type table[T any] struct {
	name         string
	title        string
	statuses     models.StatusSet
	serverFilter bool
	showPhone    bool
	showPrice    bool
	resource     func(*backend.Client, int) listctl.Resource[T]
	row          func(T) tabletempl.Row
}

var bookings = table[models.Booking]{
	name:         listctl.ResourceBookings,
	title:        "Bookings",
	statuses:     models.BookingStatuses,
	serverFilter: true,
	showPhone:    true,
	showPrice:    true,
	resource:     listctl.Bookings,
	row: func(b models.Booking) tabletempl.Row {
		return tabletempl.Row{ID: b.ID, Vehicle: b.Vehicle, Phone: b.Phone, Price: float64(b.TotalPrice), CreatedAt: b.CreatedAt, Status: b.Status}
	},
}

var insurance = table[models.InsuranceRequest]{
	name:         listctl.ResourceInsurance,
	title:        "Insurance Requests",
	statuses:     models.InsuranceStatuses,
	serverFilter: true,
	resource:     listctl.Insurance,
	row: func(r models.InsuranceRequest) tabletempl.Row {
		return tabletempl.Row{ID: r.ID, Vehicle: r.Vehicle, CreatedAt: r.CreatedAt, Status: r.Status}
	},
}

var requests = table[models.GeneralRequest]{
	name:     listctl.ResourceRequests,
	title:    "Car Requests",
	statuses: models.GeneralRequestStatuses,
	resource: listctl.Requests,
	row: func(r models.GeneralRequest) tabletempl.Row {
		return tabletempl.Row{ID: r.ID, Vehicle: r.Vehicle, CreatedAt: r.CreatedAt, Status: r.Status}
	},
}

var (
	HandleBookingsPage    = bookings.handlePage
	HandleBookingsTable   = bookings.handleTable
	HandleBookingStatus   = bookings.handleUpdateStatus
	HandleInsurancePage   = insurance.handlePage
	HandleInsuranceTable  = insurance.handleTable
	HandleInsuranceStatus = insurance.handleUpdateStatus
	HandleRequestsPage    = requests.handlePage
	HandleRequestsTable   = requests.handleTable
	HandleRequestStatus   = requests.handleUpdateStatus
)

// query is the parsed filter state of a table request.
type query struct {
	serverStatus string
	filter       listctl.Filter
}

func parseQuery(r *http.Request, serverFilter bool) query {
	q := query{
		filter: listctl.Filter{
			Status:   apiutil.FormValue(r, "filter_status"),
			Search:   apiutil.FormValue(r, "q"),
			Page:     apiutil.PageFromQuery(r),
			PageSize: pageSize,
		},
	}
	if serverFilter {
		q.serverStatus = request.FilterValue(r, "server_status")
		if models.IsFilterAll(q.serverStatus) {
			q.serverStatus = ""
		}
	}
	return q
}

// pageURL is the shareable page address for q, pushed into the browser
// history when the table is re-filtered.
func (t table[T]) pageURL(q query) string {
	values := url.Values{}
	if q.serverStatus != "" {
		values.Set("server_status", q.serverStatus)
	}
	if !models.IsFilterAll(q.filter.Status) {
		values.Set("filter_status", q.filter.Status)
	}
	if q.filter.Search != "" {
		values.Set("q", q.filter.Search)
	}
	if q.filter.Page > 1 {
		values.Set("page", strconv.Itoa(q.filter.Page))
	}
	if len(values) == 0 {
		return "/" + t.name
	}
	return "/" + t.name + "?" + values.Encode()
}

// controller builds a controller whose snapshot is keyed by the server filter,
// so differently filtered fetches never overwrite each other.
func (t table[T]) controller(sess *session.Session, serverStatus string) *listctl.Controller[T] {
	res := t.resource(client, fetchLimit)
	if serverStatus != "" {
		res.Name = t.name + "?status_filter=" + serverStatus
	}
	return listctl.New(res, sess)
}

// load restores the cached snapshot, then fetches unless cacheOnly is set and
// a snapshot was found. It returns false when the response has been handled.
func (t table[T]) load(w http.ResponseWriter, r *http.Request, ctl *listctl.Controller[T], serverStatus string, cacheOnly bool) bool {
	restored := ctl.Restore(r.Context())
	if cacheOnly && restored {
		return true
	}
	result := ctl.Load(r.Context(), serverStatus)
	if result.Unauthorized {
		htmx.Redirect(w, r, "/login")
		return false
	}
	if r.Context().Err() != nil {
		return false
	}
	return true
}

func (t table[T]) sessionOrFail(w http.ResponseWriter, r *http.Request) *session.Session {
	if client == nil {
		log.Ctx(r.Context()).Error().Msg("Table handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		htmx.Redirect(w, r, "/login")
		return nil
	}
	return sess
}

// handlePage renders the full table page, always refetching from the backend.
func (t table[T]) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := t.sessionOrFail(w, r)
	if sess == nil {
		return
	}
	q := parseQuery(r, t.serverFilter)
	ctl := t.controller(sess, q.serverStatus)
	if !t.load(w, r, ctl, q.serverStatus, false) {
		return
	}

	page := layouts.Base(auth.Shell(r.Context(), t.title, t.name), tabletempl.Page(t.viewData(ctl, q)))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render table page", "Failed to render page")
}

// handleTable renders the table partial for filter and paging swaps. The
// cached snapshot is reused unless refresh=1 or nothing is cached.
func (t table[T]) handleTable(w http.ResponseWriter, r *http.Request) {
	sess := t.sessionOrFail(w, r)
	if sess == nil {
		return
	}
	q := parseQuery(r, t.serverFilter)
	ctl := t.controller(sess, q.serverStatus)
	if !t.load(w, r, ctl, q.serverStatus, r.FormValue("refresh") != "1") {
		return
	}
	if htmx.IsRequest(r) {
		htmx.PushURL(w, t.pageURL(q))
	}

	apiutil.RenderHTMLComponent(r.Context(), w, tabletempl.Partial(t.viewData(ctl, q)), nil, "Failed to render table", "Failed to render table")
}

// handleUpdateStatus applies a status change optimistically and renders the
// row with whatever status it settled on.
func (t table[T]) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	sess := t.sessionOrFail(w, r)
	if sess == nil {
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	status := apiutil.FormValue(r, "status")
	if id == "" || status == "" {
		http.Error(w, "id and status are required", http.StatusBadRequest)
		return
	}

	q := parseQuery(r, t.serverFilter)
	ctl := t.controller(sess, q.serverStatus)
	if !t.load(w, r, ctl, q.serverStatus, true) {
		return
	}

	outcome, err := ctl.UpdateStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, listctl.ErrInvalidStatus):
		apiutil.WriteHandlerError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Unknown status", Err: err})
		return
	case errors.Is(err, listctl.ErrRowNotFound):
		apiutil.WriteHandlerError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "Record not found", Err: err})
		return
	case err != nil:
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	t.record(r.Context(), sess, id, outcome)

	if outcome.Unauthorized {
		htmx.Redirect(w, r, "/login")
		return
	}

	row := t.rowData(outcome.Row)
	if !outcome.Committed {
		row.UpdateFailed = true
		row.UpdateError = outcome.Error
		htmx.Trigger(w, updateFailedEvent)
		logger.Warn().Str("resource", t.name).Str("id", id).Str("status", status).Msg("Status update rolled back")
	}
	apiutil.RenderHTMLComponent(r.Context(), w, tabletempl.RowPartial(row), nil, "Failed to render row", "Failed to render row")
}

func (t table[T]) record(ctx context.Context, sess *session.Session, id string, outcome listctl.UpdateOutcome[T]) {
	result := updateOutcomeCommitted
	if !outcome.Committed {
		result = updateOutcomeRolledBack
	}
	metric.IncStatusUpdate(t.name, result)

	if journal == nil {
		return
	}
	// The edit already happened; journal it even if the client went away.
	_, err := journal.RecordStatusChange(context.WithoutCancel(ctx), db.StatusChange{
		Resource:   t.name,
		RecordID:   id,
		FromStatus: outcome.Previous,
		ToStatus:   outcome.Requested,
		Committed:  outcome.Committed,
		Actor:      sess.Username(ctx),
		Error:      outcome.Error,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("resource", t.name).Str("id", id).Msg("Failed to journal status change")
	}
}

func (t table[T]) rowData(item T) tabletempl.Row {
	row := t.row(item)
	row.Resource = t.name
	row.Statuses = t.statuses
	row.ShowPhone = t.showPhone
	row.ShowPrice = t.showPrice
	return row
}

func (t table[T]) viewData(ctl *listctl.Controller[T], q query) tabletempl.Table {
	page := ctl.View(q.filter)
	rows := make([]tabletempl.Row, 0, len(page.Rows))
	for _, item := range page.Rows {
		rows = append(rows, t.rowData(item))
	}
	state := ctl.State()
	return tabletempl.Table{
		Resource:     t.name,
		Title:        t.title,
		Rows:         rows,
		Statuses:     t.statuses,
		Status:       q.filter.Status,
		Search:       q.filter.Search,
		ServerStatus: q.serverStatus,
		ServerFilter: t.serverFilter,
		ShowPhone:    t.showPhone,
		ShowPrice:    t.showPrice,
		Page:         page.Page,
		TotalPages:   page.TotalPages,
		Matched:      page.Matched,
		Held:         page.Held,
		HasPrev:      page.HasPrev(),
		HasNext:      page.HasNext(),
		PrevPage:     page.PrevPage(),
		NextPage:     page.NextPage(),
		Loading:      state == listctl.StateLoading,
		Stale:        state == listctl.StateFailed,
		Error:        ctl.LastError(),
	}
}
