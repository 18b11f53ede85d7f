package tables

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/cache"
	"github.com/codr1/drivewise-admin/internal/db"
	"github.com/codr1/drivewise-admin/internal/session"
	"github.com/codr1/drivewise-admin/internal/testutil"
)

const bookingList = `[
	{"_id":"b1","status":"pending","brand":"Toyota","model":"Corolla","year":"2021","phone":"555-1","totalPrice":120},
	{"_id":"b2","status":"confirmed","brand":"Honda","model":"Civic","year":2019,"phone":"555-2","totalPrice":80}
]`

type fakeBackend struct {
	mu           sync.Mutex
	listStatus   int
	updateStatus int
	listQueries  []string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	listStatus, updateStatus := f.listStatus, f.updateStatus
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/admin/bookings":
		f.mu.Lock()
		f.listQueries = append(f.listQueries, r.URL.RawQuery)
		f.mu.Unlock()
		if listStatus != 0 {
			http.Error(w, "list failed", listStatus)
			return
		}
		w.Write([]byte(bookingList))
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/admin/bookings/"):
		if updateStatus != 0 {
			http.Error(w, "update failed", updateStatus)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) set(listStatus, updateStatus int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listStatus, f.updateStatus = listStatus, updateStatus
}

func (f *fakeBackend) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listQueries...)
}

// testSessionID is a well-formed session ID shared by every request in a test.
const testSessionID = "dGFibGVzLXRlc3Qtc2Vzc2lvbi1pZGVudGlmaWVyISE"

type tablesTestContext struct {
	backend *fakeBackend
	manager *session.Manager
	journal *db.DB
}

func setupTablesTest(t *testing.T) tablesTestContext {
	t.Helper()

	fake := &fakeBackend{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	database := testutil.NewTestDB(t)

	// Save and restore global state
	prevClient, prevJournal, prevMetric, prevLimit, prevSize := client, journal, metric, fetchLimit, pageSize
	t.Cleanup(func() {
		client, journal, metric, fetchLimit, pageSize = prevClient, prevJournal, prevMetric, prevLimit, prevSize
	})
	InitHandlers(backend.New(server.URL), database, nil, 50, 7)

	return tablesTestContext{
		backend: fake,
		manager: session.NewManager(session.Options{TTL: time.Hour, Cache: cache.NewMemoryStore(), CacheTTL: time.Hour}),
		journal: database,
	}
}

// request builds a request carrying a signed-in session.
func (c tablesTestContext) request(t *testing.T, method, target string, form url.Values) *http.Request {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: "drivewise_session", Value: testSessionID})
	sess, err := c.manager.FromRequest(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if err := sess.SetToken(req.Context(), "tok", "admin"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	return req.WithContext(session.NewContext(req.Context(), sess))
}

func TestBookingsPageRendersRows(t *testing.T) {
	tc := setupTablesTest(t)

	recorder := httptest.NewRecorder()
	HandleBookingsPage(recorder, tc.request(t, http.MethodGet, "/bookings", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := recorder.Body.String()
	for _, want := range []string{"Bookings", "bookings-row-b1", "bookings-row-b2", "Toyota", "555-2", `name="server_status"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
}

func TestTablePartialFiltersCachedRows(t *testing.T) {
	tc := setupTablesTest(t)

	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings", nil))

	recorder := httptest.NewRecorder()
	HandleBookingsTable(recorder, tc.request(t, http.MethodGet, "/bookings/table?q=honda", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "bookings-row-b2") || strings.Contains(body, "bookings-row-b1") {
		t.Fatalf("expected only b2 to match, got %s", body)
	}
	if got := len(tc.backend.queries()); got != 1 {
		t.Fatalf("expected partial to reuse cached rows, backend saw %d fetches", got)
	}
}

func TestTablePartialRefreshRefetches(t *testing.T) {
	tc := setupTablesTest(t)

	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings", nil))
	HandleBookingsTable(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings/table?refresh=1", nil))

	if got := len(tc.backend.queries()); got != 2 {
		t.Fatalf("expected refresh to refetch, backend saw %d fetches", got)
	}
}

func TestServerStatusFilterIsForwarded(t *testing.T) {
	tc := setupTablesTest(t)

	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings?server_status=pending", nil))

	queries := tc.backend.queries()
	if len(queries) != 1 || queries[0] != "status_filter=pending&skip=0&limit=50" {
		t.Fatalf("unexpected backend query: %v", queries)
	}
}

func TestFetchFailureShowsNotice(t *testing.T) {
	tc := setupTablesTest(t)
	tc.backend.set(http.StatusInternalServerError, 0)

	recorder := httptest.NewRecorder()
	HandleBookingsPage(recorder, tc.request(t, http.MethodGet, "/bookings", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Could not refresh Bookings") {
		t.Fatalf("expected stale notice, got %s", recorder.Body.String())
	}
}

func TestUpdateStatusRollsBackAndJournals(t *testing.T) {
	tc := setupTablesTest(t)
	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings", nil))
	tc.backend.set(0, http.StatusInternalServerError)

	req := tc.request(t, http.MethodPost, "/bookings/b1/status", url.Values{"status": {"confirmed"}})
	req.SetPathValue("id", "b1")
	recorder := httptest.NewRecorder()
	HandleBookingStatus(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "update-failed") {
		t.Fatalf("expected failed row marker, got %s", body)
	}
	if !strings.Contains(body, `value="pending" selected`) {
		t.Fatalf("expected row to show previous status, got %s", body)
	}
	if got := recorder.Header().Get("HX-Trigger"); got != updateFailedEvent {
		t.Fatalf("expected HX-Trigger %q, got %q", updateFailedEvent, got)
	}

	changes, err := tc.journal.RecentStatusChanges(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentStatusChanges: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(changes))
	}
	change := changes[0]
	if change.Committed || change.FromStatus != "pending" || change.ToStatus != "confirmed" || change.Actor != "admin" {
		t.Fatalf("unexpected journal entry: %+v", change)
	}
}

func TestUpdateStatusCommits(t *testing.T) {
	tc := setupTablesTest(t)
	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings", nil))

	req := tc.request(t, http.MethodPost, "/bookings/b1/status", url.Values{"status": {"completed"}})
	req.SetPathValue("id", "b1")
	recorder := httptest.NewRecorder()
	HandleBookingStatus(recorder, req)

	body := recorder.Body.String()
	if strings.Contains(body, "update-failed") {
		t.Fatalf("did not expect failure marker, got %s", body)
	}
	if !strings.Contains(body, `value="completed" selected`) {
		t.Fatalf("expected new status selected, got %s", body)
	}

	recorder = httptest.NewRecorder()
	HandleBookingsTable(recorder, tc.request(t, http.MethodGet, "/bookings/table?filter_status=completed", nil))
	if !strings.Contains(recorder.Body.String(), "bookings-row-b1") {
		t.Fatalf("expected cached rows to carry the committed status")
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	tc := setupTablesTest(t)
	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings", nil))

	req := tc.request(t, http.MethodPost, "/bookings/b1/status", url.Values{"status": {"resolved"}})
	req.SetPathValue("id", "b1")
	recorder := httptest.NewRecorder()
	HandleBookingStatus(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestUpdateStatusUnknownRow(t *testing.T) {
	tc := setupTablesTest(t)
	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings", nil))

	req := tc.request(t, http.MethodPost, "/bookings/zz/status", url.Values{"status": {"confirmed"}})
	req.SetPathValue("id", "zz")
	recorder := httptest.NewRecorder()
	HandleBookingStatus(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestUnauthorizedFetchRedirectsToLogin(t *testing.T) {
	tc := setupTablesTest(t)
	tc.backend.set(http.StatusUnauthorized, 0)

	req := tc.request(t, http.MethodGet, "/bookings/table", nil)
	req.Header.Set("HX-Request", "true")
	recorder := httptest.NewRecorder()
	HandleBookingsTable(recorder, req)

	if got := recorder.Header().Get("HX-Redirect"); got != "/login" {
		t.Fatalf("expected HX-Redirect /login, got %q", got)
	}
	if sess := session.FromContext(req.Context()); sess.Token(req.Context()) != "" {
		t.Fatalf("expected token to be cleared")
	}
}

func TestMissingSessionRedirects(t *testing.T) {
	setupTablesTest(t)

	recorder := httptest.NewRecorder()
	HandleInsurancePage(recorder, httptest.NewRequest(http.MethodGet, "/insurance", nil))

	if recorder.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", recorder.Code)
	}
}

func TestTablePartialPushesPageURL(t *testing.T) {
	tc := setupTablesTest(t)

	req := tc.request(t, http.MethodGet, "/bookings/table?q=honda&filter_status=all&server_status=confirmed", nil)
	req.Header.Set("HX-Request", "true")
	recorder := httptest.NewRecorder()
	HandleBookingsTable(recorder, req)

	if got := recorder.Header().Get("HX-Push-Url"); got != "/bookings?q=honda&server_status=confirmed" {
		t.Fatalf("unexpected HX-Push-Url %q", got)
	}
}

func TestStatusUpdateUsesFilterFromCurrentURL(t *testing.T) {
	tc := setupTablesTest(t)
	HandleBookingsPage(httptest.NewRecorder(), tc.request(t, http.MethodGet, "/bookings?server_status=pending", nil))

	req := tc.request(t, http.MethodPost, "/bookings/b1/status", url.Values{"status": {"confirmed"}})
	req.SetPathValue("id", "b1")
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Current-URL", "http://admin.local/bookings?server_status=pending")
	recorder := httptest.NewRecorder()
	HandleBookingStatus(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if got := len(tc.backend.queries()); got != 1 {
		t.Fatalf("expected the filtered snapshot to be reused, backend saw %d fetches", got)
	}
}
