package nav

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleMenu(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nav/menu?active=bookings", nil)
	recorder := httptest.NewRecorder()

	HandleMenu(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}

	body := recorder.Body.String()
	for _, href := range []string{`href="/bookings"`, `href="/insurance"`, `href="/requests"`, `href="/customers"`} {
		if !strings.Contains(body, href) {
			t.Fatalf("expected menu to contain %s, got: %s", href, body)
		}
	}
	if !strings.Contains(body, `href="/bookings" class="active"`) {
		t.Fatalf("expected bookings to be active, got: %s", body)
	}
	if strings.Count(body, `class="active"`) != 1 {
		t.Fatalf("expected exactly one active item, got: %s", body)
	}
}

func TestHandleMenuClose(t *testing.T) {
	recorder := httptest.NewRecorder()
	HandleMenuClose(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/nav/menu/close", nil))

	if recorder.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", recorder.Body.String())
	}
}
