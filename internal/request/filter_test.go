package request

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFilterValue(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		currentURL string
		expected   string
	}{
		{"query wins", "/bookings/table?server_status=pending", "http://x/bookings?server_status=confirmed", "pending"},
		{"falls back to current url", "/bookings/b1/status", "http://x/bookings?server_status=confirmed&q=honda", "confirmed"},
		{"trims", "/bookings/table?server_status=+new+", "", "new"},
		{"missing everywhere", "/bookings/table", "http://x/bookings", ""},
		{"bad current url", "/bookings/table", "http://[::1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.currentURL != "" {
				req.Header.Set("HX-Current-URL", tt.currentURL)
			}
			if got := FilterValue(req, "server_status"); got != tt.expected {
				t.Fatalf("FilterValue() = %q, want %q", got, tt.expected)
			}
		})
	}
}
