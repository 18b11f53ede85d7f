package apiutil

import (
	"net/http"
	"strconv"
	"strings"
)

// PageFromQuery reads a 1-based page number. Missing or malformed values mean
// page 1; out-of-range pages are clamped later by pagination.
func PageFromQuery(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// FormValue returns the trimmed form or query value for key.
func FormValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
