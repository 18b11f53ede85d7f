// Package request reads table filter state from HTMX requests.
package request

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// FilterValue returns key from the request's form or query. HTMX requests
// that do not carry it fall back to the query of the page they were issued
// from (HX-Current-URL), so row actions see the filters the page shows.
func FilterValue(r *http.Request, key string) string {
	if value := strings.TrimSpace(r.FormValue(key)); value != "" {
		return value
	}

	currentURL := strings.TrimSpace(r.Header.Get("HX-Current-URL"))
	if currentURL == "" {
		return ""
	}

	parsed, err := url.Parse(currentURL)
	if err != nil {
		log.Ctx(r.Context()).
			Debug().
			Err(err).
			Str("hx_current_url", currentURL).
			Msg("Failed to parse HX-Current-URL")
		return ""
	}

	return strings.TrimSpace(parsed.Query().Get(key))
}
