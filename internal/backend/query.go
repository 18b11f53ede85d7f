package backend

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/codr1/drivewise-admin/internal/models"
)

const (
	DefaultSkip  = 0
	DefaultLimit = 50
)

// ListQuery builds the list query string in the order the backend documents:
// status_filter (when set), skip, limit. A filter of "all" is omitted.
func ListQuery(statusFilter string, skip, limit int) string {
	if skip < 0 {
		skip = DefaultSkip
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	parts := make([]string, 0, 3)
	if !models.IsFilterAll(statusFilter) {
		parts = append(parts, "status_filter="+url.QueryEscape(strings.TrimSpace(statusFilter)))
	}
	parts = append(parts, "skip="+strconv.Itoa(skip), "limit="+strconv.Itoa(limit))
	return strings.Join(parts, "&")
}

func statusPath(collection, id string) string {
	return collection + "/" + url.PathEscape(id) + "/status"
}

type statusUpdate struct {
	Status string `json:"status"`
}
