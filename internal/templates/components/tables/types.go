package tables

import "github.com/codr1/drivewise-admin/internal/models"

// Row is one rendered table row. Phone and Price are shown only when the
// table's ShowPhone / ShowPrice is set.
type Row struct {
	Resource  string
	ID        string
	Vehicle   models.Vehicle
	Phone     string
	Price     float64
	CreatedAt models.Timestamp
	Status    string
	Statuses  []string
	ShowPhone bool
	ShowPrice bool
	// UpdateFailed marks a row whose last status write was rolled back.
	UpdateFailed bool
	UpdateError  string
}

// Table is the filterable list partial.
type Table struct {
	Resource     string
	Title        string
	Rows         []Row
	Statuses     []string
	Status       string
	Search       string
	ServerStatus string
	// ServerFilter is false for resources the backend cannot filter.
	ServerFilter bool
	ShowPhone    bool
	ShowPrice    bool

	Page       int
	TotalPages int
	Matched    int
	Held       int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int

	Loading bool
	// Stale is set when the last fetch failed; rows, if any, come from cache.
	Stale bool
	Error string
}
