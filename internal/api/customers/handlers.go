// internal/api/customers/handlers.go
package customers

import (
	"net/http"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/api/apiutil"
	"github.com/codr1/drivewise-admin/internal/api/auth"
	"github.com/codr1/drivewise-admin/internal/api/htmx"
	"github.com/codr1/drivewise-admin/internal/backend"
	"github.com/codr1/drivewise-admin/internal/models"
	"github.com/codr1/drivewise-admin/internal/session"
	customerstempl "github.com/codr1/drivewise-admin/internal/templates/components/customers"
	"github.com/codr1/drivewise-admin/internal/templates/layouts"
)

const idColumn = "_id"

var client *backend.Client

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(c *backend.Client) {
	client = c
}

// HandleCustomersPage renders GET /customers.
func HandleCustomersPage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if client == nil {
		logger.Error().Msg("Customer handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		htmx.Redirect(w, r, "/login")
		return
	}

	result := client.Customers().GetAll(r.Context(), sess)
	if result.Unauthorized {
		htmx.Redirect(w, r, "/login")
		return
	}

	var data customerstempl.Data
	if result.Success {
		data = buildGrid(result.Data)
	} else {
		logger.Error().Str("error", result.Error).Int("status", result.StatusCode).Msg("Failed to load customers")
		data.Error = result.Error
	}

	page := layouts.Base(auth.Shell(r.Context(), "Customers", "customers"), customerstempl.Page(data))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render customers page", "Failed to render page")
}

// buildGrid lays customers out with one column per field seen on any profile,
// the identifier first and the rest alphabetical.
func buildGrid(customers []models.Customer) customerstempl.Data {
	seen := map[string]struct{}{}
	for _, customer := range customers {
		for key := range customer.Fields {
			if key != idColumn {
				seen[key] = struct{}{}
			}
		}
	}
	columns := make([]string, 0, len(seen)+1)
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	columns = append([]string{idColumn}, columns...)

	rows := make([][]string, 0, len(customers))
	for _, customer := range customers {
		row := make([]string, len(columns))
		row[0] = customer.ID
		for i, column := range columns[1:] {
			row[i+1] = customer.Field(column)
		}
		rows = append(rows, row)
	}
	return customerstempl.Data{Columns: columns, Rows: rows}
}
