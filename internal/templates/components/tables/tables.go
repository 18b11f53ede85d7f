package tables

import (
	"embed"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/templates/view"
)

//go:embed tables.html
var templateFS embed.FS

var set = view.ParseFS(templateFS, "tables.html")

// Page renders the heading, filter controls and the table partial.
func Page(data Table) templ.Component {
	return view.Component(set, "page", data)
}

// Partial renders only the table, for HTMX filter and paging swaps.
func Partial(data Table) templ.Component {
	return view.Component(set, "table", data)
}

// RowPartial renders a single row after a status update.
func RowPartial(data Row) templ.Component {
	return view.Component(set, "row", data)
}
