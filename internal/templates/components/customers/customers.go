package customers

import (
	"embed"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/templates/view"
)

// Data is a generic grid: profile fields are opaque, so columns are whatever
// keys the backend sent.
type Data struct {
	Columns []string
	Rows    [][]string
	Error   string
}

//go:embed customers.html
var templateFS embed.FS

var set = view.ParseFS(templateFS, "customers.html")

func Page(data Data) templ.Component {
	return view.Component(set, "page", data)
}
