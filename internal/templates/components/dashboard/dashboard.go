package dashboard

import (
	"embed"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/models"
	"github.com/codr1/drivewise-admin/internal/templates/view"
)

type Card struct {
	Label string
	Value string
	Hint  string
}

type ActivityItem struct {
	Source    string
	Title     string
	Status    string
	CreatedAt models.Timestamp
}

type Data struct {
	Cards    []Card
	Activity []ActivityItem
	// Unavailable names list sections that could not be loaded.
	Unavailable []string
}

//go:embed dashboard.html
var templateFS embed.FS

var set = view.ParseFS(templateFS, "dashboard.html")

func Page(data Data) templ.Component {
	return view.Component(set, "page", data)
}

// Error replaces the whole page when the stats call fails.
func Error(detail string) templ.Component {
	return view.Component(set, "error", detail)
}
