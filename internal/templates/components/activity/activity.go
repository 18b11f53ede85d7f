package activity

import (
	"embed"
	"time"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/templates/view"
)

type Entry struct {
	Resource   string
	RecordID   string
	FromStatus string
	ToStatus   string
	Committed  bool
	Actor      string
	Error      string
	CreatedAt  time.Time
}

type Data struct {
	Entries []Entry
	Error   string
}

//go:embed activity.html
var templateFS embed.FS

var set = view.ParseFS(templateFS, "activity.html")

func Page(data Data) templ.Component {
	return view.Component(set, "page", data)
}
