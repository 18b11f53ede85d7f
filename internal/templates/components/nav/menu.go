package nav

import (
	"embed"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/templates/view"
)

type Item struct {
	Key    string
	Label  string
	Href   string
	Active bool
}

// Items lists the dashboard sections in menu order.
var Items = []Item{
	{Key: "dashboard", Label: "Dashboard", Href: "/"},
	{Key: "bookings", Label: "Bookings", Href: "/bookings"},
	{Key: "insurance", Label: "Insurance", Href: "/insurance"},
	{Key: "requests", Label: "Car Requests", Href: "/requests"},
	{Key: "customers", Label: "Customers", Href: "/customers"},
	{Key: "activity", Label: "Activity", Href: "/activity"},
}

//go:embed menu.html
var templateFS embed.FS

var menu = view.ParseFS(templateFS, "menu.html")

// Menu renders the navigation with active highlighted.
func Menu(active string) templ.Component {
	items := make([]Item, len(Items))
	for i, item := range Items {
		item.Active = item.Key == active
		items[i] = item
	}
	return view.Component(menu, "menu", items)
}
