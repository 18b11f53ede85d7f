// internal/api/nav/handlers.go
package nav

import (
	"net/http"

	"github.com/codr1/drivewise-admin/internal/api/apiutil"
	"github.com/codr1/drivewise-admin/internal/templates/components/nav"
)

// HandleMenu renders the navigation partial. The active query parameter names
// the section to highlight.
func HandleMenu(w http.ResponseWriter, r *http.Request) {
	active := apiutil.FormValue(r, "active")
	apiutil.RenderHTMLComponent(r.Context(), w, nav.Menu(active), nil, "Failed to render menu", "Failed to render menu")
}

func HandleMenuClose(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(""))
}
