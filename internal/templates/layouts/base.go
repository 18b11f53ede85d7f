package layouts

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/templates/components/nav"
	"github.com/codr1/drivewise-admin/internal/templates/view"
)

// Shell is what the signed-in chrome needs to know.
type Shell struct {
	Title       string
	Active      string
	DisplayName string
}

type basePage struct {
	Shell
	StatusCSS template.CSS
	Nav       template.HTML
	Content   template.HTML
}

//go:embed base.html
var templateFS embed.FS

var pages = view.ParseFS(templateFS, "base.html")

// Base wraps content in the signed-in shell: navigation, greeting and logout.
func Base(shell Shell, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := view.HTML(ctx, content)
		if err != nil {
			return err
		}
		menu, err := view.HTML(ctx, nav.Menu(shell.Active))
		if err != nil {
			return err
		}
		return pages.ExecuteTemplate(w, "base", basePage{
			Shell:     shell,
			StatusCSS: statusStylesheet(),
			Nav:       menu,
			Content:   body,
		})
	})
}

// Bare renders content without the shell, for the login screen.
func Bare(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := view.HTML(ctx, content)
		if err != nil {
			return err
		}
		return pages.ExecuteTemplate(w, "bare", basePage{Shell: Shell{Title: title}, Content: body})
	})
}
