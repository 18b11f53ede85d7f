// Package view adapts html/template definitions to templ components so
// handlers render every page and partial through the same interface.
package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/models"
)

// DateLayout is how list timestamps are shown.
const DateLayout = "Jan 2, 2006 15:04"

// Funcs is shared by every template in the dashboard.
var Funcs = template.FuncMap{
	"statusLabel": func(status string) string {
		return models.DisplayForStatus(status).Label
	},
	"statusStyle": func(status string) template.CSS {
		display := models.DisplayForStatus(status)
		return template.CSS(fmt.Sprintf("background-color:%s;color:%s", display.BgColor, display.TextColor))
	},
	"formatTime": func(ts models.Timestamp) string {
		if ts.Raw == "" {
			return "-"
		}
		return ts.Format(DateLayout)
	},
	"formatDate": func(t time.Time) string {
		return t.Local().Format(DateLayout)
	},
	"money": func(amount float64) string {
		return fmt.Sprintf("%.2f", amount)
	},
	"orDash": func(value string) string {
		if strings.TrimSpace(value) == "" {
			return "-"
		}
		return value
	},
}

// New parses text into a template set carrying Funcs.
func New(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(Funcs).Parse(text))
}

// ParseFS parses the named files of fsys into a template set carrying Funcs.
func ParseFS(fsys fs.FS, patterns ...string) *template.Template {
	return template.Must(template.New("").Funcs(Funcs).ParseFS(fsys, patterns...))
}

// Component renders the named template of set with data.
func Component(set *template.Template, name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return set.ExecuteTemplate(w, name, data)
	})
}

// HTML renders c to a string so it can be embedded in another template.
func HTML(ctx context.Context, c templ.Component) (template.HTML, error) {
	if c == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
