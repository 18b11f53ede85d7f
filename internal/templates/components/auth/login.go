package auth

import (
	"embed"

	"github.com/a-h/templ"

	"github.com/codr1/drivewise-admin/internal/templates/view"
)

type LoginData struct {
	Username string
	Error    string
}

//go:embed login.html
var templateFS embed.FS

var login = view.ParseFS(templateFS, "login.html")

func LoginForm(data LoginData) templ.Component {
	return view.Component(login, "login", data)
}
