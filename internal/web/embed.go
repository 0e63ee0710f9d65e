package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Pages holds the parsed page templates.
type Pages struct {
	tmpl *template.Template
}

// LoadPages parses the embedded page templates.
func LoadPages() (*Pages, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"beaconName": func(names map[string]string, mac string) string {
			if n, ok := names[mac]; ok {
				return n
			}
			return mac
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Pages{tmpl: tmpl}, nil
}

// Execute renders the named page.
func (p *Pages) Execute(w io.Writer, name string, data interface{}) error {
	return p.tmpl.ExecuteTemplate(w, name, data)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
