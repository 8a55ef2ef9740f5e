package frontend

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

// GetTemplateFS returns the embedded page templates
func GetTemplateFS() (fs.FS, error) {
	return fs.Sub(templateFS, "templates")
}

// LoadTemplates parses every embedded page template
func LoadTemplates() (*template.Template, error) {
	sub, err := GetTemplateFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open templates: %w", err)
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(sub, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}
