package views

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"feedback-webapp/internal/pkg/validation"
	"feedback-webapp/internal/utils"

	"github.com/gofiber/template/html/v2"
)

// Layout wraps every page.
const Layout = "layouts/main"

//go:embed templates
var templates embed.FS

// NewEngine returns the html engine over the embedded templates.
func NewEngine() (*html.Engine, error) {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, fmt.Errorf("open embedded templates: %w", err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("fieldErrors", func(errs validation.FieldErrors, field string) []string {
		return errs[field]
	})
	engine.AddFunc("userPath", utils.UserPath)
	return engine, nil
}
