// Package web carries the embedded HTML templates so the binary serves
// pages without a templates directory on disk.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templates embed.FS

// NewEngine builds the Fiber view engine over the embedded templates.
// Template names are paths relative to web/templates without the
// extension, e.g. "posts/index".
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("02.01.2006")
	})
	return engine
}
