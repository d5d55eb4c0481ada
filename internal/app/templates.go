package app

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const serverErrorHTML = `<!DOCTYPE html><html><body><p>Something went wrong.</p></body></html>`

func renderTemplate(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	model any,
) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := templates.ExecuteTemplate(w, name, model)
	if err != nil {
		logAppErr(r, "couldn't render template: "+err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(serverErrorHTML))
	}
}
