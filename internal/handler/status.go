package handler

import (
	"html/template"
	"log/slog"
	"net/http"
)

// statusPage is the root page: a human-readable "the backend is up" check.
// The real UI lives in the clients; this exists so that hitting the base URL
// in a browser confirms the deployment instead of returning a 404.
//
// The template is embedded as a string rather than loaded from disk — a
// single static page doesn't justify a template directory and the file-path
// configuration that comes with it.
const statusPage = `<!DOCTYPE html>
<html>
<head><title>CarKeeper API</title></head>
<body>
<h1>CarKeeper</h1>
<p>Vehicle maintenance backend is running.</p>
<p>Version: {{.Version}}</p>
</body>
</html>
`

// StatusHandler serves the root status page.
// Templates are parsed once at startup (expensive) and reused per request
// (cheap).
type StatusHandler struct {
	tmpl    *template.Template
	version string
	logger  *slog.Logger
}

func NewStatusHandler(version string, logger *slog.Logger) (*StatusHandler, error) {
	tmpl, err := template.New("status").Parse(statusPage)
	if err != nil {
		return nil, err
	}
	return &StatusHandler{tmpl: tmpl, version: version, logger: logger}, nil
}

// HandleStatus renders the status page.
//
// HTTP: GET /
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Version string }{Version: h.version}
	if err := h.tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render status page", slog.String("error", err.Error()))
	}
}
