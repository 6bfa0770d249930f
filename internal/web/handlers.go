package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/mobility/internal/logging"
	"github.com/JonMunkholm/mobility/internal/mobility"
	"github.com/JonMunkholm/mobility/internal/session"
	"github.com/JonMunkholm/mobility/internal/web/templates"
)

// flowParam resolves the {flow} URL parameter.
func flowParam(r *http.Request) (mobility.Flow, error) {
	return mobility.LookupFlow(chi.URLParam(r, "flow"))
}

func flowPath(key string) string {
	return "/flows/" + url.PathEscape(key)
}

func (s *Server) chrome() templates.Chrome {
	return templates.Chrome{
		Title:  s.cfg.App.Title,
		Icon:   s.cfg.App.Icon,
		Footer: s.cfg.App.Footer,
	}
}

// renderHTML renders c with status. Render errors after the header is
// written can only be logged.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page failed", "error", err)
	}
}

// handleIndex redirects to the first flow.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	flows := mobility.Flows()
	if len(flows) == 0 {
		s.respondError(w, r, errNotFound, http.StatusNotFound)
		return
	}
	http.Redirect(w, r, flowPath(flows[0].Key), http.StatusSeeOther)
}

// handleHealth reports liveness with limiter and session counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uploads":  s.uploads.Status(),
		"sessions": s.sessions.Len(),
	})
}

// handleFlowPage renders the upload form, filters and results for a flow.
func (s *Server) handleFlowPage(w http.ResponseWriter, r *http.Request) {
	flow, err := flowParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	sess := s.session(w, r)

	page := s.flowPage(sess, flow)

	ds, res, err := s.runFilter(sess, flow, r.URL.Query())
	switch {
	case err == nil:
		page.Dataset = ds
		page.Result = &res
		page.DownloadQuery = encodeSelection(effectiveSelection(res))
	case errors.Is(err, mobility.ErrNoDataset):
		// Empty state.
	default:
		s.respondError(w, r, err, statusFor(err))
		return
	}

	s.renderHTML(w, r, http.StatusOK, templates.FlowPageView(page))
}

// handleClear discards the flow's dataset.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	flow, err := flowParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	sess := s.session(w, r)
	sess.Clear(flow.Key)
	logging.WithSession(r.Context(), sess.ID, flow.Key).Info("dataset cleared")

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, flowPath(flow.Key), http.StatusSeeOther)
}

// flowPage fills the parts of the page that do not depend on the dataset.
func (s *Server) flowPage(sess *session.Session, active mobility.Flow) templates.FlowPage {
	loaded := make(map[string]bool)
	for _, k := range sess.LoadedFlows() {
		loaded[k] = true
	}

	var tabs []templates.Tab
	for _, f := range mobility.Flows() {
		tabs = append(tabs, templates.Tab{
			Label:  f.Label,
			Href:   flowPath(f.Key),
			Active: f.Key == active.Key,
			Loaded: loaded[f.Key],
		})
	}

	return templates.FlowPage{
		Chrome:        s.chrome(),
		Tabs:          tabs,
		Flow:          active,
		BasePath:      flowPath(active.Key),
		Accept:        strings.Join(mobility.SupportedExtensions(), ","),
		MaxUploadSize: humanSize(s.cfg.Upload.MaxFileSize),
	}
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d KB", (n+1023)/1024)
}
