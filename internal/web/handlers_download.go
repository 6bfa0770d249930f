package web

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/mobility/internal/logging"
	"github.com/JonMunkholm/mobility/internal/mobility"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	s.handleDownload(w, r, formatCSV)
}

func (s *Server) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	s.handleDownload(w, r, formatXLSX)
}

// handleDownload renders the filtered table in one format as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, format string) {
	flow, err := flowParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	sess := s.session(w, r)

	_, res, err := s.runFilter(sess, flow, r.URL.Query())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if res.Stage != mobility.StageReady {
		s.respondError(w, r, mobility.ErrNothingToExport, http.StatusConflict)
		return
	}

	payload := mobility.Payload{FileName: mobility.FileStem(flow, res.SelectedCountries, res.Year) + "." + format}
	switch format {
	case formatCSV:
		payload.ContentType = mobility.ContentTypeCSV
		payload.Data, payload.Err = s.exporter.RenderCSV(res.Table)
	default:
		payload.ContentType = mobility.ContentTypeXLSX
		payload.Data, payload.Err = s.exporter.RenderXLSX(res.Table)
	}
	s.metrics.ObserveExport(flow.Key, format, payload.Err)

	if payload.Err != nil {
		s.respondError(w, r, payload.Err, http.StatusInternalServerError)
		return
	}

	logging.WithSession(r.Context(), sess.ID, flow.Key).Info("export served",
		"format", format,
		"file", payload.FileName,
		"rows", res.Table.Len(),
	)
	writeAttachment(w, payload)
}

func writeAttachment(w http.ResponseWriter, p mobility.Payload) {
	h := w.Header()
	h.Set("Content-Type", p.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": p.FileName}))
	h.Set("Content-Length", strconv.Itoa(len(p.Data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Data)
}
