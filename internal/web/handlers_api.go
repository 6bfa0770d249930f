package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/mobility/internal/mobility"
)

// FlowInfo describes one flow and whether the session has data for it.
type FlowInfo struct {
	Key      string           `json:"key"`
	Label    string           `json:"label"`
	Slug     string           `json:"slug"`
	Variant  mobility.Variant `json:"variant"`
	Required []string         `json:"requiredColumns"`
	Loaded   bool             `json:"loaded"`
	FileName string           `json:"fileName,omitempty"`
	Records  int              `json:"records,omitempty"`
	LoadedAt *time.Time       `json:"loadedAt,omitempty"`
}

// FilterResponse is a pipeline result plus its status line.
type FilterResponse struct {
	Flow string `json:"flow"`
	mobility.Result
	Message  string            `json:"message,omitempty"`
	Severity mobility.Severity `json:"severity,omitempty"`
}

// ExportFile is one rendered download. Data is base64 in JSON.
type ExportFile struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
}

// ExportResponse carries both formats; one may fail while the other succeeds.
type ExportResponse struct {
	Flow string     `json:"flow"`
	Rows int        `json:"rows"`
	CSV  ExportFile `json:"csv"`
	XLSX ExportFile `json:"xlsx"`
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	var out []FlowInfo
	for _, f := range mobility.Flows() {
		info := FlowInfo{
			Key:      f.Key,
			Label:    f.Label,
			Slug:     f.Slug,
			Variant:  f.Variant,
			Required: f.Columns.Required(),
		}
		if ds := sess.Dataset(f.Key); ds != nil {
			loadedAt := ds.LoadedAt
			info.Loaded = true
			info.FileName = ds.FileName
			info.Records = ds.Len()
			info.LoadedAt = &loadedAt
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, FilterResponse{
		Flow:     flow.Key,
		Result:   res,
		Message:  res.Message(),
		Severity: res.Severity(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
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

	exp := s.exporter.Export(res.Table, mobility.FileStem(flow, res.SelectedCountries, res.Year))
	s.metrics.ObserveExport(flow.Key, formatCSV, exp.CSV.Err)
	s.metrics.ObserveExport(flow.Key, formatXLSX, exp.XLSX.Err)

	writeJSON(w, http.StatusOK, ExportResponse{
		Flow: flow.Key,
		Rows: res.Table.Len(),
		CSV:  exportFile(exp.CSV),
		XLSX: exportFile(exp.XLSX),
	})
}

func exportFile(p mobility.Payload) ExportFile {
	f := ExportFile{FileName: p.FileName, ContentType: p.ContentType, Data: p.Data}
	if p.Err != nil {
		msg := mobility.MapError(p.Err)
		f.Error = msg.Message
		f.Code = msg.Code
	}
	return f
}
