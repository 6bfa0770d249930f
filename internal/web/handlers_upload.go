package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/mobility/internal/logging"
	"github.com/JonMunkholm/mobility/internal/metrics"
	"github.com/JonMunkholm/mobility/internal/mobility"
	"github.com/JonMunkholm/mobility/internal/uploads"
	"github.com/JonMunkholm/mobility/internal/web/templates"
)

// multipartOverhead is slack for form boundaries and headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

// multipartMemory is how much of a form is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// UploadResponse is the JSON body of a successful upload.
type UploadResponse struct {
	Flow     string    `json:"flow"`
	FileName string    `json:"fileName"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loadedAt"`
}

// handleUpload parses the multipart "file" field into the flow's dataset.
// A file that fails to load discards the previous dataset of the flow.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	flow, err := flowParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	sess := s.session(w, r)
	logger := logging.WithSession(r.Context(), sess.ID, flow.Key)

	start := time.Now()
	ds, err := s.receiveUpload(w, r, flow)
	if err != nil {
		s.metrics.ObserveUpload(flow.Key, uploadOutcome(err), 0, time.Since(start))
		if isLoadFailure(err) {
			sess.Clear(flow.Key)
		}

		if wantsJSON(r) {
			s.respondError(w, r, err, statusFor(err))
			return
		}

		logger.Warn("upload rejected", "error", err)
		page := s.flowPage(sess, flow)
		alert := errorAlert(mobility.MapError(err))
		page.UploadError = &alert
		if prev := sess.Dataset(flow.Key); prev != nil {
			_, res, ferr := s.runFilter(sess, flow, nil)
			if ferr == nil {
				page.Dataset = prev
				page.Result = &res
				page.DownloadQuery = encodeSelection(effectiveSelection(res))
			}
		}
		s.renderHTML(w, r, statusFor(err), templates.FlowPageView(page))
		return
	}

	sess.SetDataset(flow.Key, ds)
	s.metrics.ObserveUpload(flow.Key, metrics.OutcomeOK, ds.Len(), time.Since(start))
	logger.Info("dataset loaded",
		"file", ds.FileName,
		"records", ds.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, UploadResponse{
			Flow:     flow.Key,
			FileName: ds.FileName,
			Records:  ds.Len(),
			LoadedAt: ds.LoadedAt,
		})
		return
	}
	http.Redirect(w, r, flowPath(flow.Key), http.StatusSeeOther)
}

// receiveUpload reads the form and loads the file while holding a parsing
// slot.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request, flow mobility.Flow) (*mobility.Dataset, error) {
	limit := s.cfg.Upload.MaxFileSize
	if r.ContentLength > limit+multipartOverhead {
		return nil, fileTooLarge(limit)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, fileTooLarge(limit)
		}
		return nil, errNoFile
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	if header.Size > limit {
		return nil, fileTooLarge(limit)
	}
	logging.WithFields(r.Context(), "flow", flow.Key, "file", header.Filename, "size", header.Size).
		Debug("upload received")

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	var ds *mobility.Dataset
	err = s.uploads.Do(ctx, func(ctx context.Context) error {
		var loadErr error
		ds, loadErr = s.loader.Load(ctx, header.Filename, file, flow)
		return loadErr
	})
	return ds, err
}

func isLoadFailure(err error) bool {
	var (
		formatErr *mobility.FormatError
		schemaErr *mobility.SchemaError
		loadErr   *mobility.LoadError
	)
	return errors.As(err, &formatErr) || errors.As(err, &schemaErr) || errors.As(err, &loadErr)
}

func uploadOutcome(err error) string {
	var (
		formatErr *mobility.FormatError
		schemaErr *mobility.SchemaError
		loadErr   *mobility.LoadError
	)
	switch {
	case errors.As(err, &formatErr):
		return metrics.OutcomeFormat
	case errors.As(err, &schemaErr):
		return metrics.OutcomeSchema
	case errors.As(err, &loadErr):
		return metrics.OutcomeLoad
	case errors.Is(err, uploads.ErrTooManyUploads):
		return metrics.OutcomeBusy
	case strings.Contains(err.Error(), "file too large"):
		return metrics.OutcomeTooLarge
	default:
		return metrics.OutcomeError
	}
}
