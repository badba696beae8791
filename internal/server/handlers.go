package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"file-drop-service/internal/manager"
	"file-drop-service/pkg/errors"
	"file-drop-service/pkg/logger"
)

// uploadResponse is the JSON body returned for a successful upload
type uploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	ID      string `json:"id"`
	Expiry  string `json:"expiry"`
}

// errorResponse is the JSON body returned for any failed request
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// Handler serves the public file-sharing API
type Handler struct {
	lifecycle manager.Lifecycle
	baseURL   string
	maxUpload int64
	defExpiry string
	logger    *logger.Logger
}

// NewHandler creates the API handler. baseURL is used to build share
// links; maxUpload caps the request body before ingest sees it.
func NewHandler(lifecycle manager.Lifecycle, baseURL string, maxUpload int64, defaultExpiry string) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		baseURL:   baseURL,
		maxUpload: maxUpload,
		defExpiry: defaultExpiry,
		logger:    logger.NewWithComponent("http"),
	}
}

// HandleUpload accepts a multipart upload in the "file" field with an
// optional "expiry" field and returns the share link.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Leave headroom for the multipart framing around the payload
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			h.writeError(w, errors.NewAppError(errors.ErrFileTooBig,
				fmt.Sprintf("request body exceeds maximum upload size %d", h.maxUpload), err))
			return
		}
		h.writeError(w, errors.NewAppError(errors.ErrInvalidInput,
			"multipart form must contain a 'file' field", err))
		return
	}
	defer file.Close()

	selector := r.FormValue("expiry")
	if selector == "" {
		selector = h.defExpiry
	}

	record, err := h.lifecycle.Ingest(r.Context(), manager.IngestRequest{
		Content:        file,
		OriginalName:   header.Filename,
		MimeType:       mediaTypeOf(header.Header.Get("Content-Type")),
		SizeBytes:      header.Size,
		ExpirySelector: selector,
	})
	if err != nil {
		if isBodyTooLarge(err) {
			err = errors.NewAppError(errors.ErrFileTooBig,
				fmt.Sprintf("request body exceeds maximum upload size %d", h.maxUpload), err)
		}
		h.writeError(w, err)
		return
	}

	expiryText := "Never"
	if record.ExpiresAt != nil {
		expiryText = record.ExpiresAt.UTC().Format(time.RFC3339)
	}

	h.logger.InfoWithFields("File uploaded", map[string]interface{}{
		"id":        record.ID,
		"mime_type": record.MimeType,
		"size":      record.SizeBytes,
		"expiry":    expiryText,
	})

	h.writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		URL:     h.baseURL + "/" + record.ID,
		ID:      record.ID,
		Expiry:  expiryText,
	})
}

// HandleDownload streams the file bytes with metadata headers
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")

	record, content, err := h.lifecycle.Retrieve(r.Context(), id, time.Now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", record.MimeType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", record.OriginalName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", record.SizeBytes))

	if _, err := io.Copy(w, content); err != nil {
		// Headers are gone; all we can do is log the broken transfer
		h.logger.WarnWithError("Download stream interrupted", err)
	}
}

// HandleShareLink redirects a bare share link to the download endpoint
func (h *Handler) HandleShareLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	http.Redirect(w, r, "/api/files/"+id, http.StatusFound)
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WarnWithError("Failed to encode response body", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	status := statusForCode(code)

	if status >= http.StatusInternalServerError {
		h.logger.ErrorWithError("Request failed", err)
	}

	h.writeJSON(w, status, errorResponse{
		Success: false,
		Error:   errors.UserMessageOf(err),
		Code:    string(code),
	})
}

// statusForCode maps the error taxonomy to HTTP statuses. Unknown codes
// fall through to 500 so internal details never leak as client errors.
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrRecordNotFound, errors.ErrFileNotFound:
		return http.StatusNotFound
	case errors.ErrFileExpired:
		return http.StatusGone
	case errors.ErrUnsupportedType, errors.ErrInvalidInput, errors.ErrFileEmpty:
		return http.StatusBadRequest
	case errors.ErrFileTooBig:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// mediaTypeOf strips parameters like "; charset=utf-8" from the
// Content-Type declared by the client.
func mediaTypeOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mediaType
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return stderrors.As(err, &maxBytesErr)
}
