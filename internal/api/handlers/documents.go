package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/imagexbot/internal/api/middleware"
	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/logger"
)

// DocumentsConfig configures a DocumentsHandler.
type DocumentsConfig struct {
	// ExplorerPrefix is the folder served by the file explorer endpoints.
	ExplorerPrefix string
	SignedURLTTL   time.Duration
	Now            func() time.Time
}

// DocumentsHandler serves statement uploads and the file explorer.
type DocumentsHandler struct {
	store gcs.ObjectStore
	cfg   DocumentsConfig
}

// NewDocumentsHandler creates a DocumentsHandler.
func NewDocumentsHandler(store gcs.ObjectStore, cfg DocumentsConfig) *DocumentsHandler {
	if cfg.ExplorerPrefix == "" {
		cfg.ExplorerPrefix = "file-explorer"
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &DocumentsHandler{store: store, cfg: cfg}
}

type uploadURLRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type"`
}

// CreateUploadURL handles POST /api/documents/upload-url. The client PUTs
// the PDF to upload_url, then passes url and public_id to /api/analyze.
func (h *DocumentsHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Filename is required")
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/pdf"
	}

	filename := path.Base(strings.ReplaceAll(req.Filename, "\\", "/"))
	objectName := fmt.Sprintf("uploads/%s/%s-%s", h.cfg.Now().UTC().Format("2006/01/02"), uuid.New().String(), filename)

	uploadURL, err := h.store.SignedUploadURL(r.Context(), objectName, req.ContentType, h.cfg.SignedURLTTL)
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Str("object", objectName).Msg("Failed to sign upload URL")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create upload URL")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"upload_url":   uploadURL,
		"url":          h.store.URL(objectName),
		"public_id":    objectName,
		"content_type": req.ContentType,
	})
}

type deletePDFRequest struct {
	PublicID string `json:"public_id" validate:"required"`
}

// DeletePDF handles DELETE /delete-pdf.
func (h *DocumentsHandler) DeletePDF(w http.ResponseWriter, r *http.Request) {
	var req deletePDFRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "public_id is required")
		return
	}
	h.delete(w, r, req.PublicID)
}

type fileEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
}

// ListFiles handles GET /api/files?path=.
func (h *DocumentsHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	dir, ok := cleanRelative(r.URL.Query().Get("path"))
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid path")
		return
	}
	prefix := h.cfg.ExplorerPrefix + "/"
	if dir != "" {
		prefix += dir + "/"
	}

	objects, err := h.store.List(r.Context(), prefix, 500)
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Str("prefix", prefix).Msg("Failed to list files")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch files")
		return
	}

	files := make([]fileEntry, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Name, "/") {
			continue
		}
		files = append(files, fileEntry{
			ID:        obj.Name,
			Name:      obj.Name,
			Type:      "file",
			Path:      obj.Name,
			Size:      obj.Size,
			CreatedAt: obj.Created,
			Format:    strings.TrimPrefix(path.Ext(obj.Name), "."),
			URL:       obj.URL,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{"files": files})
}

type createJSONRequest struct {
	Filename string          `json:"filename" validate:"required"`
	Content  json.RawMessage `json:"content" validate:"required"`
	Path     string          `json:"path"`
}

// CreateJSON handles POST /api/create-json. content may be a JSON string,
// stored verbatim, or any other JSON value, stored as written.
func (h *DocumentsHandler) CreateJSON(w http.ResponseWriter, r *http.Request) {
	var req createJSONRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "filename and content are required")
		return
	}

	dir, ok := cleanRelative(req.Path)
	name, okName := cleanRelative(req.Filename)
	if !ok || !okName || name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	data := []byte(req.Content)
	var s string
	if err := json.Unmarshal(req.Content, &s); err == nil {
		data = []byte(s)
	}

	objectName := path.Join(h.cfg.ExplorerPrefix, dir, name)
	url, err := h.store.Upload(r.Context(), objectName, data, "application/json")
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Str("object", objectName).Msg("Failed to create JSON file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create JSON file")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file": map[string]any{
			"public_id": objectName,
			"url":       url,
			"bytes":     len(data),
		},
	})
}

type deleteFileRequest struct {
	ID string `json:"cloudinaryId" validate:"required"`
}

// DeleteFile handles DELETE /api/delete.
func (h *DocumentsHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	var req deleteFileRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No file id provided")
		return
	}
	h.delete(w, r, req.ID)
}

func (h *DocumentsHandler) delete(w http.ResponseWriter, r *http.Request, objectName string) {
	err := h.store.Delete(r.Context(), objectName)
	if errors.Is(err, gcs.ErrObjectNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Str("object", objectName).Msg("Failed to delete file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// cleanRelative normalizes a client supplied relative path. It rejects
// absolute paths and any attempt to climb out with "..".
func cleanRelative(p string) (string, bool) {
	p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" {
		return "", true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return path.Clean(p), true
}
