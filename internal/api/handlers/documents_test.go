package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/imagexbot/internal/gcs"
)

var docsNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newDocsRoutes(store gcs.ObjectStore) Routes {
	return Routes{Documents: NewDocumentsHandler(store, DocumentsConfig{Now: func() time.Time { return docsNow }})}
}

func TestCreateUploadURL(t *testing.T) {
	store := gcs.NewMemoryStore(func() time.Time { return docsNow })

	rec := serve(t, newDocsRoutes(store), http.MethodPost, "/api/documents/upload-url", map[string]string{
		"filename": "../../May Statement.pdf",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)

	objectName := body["public_id"].(string)
	assert.True(t, strings.HasPrefix(objectName, "uploads/2025/06/01/"), objectName)
	assert.True(t, strings.HasSuffix(objectName, "-May Statement.pdf"), objectName)
	assert.NotContains(t, objectName, "..")
	assert.Equal(t, "memory://"+objectName, body["url"])
	assert.Equal(t, "application/pdf", body["content_type"])
	assert.Contains(t, body["upload_url"], "memory://"+objectName+"?")
}

func TestCreateUploadURL_RequiresFilename(t *testing.T) {
	rec := serve(t, newDocsRoutes(gcs.NewMemoryStore(nil)), http.MethodPost, "/api/documents/upload-url", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePDF(t *testing.T) {
	store := gcs.NewMemoryStore(func() time.Time { return docsNow })
	store.Put("uploads/a.pdf", []byte("%PDF"), "application/pdf", docsNow)
	rt := newDocsRoutes(store)

	rec := serve(t, rt, http.MethodDelete, "/delete-pdf", map[string]string{"public_id": "uploads/a.pdf"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.False(t, store.Has("uploads/a.pdf"))

	rec = serve(t, rt, http.MethodDelete, "/delete-pdf", map[string]string{"public_id": "uploads/a.pdf"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, rt, http.MethodDelete, "/delete-pdf", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteFile_StoreFailure(t *testing.T) {
	store := gcs.NewMemoryStore(func() time.Time { return docsNow })
	store.Put("file-explorer/a.json", []byte("{}"), "application/json", docsNow)
	store.DeleteErr = errors.New("permission denied")

	rec := serve(t, newDocsRoutes(store), http.MethodDelete, "/api/delete", map[string]string{"cloudinaryId": "file-explorer/a.json"}, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to delete item", decodeBody(t, rec)["message"])
}

func TestListFiles(t *testing.T) {
	store := gcs.NewMemoryStore(func() time.Time { return docsNow })
	store.Put("file-explorer/reports/may.json", []byte(`{"a":1}`), "application/json", docsNow)
	store.Put("file-explorer/reports/", nil, "", docsNow)
	store.Put("file-explorer/notes.txt", []byte("hi"), "text/plain", docsNow)
	store.Put("uploads/secret.pdf", []byte("%PDF"), "application/pdf", docsNow)
	rt := newDocsRoutes(store)

	rec := serve(t, rt, http.MethodGet, "/api/files?path=reports", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := decodeBody(t, rec)["files"].([]any)
	require.Len(t, files, 1)
	f := files[0].(map[string]any)
	assert.Equal(t, "file-explorer/reports/may.json", f["id"])
	assert.Equal(t, "json", f["format"])
	assert.Equal(t, 7.0, f["size"])

	rec = serve(t, rt, http.MethodGet, "/api/files", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["files"], 2)

	rec = serve(t, rt, http.MethodGet, "/api/files?path=../uploads", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantObject string
		wantData   string
	}{
		{
			name:       "string content",
			body:       `{"filename":"a.json","content":"{\"k\":1}","path":"reports"}`,
			wantStatus: http.StatusOK,
			wantObject: "file-explorer/reports/a.json",
			wantData:   `{"k":1}`,
		},
		{
			name:       "object content",
			body:       `{"filename":"b.json","content":{"k":[1,2]}}`,
			wantStatus: http.StatusOK,
			wantObject: "file-explorer/b.json",
			wantData:   `{"k":[1,2]}`,
		},
		{name: "missing content", body: `{"filename":"c.json"}`, wantStatus: http.StatusBadRequest},
		{name: "escaping path", body: `{"filename":"d.json","content":"{}","path":"../uploads"}`, wantStatus: http.StatusBadRequest},
		{name: "escaping filename", body: `{"filename":"../d.json","content":"{}"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := gcs.NewMemoryStore(func() time.Time { return docsNow })

			rec := serve(t, newDocsRoutes(store), http.MethodPost, "/api/create-json", tt.body, nil)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := decodeBody(t, rec)
			assert.Equal(t, true, body["success"])
			assert.Equal(t, tt.wantObject, body["file"].(map[string]any)["public_id"])

			data, err := store.Download(context.Background(), tt.wantObject)
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, string(data))
		})
	}
}
