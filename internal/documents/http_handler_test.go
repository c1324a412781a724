package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocumentKind(t *testing.T) {
	assert.Equal(t, DocumentKindResume, ParseDocumentKind("RESUME"))
	assert.Equal(t, DocumentKindContract, ParseDocumentKind("CONTRACT"))
	assert.Equal(t, DocumentKindOther, ParseDocumentKind(""))
	assert.Equal(t, DocumentKindOther, ParseDocumentKind("resume"))
	assert.Equal(t, DocumentKindOther, ParseDocumentKind("'); DROP TABLE documents;--"))
}

func multipartUpload(t *testing.T, kind string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "resume.pdf")
	assert.NoError(t, err)
	_, err = part.Write([]byte("pdf bytes"))
	assert.NoError(t, err)
	assert.NoError(t, w.WriteField("entityType", "candidate"))
	assert.NoError(t, w.WriteField("entityId", "c-1"))
	if kind != "" {
		assert.NoError(t, w.WriteField("kind", kind))
	}
	assert.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHTTPHandlerUploadKind(t *testing.T) {
	db := setupDocumentsDB(t)
	service := NewDocumentService(&MockDriver{}, db)
	assert.NoError(t, service.Migrate())
	handler := NewHTTPHandler(service)

	upload := func(kind string) Document {
		body, contentType := multipartUpload(t, kind)
		req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.Upload(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var doc Document
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		return doc
	}

	t.Run("declared kind is preserved", func(t *testing.T) {
		assert.Equal(t, DocumentKindContract, upload("CONTRACT").Kind)
	})

	t.Run("unknown kind is stored as OTHER", func(t *testing.T) {
		doc := upload("SOMETHING ARBITRARY")
		assert.Equal(t, DocumentKindOther, doc.Kind)

		var stored Document
		assert.NoError(t, db.First(&stored, "id = ?", doc.ID).Error)
		assert.Equal(t, DocumentKindOther, stored.Kind)
	})
}
