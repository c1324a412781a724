package documents

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockDriver implements StorageDriver for testing
type MockDriver struct {
	SavedKey       string
	SavedBody      []byte
	SaveErr        error
	GenerateURLErr error
	DeleteCalled   bool
	DeleteKey      string
}

func (m *MockDriver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.SavedKey = key
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.SavedBody = content
	return nil
}

func (m *MockDriver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(bytes.NewReader(m.SavedBody)), "application/pdf", nil
}

func (m *MockDriver) Delete(ctx context.Context, key string) error {
	m.DeleteCalled = true
	m.DeleteKey = key
	return nil
}

func (m *MockDriver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if m.GenerateURLErr != nil {
		return "", m.GenerateURLErr
	}
	return "/api/documents/" + key, nil
}

func setupDocumentsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	return db
}

func resumeUpload() UploadInput {
	content := []byte("pdf bytes")
	return UploadInput{
		Filename:   "resume.pdf",
		Reader:     bytes.NewReader(content),
		Size:       int64(len(content)),
		MimeType:   "application/pdf",
		Kind:       DocumentKindResume,
		EntityType: "candidate",
		EntityID:   "c-1",
		UploadedBy: "u-recruiter",
	}
}

func TestDocumentServiceUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("saves content and records metadata", func(t *testing.T) {
		mock := &MockDriver{}
		db := setupDocumentsDB(t)
		service := NewDocumentService(mock, db)
		assert.NoError(t, service.Migrate())

		doc, err := service.Upload(ctx, resumeUpload())
		assert.NoError(t, err)
		assert.Equal(t, "resume.pdf", doc.Name)
		assert.Equal(t, DocumentKindResume, doc.Kind)
		assert.True(t, strings.HasSuffix(doc.Key, ".pdf"))
		assert.Equal(t, "/api/documents/"+doc.Key, doc.URL)
		assert.Equal(t, []byte("pdf bytes"), mock.SavedBody)

		var count int64
		assert.NoError(t, db.Model(&Document{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("requires an entity reference", func(t *testing.T) {
		service := NewDocumentService(&MockDriver{}, nil)
		in := resumeUpload()
		in.EntityType = ""
		_, err := service.Upload(ctx, in)
		assert.ErrorContains(t, err, "entityType and entityId are required")
	})

	t.Run("defaults mime type and kind", func(t *testing.T) {
		mock := &MockDriver{}
		service := NewDocumentService(mock, nil)

		in := resumeUpload()
		in.MimeType = ""
		in.Kind = ""

		doc, err := service.Upload(ctx, in)
		assert.NoError(t, err)
		assert.Equal(t, "application/octet-stream", doc.MimeType)
		assert.Equal(t, DocumentKindOther, doc.Kind)
	})

	t.Run("url failure cleans up the stored file", func(t *testing.T) {
		mock := &MockDriver{GenerateURLErr: io.ErrUnexpectedEOF}
		service := NewDocumentService(mock, nil)

		_, err := service.Upload(ctx, resumeUpload())
		assert.Error(t, err)
		assert.True(t, mock.DeleteCalled)
		assert.Equal(t, mock.SavedKey, mock.DeleteKey)
	})
}

func TestDocumentServiceByEntity(t *testing.T) {
	ctx := context.Background()
	mock := &MockDriver{}
	db := setupDocumentsDB(t)
	service := NewDocumentService(mock, db)
	assert.NoError(t, service.Migrate())

	_, err := service.Upload(ctx, resumeUpload())
	assert.NoError(t, err)

	other := resumeUpload()
	other.EntityID = "c-2"
	other.Filename = "contract.pdf"
	other.Kind = DocumentKindContract
	_, err = service.Upload(ctx, other)
	assert.NoError(t, err)

	docs, err := service.ByEntity(ctx, "candidate", "c-1")
	assert.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, "resume.pdf", docs[0].Name)

	docs, err = service.ByEntity(ctx, "candidate", "c-99")
	assert.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentServiceDownload(t *testing.T) {
	mock := &MockDriver{SavedBody: []byte("stored")}
	service := NewDocumentService(mock, nil)

	reader, contentType, err := service.Download(context.Background(), "any-key")
	assert.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "application/pdf", contentType)
	content, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Equal(t, []byte("stored"), content)
}
