package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentService coordinates file storage and document metadata. The db may
// be nil, in which case metadata is not recorded (used by tests exercising
// only the storage path).
type DocumentService struct {
	driver StorageDriver
	db     *gorm.DB
}

func NewDocumentService(driver StorageDriver, db *gorm.DB) *DocumentService {
	return &DocumentService{driver: driver, db: db}
}

// Migrate creates or updates the documents table.
func (s *DocumentService) Migrate() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

// UploadInput carries the parameters of a document upload.
type UploadInput struct {
	Filename   string
	Reader     io.Reader
	Size       int64
	MimeType   string
	Kind       DocumentKind
	EntityType string
	EntityID   string
	UploadedBy string
}

// Upload saves the file via the driver and records its metadata.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*Document, error) {
	if in.EntityType == "" || in.EntityID == "" {
		return nil, fmt.Errorf("entityType and entityId are required")
	}
	mime := in.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	kind := in.Kind
	if kind == "" {
		kind = DocumentKindOther
	}

	id := uuid.New()
	key := fmt.Sprintf("%s%s", id.String(), filepath.Ext(in.Filename))

	if err := s.driver.Save(ctx, key, in.Reader, mime); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned document", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	doc := &Document{
		ID:         id,
		Name:       in.Filename,
		Key:        key,
		URL:        url,
		Size:       in.Size,
		MimeType:   mime,
		Kind:       kind,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		UploadedBy: in.UploadedBy,
	}

	if s.db != nil {
		if result := s.db.WithContext(ctx).Create(doc); result.Error != nil {
			if delErr := s.driver.Delete(ctx, key); delErr != nil {
				slog.WarnContext(ctx, "failed to cleanup orphaned document", "key", key, "error", delErr)
			}
			return nil, fmt.Errorf("failed to record document metadata: %w", result.Error)
		}
	}

	slog.InfoContext(ctx, "document uploaded",
		"id", id,
		"key", key,
		"kind", kind,
		"entity_type", in.EntityType,
		"entity_id", in.EntityID,
	)
	return doc, nil
}

// Download retrieves the file content and its MIME type
func (s *DocumentService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.driver.Get(ctx, key)
}

// ByEntity returns the document metadata recorded for a business entity.
func (s *DocumentService) ByEntity(ctx context.Context, entityType, entityID string) ([]Document, error) {
	if s.db == nil {
		return []Document{}, nil
	}
	var docs []Document
	result := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Find(&docs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list documents: %w", result.Error)
	}
	return docs, nil
}
