package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentKind classifies what a stored file is in HR terms.
type DocumentKind string

const (
	DocumentKindResume      DocumentKind = "RESUME"
	DocumentKindContract    DocumentKind = "CONTRACT"
	DocumentKindOfferLetter DocumentKind = "OFFER_LETTER"
	DocumentKindOther       DocumentKind = "OTHER"
)

// ParseDocumentKind maps a client-supplied kind string to a declared
// constant. Anything unrecognized, including the empty string, becomes
// OTHER so arbitrary input never reaches the kind column.
func ParseDocumentKind(s string) DocumentKind {
	switch kind := DocumentKind(s); kind {
	case DocumentKindResume, DocumentKindContract, DocumentKindOfferLetter, DocumentKindOther:
		return kind
	default:
		return DocumentKindOther
	}
}

// Document is the persisted metadata of a stored file. The binary content
// lives in the storage driver under Key; this row ties it to the business
// entity it belongs to.
type Document struct {
	ID         uuid.UUID    `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	Name       string       `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Key        string       `gorm:"type:varchar(255);column:key;not null;uniqueIndex" json:"key"`
	URL        string       `gorm:"type:text;column:url;not null" json:"url"`
	Size       int64        `gorm:"type:bigint;column:size;not null" json:"size"`
	MimeType   string       `gorm:"type:varchar(100);column:mime_type;not null" json:"mimeType"`
	Kind       DocumentKind `gorm:"type:varchar(20);column:kind;not null" json:"kind"`
	EntityType string       `gorm:"type:varchar(50);column:entity_type;not null;index:idx_documents_entity" json:"entityType"`
	EntityID   string       `gorm:"type:varchar(100);column:entity_id;not null;index:idx_documents_entity" json:"entityId"`
	UploadedBy string       `gorm:"type:varchar(100);column:uploaded_by" json:"uploadedBy,omitempty"`
	CreatedAt  time.Time    `gorm:"type:timestamptz;column:created_at;not null" json:"createdAt"`
}

func (d *Document) TableName() string {
	return "documents"
}

// BeforeCreate is a GORM hook that is triggered before a new record is created.
func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	d.CreatedAt = time.Now().UTC()
	return
}
