package core

import (
	"context"
	"io"

	"github.com/fahmykhattab/docuai/internal/models"
)

// DocumentFilter narrows and pages document listings.
type DocumentFilter struct {
	Page            int
	Size            int
	TagID           *int
	DocumentTypeID  *int
	CorrespondentID *int
	Status          string
	SortBy          string // added_date | modified_date | created_date | title
	SortOrder       string // asc | desc
}

// DashboardStats aggregates corpus-level counters for the dashboard endpoint.
type DashboardStats struct {
	TotalDocuments  int                `json:"total_documents"`
	ByStatus        map[string]int     `json:"by_status"`
	ByType          []NameCount        `json:"by_type"`
	ByMonth         []NameCount        `json:"by_month"`
	RecentDocuments []models.Document  `json:"recent_documents"`
	StorageUsed     int64              `json:"storage_used"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, int, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error
	DeleteDocument(ctx context.Context, id string) error

	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	UpdateTag(ctx context.Context, tag *models.Tag) error
	DeleteTag(ctx context.Context, id int) error
	TagsForDocument(ctx context.Context, documentID string) ([]models.Tag, error)
	AddDocumentTag(ctx context.Context, documentID string, tagID int) error
	ReplaceDocumentTags(ctx context.Context, documentID string, tagIDs []int) error

	ListDocumentTypes(ctx context.Context) ([]models.DocumentType, error)
	GetDocumentTypeBySlug(ctx context.Context, slug string) (*models.DocumentType, error)
	CreateDocumentType(ctx context.Context, dt *models.DocumentType) error
	UpdateDocumentType(ctx context.Context, dt *models.DocumentType) error
	DeleteDocumentType(ctx context.Context, id int) error

	ListCorrespondents(ctx context.Context) ([]models.Correspondent, error)
	GetCorrespondentBySlug(ctx context.Context, slug string) (*models.Correspondent, error)
	CreateCorrespondent(ctx context.Context, c *models.Correspondent) error
	UpdateCorrespondent(ctx context.Context, c *models.Correspondent) error
	DeleteCorrespondent(ctx context.Context, id int) error

	ListCustomFields(ctx context.Context, documentID string) ([]models.CustomField, error)
	ReplaceCustomFields(ctx context.Context, documentID string, fields []models.ExtractedField) error

	AddProcessingLog(ctx context.Context, documentID, step, status, message string) error
	ListProcessingLogs(ctx context.Context, documentID string) ([]models.ProcessingLog, error)

	// Search primitives. The scored variants page inside the database; the score-map
	// variants return the entire matching set for hybrid fusion in Go.
	SearchFullText(ctx context.Context, query string, limit, offset int) ([]models.ScoredDocument, int, error)
	SearchSemantic(ctx context.Context, embedding []float32, limit, offset int) ([]models.ScoredDocument, int, error)
	FullTextScores(ctx context.Context, query string) (map[string]float64, error)
	SemanticScores(ctx context.Context, embedding []float32) (map[string]float64, error)
	GetDocumentsByIDs(ctx context.Context, ids []string) (map[string]models.Document, error)
	NearestDocuments(ctx context.Context, embedding []float32, limit int) ([]models.ScoredDocument, error)

	AddChatHistory(ctx context.Context, h *models.ChatHistory) error
	ListChatHistory(ctx context.Context, limit int) ([]models.ChatHistory, error)

	DashboardStats(ctx context.Context) (*DashboardStats, error)

	Close() error
}

// BlobStore abstracts durable storage for originals and thumbnails, addressed by
// a store-relative path. The disk backend resolves paths under the media root;
// the S3 backend uses them as object keys.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error

	// LocalPath materializes the blob as a file on the local filesystem for
	// tools that need a real path (OCR, thumbnailing). cleanup is never nil.
	LocalPath(ctx context.Context, path string) (local string, cleanup func(), err error)
}
