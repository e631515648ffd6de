package models

import (
	"time"
)

// DocumentStatus tracks where a document is in the processing pipeline.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusDone       DocumentStatus = "done"
	StatusError      DocumentStatus = "error"
)

// Document represents one ingested file and everything the pipeline derived from it.
// While status is "processing" the document is owned by the pipeline; every other
// reader treats it as read-only.
type Document struct {
	ID               string         `db:"id" json:"id"`
	Title            *string        `db:"title" json:"title"`
	Content          *string        `db:"content" json:"content,omitempty"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	FilePath         string         `db:"file_path" json:"file_path"`
	ThumbnailPath    *string        `db:"thumbnail_path" json:"thumbnail_path"`
	DocumentTypeID   *int           `db:"document_type_id" json:"document_type_id"`
	CorrespondentID  *int           `db:"correspondent_id" json:"correspondent_id"`
	CreatedDate      *time.Time     `db:"created_date" json:"created_date"`
	AddedDate        time.Time      `db:"added_date" json:"added_date"`
	ModifiedDate     time.Time      `db:"modified_date" json:"modified_date"`
	Status           DocumentStatus `db:"status" json:"status"`
	Embedding        []float32      `db:"embedding" json:"-"`
	PageCount        *int           `db:"page_count" json:"page_count"`
	FileSize         *int64         `db:"file_size" json:"file_size"`
	MimeType         *string        `db:"mime_type" json:"mime_type"`

	Tags []Tag `db:"-" json:"tags,omitempty"`
}

// Tag is a flat vocabulary entity, de-duplicated by slug.
type Tag struct {
	ID    int    `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Color string `db:"color" json:"color"`
	Slug  string `db:"slug" json:"slug"`
}

// DocumentType is a flat vocabulary entity, de-duplicated by slug.
type DocumentType struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// Correspondent is the sender/author vocabulary entity, de-duplicated by slug.
type Correspondent struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// CustomField is one extracted (name, value, type) triple attached to a document.
// Names are not unique per document.
type CustomField struct {
	ID         int    `db:"id" json:"id"`
	DocumentID string `db:"document_id" json:"document_id"`
	FieldName  string `db:"field_name" json:"field_name"`
	FieldValue string `db:"field_value" json:"field_value"`
	FieldType  string `db:"field_type" json:"field_type"`
}

// Field types recognised by the field extractor.
const (
	FieldTypeDate          = "date"
	FieldTypeAmount        = "amount"
	FieldTypeInvoiceNumber = "invoice_number"
	FieldTypeIBAN          = "iban"
	FieldTypeName          = "name"
	FieldTypeAddress       = "address"
	FieldTypeString        = "string"
)

// ProcessingLog is one append-only audit entry for a pipeline stage.
type ProcessingLog struct {
	ID         int       `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	Step       string    `db:"step" json:"step"`
	Status     string    `db:"status" json:"status"` // info | success | error
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ChatHistory records one question/answer exchange with its cited sources.
type ChatHistory struct {
	ID        int          `db:"id" json:"id"`
	Question  string       `db:"question" json:"question"`
	Answer    string       `db:"answer" json:"answer"`
	Sources   []ChatSource `db:"sources" json:"sources"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// ChatSource identifies one document a RAG answer was grounded on.
type ChatSource struct {
	DocID   string `json:"doc_id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ClassificationResult is the metadata suggested by the classifier for one document.
type ClassificationResult struct {
	Title         string   `json:"title"`
	Tags          []string `json:"tags"`
	DocumentType  string   `json:"document_type"`
	Correspondent string   `json:"correspondent"`
	Date          string   `json:"date"`
	Summary       string   `json:"summary"`
}

// ExtractedField is one structured value pulled out of document text.
type ExtractedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// FileInfo describes the stored original file.
type FileInfo struct {
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Pages    int    `json:"pages"`
}

// ScoredDocument pairs a document with a relevance score for search and RAG.
type ScoredDocument struct {
	Document Document
	Score    float64
}
