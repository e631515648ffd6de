package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fahmykhattab/docuai/internal/config"
	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const documentColumns = `id, title, content, original_filename, file_path, thumbnail_path,
	document_type_id, correspondent_id, created_date, added_date, modified_date,
	status, embedding, page_count, file_size, mime_type`

type rowScanner interface {
	Scan(dest ...any) error
}

// nullVector scans an embedding column that may be NULL; pgvector.Vector alone
// rejects NULL and documents have no embedding until the pipeline sets one.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func (n *nullVector) slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vec.Slice()
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d   models.Document
		emb nullVector
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Content, &d.OriginalFilename, &d.FilePath, &d.ThumbnailPath,
		&d.DocumentTypeID, &d.CorrespondentID, &d.CreatedDate, &d.AddedDate, &d.ModifiedDate,
		&d.Status, &emb, &d.PageCount, &d.FileSize, &d.MimeType,
	)
	if err != nil {
		return nil, err
	}
	d.Embedding = emb.slice()
	return &d, nil
}

// embeddingValue maps a nil slice to SQL NULL so that "no embedding yet" is
// distinguishable from the zero vector.
func embeddingValue(v []float32) any {
	if v == nil {
		return nil
	}
	return pgvector.NewVector(v)
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, title, content, original_filename, file_path, thumbnail_path,
			 document_type_id, correspondent_id, created_date, status,
			 embedding, page_count, file_size, mime_type)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Title, doc.Content, doc.OriginalFilename, doc.FilePath, doc.ThumbnailPath,
		doc.DocumentTypeID, doc.CorrespondentID, doc.CreatedDate, doc.Status,
		embeddingValue(doc.Embedding), doc.PageCount, doc.FileSize, doc.MimeType)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tags, err := c.TagsForDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Tags = tags
	return doc, nil
}

var sortColumns = map[string]string{
	"added_date":    "added_date",
	"modified_date": "modified_date",
	"created_date":  "created_date",
	"title":         "title",
}

func (c *DatabaseClient) ListDocuments(ctx context.Context, f core.DocumentFilter) ([]models.Document, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.TagID != nil {
		where = append(where, "id IN (SELECT document_id FROM document_tags WHERE tag_id = "+arg(*f.TagID)+")")
	}
	if f.DocumentTypeID != nil {
		where = append(where, "document_type_id = "+arg(*f.DocumentTypeID))
	}
	if f.CorrespondentID != nil {
		where = append(where, "correspondent_id = "+arg(*f.CorrespondentID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := c.db.QueryRowContext(ctx, "SELECT count(id) FROM documents WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := sortColumns[f.SortBy]
	if !ok {
		sortCol = "added_date"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	if f.Size <= 0 {
		f.Size = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	q := "SELECT " + documentColumns + " FROM documents WHERE " + cond +
		" ORDER BY " + sortCol + " " + dir + " NULLS LAST" +
		" LIMIT " + arg(f.Size) + " OFFSET " + arg((f.Page-1)*f.Size)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := c.attachTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateDocument persists every pipeline-mutable column of the document.
func (c *DatabaseClient) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		UPDATE documents
		SET title = $2, content = $3, thumbnail_path = $4, document_type_id = $5,
			correspondent_id = $6, created_date = $7, status = $8, embedding = $9,
			page_count = $10, file_size = $11, mime_type = $12, modified_date = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Title, doc.Content, doc.ThumbnailPath, doc.DocumentTypeID,
		doc.CorrespondentID, doc.CreatedDate, doc.Status, embeddingValue(doc.Embedding),
		doc.PageCount, doc.FileSize, doc.MimeType)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", doc.ID)
	}
	return nil
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	const q = `
		UPDATE documents
		SET status = $2, modified_date = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) GetDocumentsByIDs(ctx context.Context, ids []string) (map[string]models.Document, error) {
	out := make(map[string]models.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = ANY($1)`
	rows, err := c.db.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := c.attachTags(ctx, docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

// attachTags loads the tags for a slice of documents in one query.
func (c *DatabaseClient) attachTags(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	const q = `
		SELECT dt.document_id, t.id, t.name, t.color, t.slug
		FROM document_tags dt
		JOIN tags t ON t.id = dt.tag_id
		WHERE dt.document_id = ANY($1)
		ORDER BY t.name
	`
	rows, err := c.db.QueryContext(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	byDoc := map[string][]models.Tag{}
	for rows.Next() {
		var (
			docID string
			t     models.Tag
		)
		if err := rows.Scan(&docID, &t.ID, &t.Name, &t.Color, &t.Slug); err != nil {
			return err
		}
		byDoc[docID] = append(byDoc[docID], t)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range docs {
		docs[i].Tags = byDoc[docs[i].ID]
	}
	return nil
}
