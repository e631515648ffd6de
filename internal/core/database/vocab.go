package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fahmykhattab/docuai/internal/models"
)

// Implementing the db interface for the slug-deduplicated vocabulary entities.

func (c *DatabaseClient) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, color, slug FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Slug); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var t models.Tag
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, color, slug FROM tags WHERE slug = $1`, slug).
		Scan(&t.ID, &t.Name, &t.Color, &t.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *DatabaseClient) CreateTag(ctx context.Context, tag *models.Tag) error {
	if tag == nil {
		return errors.New("nil tag")
	}
	if tag.Color == "" {
		tag.Color = "#3b82f6"
	}
	return c.db.QueryRowContext(ctx,
		`INSERT INTO tags (name, color, slug) VALUES ($1, $2, $3) RETURNING id`,
		tag.Name, tag.Color, tag.Slug).Scan(&tag.ID)
}

func (c *DatabaseClient) UpdateTag(ctx context.Context, tag *models.Tag) error {
	if tag == nil {
		return errors.New("nil tag")
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE tags SET name = $2, color = $3, slug = $4 WHERE id = $1`,
		tag.ID, tag.Name, tag.Color, tag.Slug)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.New("tag not found")
	}
	return nil
}

func (c *DatabaseClient) DeleteTag(ctx context.Context, id int) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	return err
}

func (c *DatabaseClient) TagsForDocument(ctx context.Context, documentID string) ([]models.Tag, error) {
	const q = `
		SELECT t.id, t.name, t.color, t.slug
		FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id = $1
		ORDER BY t.name
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Slug); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddDocumentTag associates a tag with a document. Re-adding an existing pair
// is a no-op, which keeps classification reruns from duplicating associations.
func (c *DatabaseClient) AddDocumentTag(ctx context.Context, documentID string, tagID int) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		documentID, tagID)
	return err
}

func (c *DatabaseClient) ReplaceDocumentTags(ctx context.Context, documentID string, tagIDs []int) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			documentID, tagID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) ListDocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, slug FROM document_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentType
	for rows.Next() {
		var dt models.DocumentType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Slug); err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetDocumentTypeBySlug(ctx context.Context, slug string) (*models.DocumentType, error) {
	var dt models.DocumentType
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM document_types WHERE slug = $1`, slug).
		Scan(&dt.ID, &dt.Name, &dt.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dt, nil
}

func (c *DatabaseClient) CreateDocumentType(ctx context.Context, dt *models.DocumentType) error {
	if dt == nil {
		return errors.New("nil document type")
	}
	return c.db.QueryRowContext(ctx,
		`INSERT INTO document_types (name, slug) VALUES ($1, $2) RETURNING id`,
		dt.Name, dt.Slug).Scan(&dt.ID)
}

func (c *DatabaseClient) UpdateDocumentType(ctx context.Context, dt *models.DocumentType) error {
	if dt == nil {
		return errors.New("nil document type")
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE document_types SET name = $2, slug = $3 WHERE id = $1`,
		dt.ID, dt.Name, dt.Slug)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.New("document type not found")
	}
	return nil
}

func (c *DatabaseClient) DeleteDocumentType(ctx context.Context, id int) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM document_types WHERE id = $1`, id)
	return err
}

func (c *DatabaseClient) ListCorrespondents(ctx context.Context) ([]models.Correspondent, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, slug FROM correspondents ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Correspondent
	for rows.Next() {
		var co models.Correspondent
		if err := rows.Scan(&co.ID, &co.Name, &co.Slug); err != nil {
			return nil, err
		}
		out = append(out, co)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetCorrespondentBySlug(ctx context.Context, slug string) (*models.Correspondent, error) {
	var co models.Correspondent
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM correspondents WHERE slug = $1`, slug).
		Scan(&co.ID, &co.Name, &co.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (c *DatabaseClient) CreateCorrespondent(ctx context.Context, co *models.Correspondent) error {
	if co == nil {
		return errors.New("nil correspondent")
	}
	return c.db.QueryRowContext(ctx,
		`INSERT INTO correspondents (name, slug) VALUES ($1, $2) RETURNING id`,
		co.Name, co.Slug).Scan(&co.ID)
}

func (c *DatabaseClient) UpdateCorrespondent(ctx context.Context, co *models.Correspondent) error {
	if co == nil {
		return errors.New("nil correspondent")
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE correspondents SET name = $2, slug = $3 WHERE id = $1`,
		co.ID, co.Name, co.Slug)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.New("correspondent not found")
	}
	return nil
}

func (c *DatabaseClient) DeleteCorrespondent(ctx context.Context, id int) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM correspondents WHERE id = $1`, id)
	return err
}
