package db

import (
	"context"
	"encoding/json"

	"github.com/fahmykhattab/docuai/internal/models"
)

func (c *DatabaseClient) ListCustomFields(ctx context.Context, documentID string) ([]models.CustomField, error) {
	const q = `
		SELECT id, document_id, field_name, field_value, field_type
		FROM custom_fields
		WHERE document_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CustomField
	for rows.Next() {
		var f models.CustomField
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.FieldName, &f.FieldValue, &f.FieldType); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ReplaceCustomFields clears the document's fields and inserts the new set in
// one transaction. On a document with no fields the delete is a no-op, so the
// operation is safe for both first runs and reprocessing, including task
// redelivery after a worker crash.
func (c *DatabaseClient) ReplaceCustomFields(ctx context.Context, documentID string, fields []models.ExtractedField) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_fields WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const q = `
		INSERT INTO custom_fields (document_id, field_name, field_value, field_type)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, f := range fields {
		ftype := f.Type
		if ftype == "" {
			ftype = models.FieldTypeString
		}
		if _, err := stmt.ExecContext(ctx, documentID, f.Name, f.Value, ftype); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) AddProcessingLog(ctx context.Context, documentID, step, status, message string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO processing_logs (document_id, step, status, message) VALUES ($1, $2, $3, $4)`,
		documentID, step, status, message)
	return err
}

func (c *DatabaseClient) ListProcessingLogs(ctx context.Context, documentID string) ([]models.ProcessingLog, error) {
	const q = `
		SELECT id, document_id, step, status, message, created_at
		FROM processing_logs
		WHERE document_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProcessingLog
	for rows.Next() {
		var l models.ProcessingLog
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Step, &l.Status, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) AddChatHistory(ctx context.Context, h *models.ChatHistory) error {
	sources, err := json.Marshal(h.Sources)
	if err != nil {
		return err
	}
	return c.db.QueryRowContext(ctx,
		`INSERT INTO chat_history (question, answer, sources) VALUES ($1, $2, $3) RETURNING id, created_at`,
		h.Question, h.Answer, sources).Scan(&h.ID, &h.CreatedAt)
}

func (c *DatabaseClient) ListChatHistory(ctx context.Context, limit int) ([]models.ChatHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, question, answer, sources, created_at
		FROM chat_history
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := c.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatHistory
	for rows.Next() {
		var (
			h   models.ChatHistory
			raw []byte
		)
		if err := rows.Scan(&h.ID, &h.Question, &h.Answer, &raw, &h.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &h.Sources)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
