package db

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

// Search primitives. Full-text ranking uses Postgres ts_rank over an english
// tsvector; semantic ranking uses pgvector cosine distance (<=> operator).

const ftsPredicate = `to_tsvector('english', coalesce(content, '')) @@ plainto_tsquery('english', $1)`
const ftsRank = `ts_rank(to_tsvector('english', coalesce(content, '')), plainto_tsquery('english', $1))`

func (c *DatabaseClient) SearchFullText(ctx context.Context, query string, limit, offset int) ([]models.ScoredDocument, int, error) {
	q := `SELECT ` + documentColumns + `, ` + ftsRank + ` AS rank
		FROM documents
		WHERE ` + ftsPredicate + `
		ORDER BY rank DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := c.db.QueryContext(ctx, q, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.ScoredDocument
	for rows.Next() {
		var (
			d    models.Document
			emb  nullVector
			rank float64
		)
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Content, &d.OriginalFilename, &d.FilePath, &d.ThumbnailPath,
			&d.DocumentTypeID, &d.CorrespondentID, &d.CreatedDate, &d.AddedDate, &d.ModifiedDate,
			&d.Status, &emb, &d.PageCount, &d.FileSize, &d.MimeType, &rank,
		); err != nil {
			return nil, 0, err
		}
		d.Embedding = emb.slice()
		out = append(out, models.ScoredDocument{Document: d, Score: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := c.db.QueryRowContext(ctx,
		`SELECT count(id) FROM documents WHERE `+ftsPredicate, query).Scan(&total); err != nil {
		return nil, 0, err
	}
	if err := c.attachScoredTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (c *DatabaseClient) SearchSemantic(ctx context.Context, embedding []float32, limit, offset int) ([]models.ScoredDocument, int, error) {
	vec := pgvector.NewVector(embedding)
	q := `SELECT ` + documentColumns + `, embedding <=> $1 AS distance
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY distance, id
		LIMIT $2 OFFSET $3`

	rows, err := c.db.QueryContext(ctx, q, vec, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.ScoredDocument
	for rows.Next() {
		var (
			d        models.Document
			emb      nullVector
			distance float64
		)
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Content, &d.OriginalFilename, &d.FilePath, &d.ThumbnailPath,
			&d.DocumentTypeID, &d.CorrespondentID, &d.CreatedDate, &d.AddedDate, &d.ModifiedDate,
			&d.Status, &emb, &d.PageCount, &d.FileSize, &d.MimeType, &distance,
		); err != nil {
			return nil, 0, err
		}
		d.Embedding = emb.slice()
		out = append(out, models.ScoredDocument{Document: d, Score: 1 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := c.db.QueryRowContext(ctx,
		`SELECT count(id) FROM documents WHERE embedding IS NOT NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if err := c.attachScoredTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FullTextScores returns the rank for every matching document, not just a page.
func (c *DatabaseClient) FullTextScores(ctx context.Context, query string) (map[string]float64, error) {
	q := `SELECT id, ` + ftsRank + ` FROM documents WHERE ` + ftsPredicate
	rows, err := c.db.QueryContext(ctx, q, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := map[string]float64{}
	for rows.Next() {
		var (
			id   string
			rank float64
		)
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		scores[id] = rank
	}
	return scores, rows.Err()
}

// SemanticScores returns 1 - cosine distance for every embedded document.
func (c *DatabaseClient) SemanticScores(ctx context.Context, embedding []float32) (map[string]float64, error) {
	vec := pgvector.NewVector(embedding)
	const q = `SELECT id, embedding <=> $1 FROM documents WHERE embedding IS NOT NULL`
	rows, err := c.db.QueryContext(ctx, q, vec)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := map[string]float64{}
	for rows.Next() {
		var (
			id       string
			distance float64
		)
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, err
		}
		scores[id] = 1 - distance
	}
	return scores, rows.Err()
}

// NearestDocuments finds the top-k documents by cosine similarity for RAG.
func (c *DatabaseClient) NearestDocuments(ctx context.Context, embedding []float32, limit int) ([]models.ScoredDocument, error) {
	vec := pgvector.NewVector(embedding)
	q := `SELECT ` + documentColumns + `, embedding <=> $1 AS distance
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2`

	rows, err := c.db.QueryContext(ctx, q, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScoredDocument
	for rows.Next() {
		var (
			d        models.Document
			emb      nullVector
			distance float64
		)
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Content, &d.OriginalFilename, &d.FilePath, &d.ThumbnailPath,
			&d.DocumentTypeID, &d.CorrespondentID, &d.CreatedDate, &d.AddedDate, &d.ModifiedDate,
			&d.Status, &emb, &d.PageCount, &d.FileSize, &d.MimeType, &distance,
		); err != nil {
			return nil, err
		}
		d.Embedding = emb.slice()
		out = append(out, models.ScoredDocument{Document: d, Score: 1 - distance})
	}
	return out, rows.Err()
}

func (c *DatabaseClient) attachScoredTags(ctx context.Context, scored []models.ScoredDocument) error {
	docs := make([]models.Document, len(scored))
	for i := range scored {
		docs[i] = scored[i].Document
	}
	if err := c.attachTags(ctx, docs); err != nil {
		return err
	}
	for i := range scored {
		scored[i].Document.Tags = docs[i].Tags
	}
	return nil
}

func (c *DatabaseClient) DashboardStats(ctx context.Context) (*core.DashboardStats, error) {
	stats := &core.DashboardStats{ByStatus: map[string]int{}}

	if err := c.db.QueryRowContext(ctx, `SELECT count(id) FROM documents`).Scan(&stats.TotalDocuments); err != nil {
		return nil, err
	}

	if err := c.db.QueryRowContext(ctx, `SELECT coalesce(sum(file_size), 0) FROM documents`).Scan(&stats.StorageUsed); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT status, count(id) FROM documents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = c.db.QueryContext(ctx, `
		SELECT dt.name, count(d.id)
		FROM document_types dt
		JOIN documents d ON d.document_type_id = dt.id
		GROUP BY dt.name
		ORDER BY count(d.id) DESC
		LIMIT 10`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var nc core.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByType = append(stats.ByType, nc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = c.db.QueryContext(ctx, `
		SELECT to_char(added_date, 'YYYY-MM') AS month, count(id)
		FROM documents
		GROUP BY to_char(added_date, 'YYYY-MM')
		ORDER BY month DESC
		LIMIT 12`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var nc core.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByMonth = append(stats.ByMonth, nc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent, _, err := c.ListDocuments(ctx, core.DocumentFilter{Page: 1, Size: 10, SortBy: "added_date", SortOrder: "desc"})
	if err != nil {
		return nil, err
	}
	stats.RecentDocuments = recent

	return stats, nil
}
