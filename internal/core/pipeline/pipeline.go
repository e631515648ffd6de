// Package pipeline drives one document through the extraction stages:
// OCR, classification, field extraction, embedding and thumbnailing.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/embeddings"
	"github.com/fahmykhattab/docuai/internal/models"
)

// Texts longer than this are chunked and mean-pooled instead of being embedded
// in one shot.
const (
	embedChunkSize    = 2000
	embedChunkOverlap = 200
)

// stage is one ordered unit of work in a pipeline run. A fatal stage aborts
// the run on failure; non-fatal stages log and continue.
type stage struct {
	name  string
	fatal bool
	fn    func(ctx context.Context) (string, error)
}

type Orchestrator struct {
	db           core.DbClient
	blobs        core.BlobStore
	extractor    core.TextExtractor
	classifier   core.Classifier
	fields       core.FieldExtractor
	embedder     core.Embedder
	thumbs       core.Thumbnailer
	thumbnailDir string
}

func NewOrchestrator(
	db core.DbClient,
	blobs core.BlobStore,
	extractor core.TextExtractor,
	classifier core.Classifier,
	fields core.FieldExtractor,
	embedder core.Embedder,
	thumbs core.Thumbnailer,
	thumbnailDir string,
) *Orchestrator {
	return &Orchestrator{
		db:           db,
		blobs:        blobs,
		extractor:    extractor,
		classifier:   classifier,
		fields:       fields,
		embedder:     embedder,
		thumbs:       thumbs,
		thumbnailDir: thumbnailDir,
	}
}

// Run executes the full pipeline for one document. The returned error is
// non-nil only for fatal failures, which the task queue uses to retry.
func (o *Orchestrator) Run(ctx context.Context, documentID string) error {
	doc, err := o.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc == nil {
		log.Printf("pipeline: document %s not found, dropping task", documentID)
		return nil
	}

	doc.Status = models.StatusProcessing
	if err := o.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	o.logStep(ctx, doc.ID, "start", "info", "Processing started")

	stages := []stage{
		{name: "ocr", fatal: true, fn: func(ctx context.Context) (string, error) {
			return o.extractText(ctx, doc)
		}},
		{name: "classify", fn: func(ctx context.Context) (string, error) {
			return o.classify(ctx, doc)
		}},
		{name: "fields", fn: func(ctx context.Context) (string, error) {
			return o.extractFields(ctx, doc)
		}},
		{name: "embeddings", fn: func(ctx context.Context) (string, error) {
			return o.embed(ctx, doc)
		}},
		{name: "thumbnail", fn: func(ctx context.Context) (string, error) {
			return o.thumbnail(ctx, doc)
		}},
	}

	return o.execute(ctx, doc, stages, "complete", "Processing complete")
}

// Rerun repeats the AI stages against already-stored text, re-running OCR only
// when no text was stored. Unlike a first run, a failed re-OCR is not fatal.
func (o *Orchestrator) Rerun(ctx context.Context, documentID string) error {
	doc, err := o.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc == nil {
		log.Printf("pipeline: document %s not found, dropping task", documentID)
		return nil
	}

	doc.Status = models.StatusProcessing
	if err := o.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	o.logStep(ctx, doc.ID, "reprocess_start", "info", "Reprocessing started")

	stages := []stage{}
	if doc.Content == nil || strings.TrimSpace(*doc.Content) == "" {
		stages = append(stages, stage{name: "reocr", fn: func(ctx context.Context) (string, error) {
			return o.extractText(ctx, doc)
		}})
	}
	stages = append(stages,
		stage{name: "reclassify", fn: func(ctx context.Context) (string, error) {
			return o.classify(ctx, doc)
		}},
		stage{name: "reextract_fields", fn: func(ctx context.Context) (string, error) {
			return o.extractFields(ctx, doc)
		}},
		stage{name: "reembed", fn: func(ctx context.Context) (string, error) {
			return o.embed(ctx, doc)
		}},
	)

	return o.execute(ctx, doc, stages, "reprocess_complete", "Reprocessing complete")
}

// execute runs the stage loop with uniform logging and fatal/non-fatal
// branching. Panics escaping a stage force the document to error and surface
// as an error so the task queue retries.
func (o *Orchestrator) execute(ctx context.Context, doc *models.Document, stages []stage, completeStep, completeMsg string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			o.logStep(ctx, doc.ID, "fatal", "error", err.Error())
			if uerr := o.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusError); uerr != nil {
				log.Printf("pipeline: could not mark %s as error: %v", doc.ID, uerr)
			}
		}
	}()

	for _, st := range stages {
		msg, serr := st.fn(ctx)
		if serr != nil {
			o.logStep(ctx, doc.ID, st.name, "error", serr.Error())
			if st.fatal {
				doc.Status = models.StatusError
				if uerr := o.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusError); uerr != nil {
					log.Printf("pipeline: could not mark %s as error: %v", doc.ID, uerr)
				}
				return fmt.Errorf("stage %s: %w", st.name, serr)
			}
			log.Printf("pipeline: stage %s failed for %s (continuing): %v", st.name, doc.ID, serr)
			continue
		}
		if uerr := o.db.UpdateDocument(ctx, doc); uerr != nil {
			o.logStep(ctx, doc.ID, st.name, "error", uerr.Error())
			_ = o.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusError)
			return fmt.Errorf("persist after %s: %w", st.name, uerr)
		}
		o.logStep(ctx, doc.ID, st.name, "success", msg)
	}

	doc.Status = models.StatusDone
	if uerr := o.db.UpdateDocument(ctx, doc); uerr != nil {
		return fmt.Errorf("mark done: %w", uerr)
	}
	o.logStep(ctx, doc.ID, completeStep, "success", completeMsg)
	log.Printf("pipeline: document %s processed", doc.ID)
	return nil
}

func (o *Orchestrator) logStep(ctx context.Context, documentID, step, status, message string) {
	if err := o.db.AddProcessingLog(ctx, documentID, step, status, message); err != nil {
		log.Printf("pipeline: could not write log entry %s/%s for %s: %v", step, status, documentID, err)
	}
}

func (o *Orchestrator) extractText(ctx context.Context, doc *models.Document) (string, error) {
	local, cleanup, err := o.blobs.LocalPath(ctx, doc.FilePath)
	if err != nil {
		return "", err
	}
	defer cleanup()

	text, err := o.extractor.Extract(ctx, local)
	if err != nil {
		return "", err
	}
	doc.Content = &text
	return fmt.Sprintf("Extracted %d characters", len(text)), nil
}

func (o *Orchestrator) classify(ctx context.Context, doc *models.Document) (string, error) {
	text := ""
	if doc.Content != nil {
		text = *doc.Content
	}

	knownTags, err := o.db.ListTags(ctx)
	if err != nil {
		return "", err
	}
	knownTypes, err := o.db.ListDocumentTypes(ctx)
	if err != nil {
		return "", err
	}
	knownCorr, err := o.db.ListCorrespondents(ctx)
	if err != nil {
		return "", err
	}

	result := o.classifier.Classify(ctx, text,
		tagNames(knownTags), typeNames(knownTypes), correspondentNames(knownCorr))

	if result.Title != "" {
		doc.Title = &result.Title
	}
	if result.Date != "" {
		if ts, err := time.Parse("2006-01-02", result.Date); err == nil {
			doc.CreatedDate = &ts
		}
	}

	if result.DocumentType != "" {
		dt, err := o.getOrCreateType(ctx, result.DocumentType)
		if err != nil {
			return "", err
		}
		doc.DocumentTypeID = &dt.ID
	}
	if result.Correspondent != "" {
		co, err := o.getOrCreateCorrespondent(ctx, result.Correspondent)
		if err != nil {
			return "", err
		}
		doc.CorrespondentID = &co.ID
	}

	for _, name := range result.Tags {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, err := o.getOrCreateTag(ctx, name)
		if err != nil {
			return "", err
		}
		if err := o.db.AddDocumentTag(ctx, doc.ID, tag.ID); err != nil {
			return "", err
		}
	}

	return "Title: " + result.Title, nil
}

func (o *Orchestrator) extractFields(ctx context.Context, doc *models.Document) (string, error) {
	text := ""
	if doc.Content != nil {
		text = *doc.Content
	}
	fields := o.fields.ExtractFields(ctx, text)

	// Clear-then-insert even on a first run: a redelivered task must not
	// accumulate duplicate fields.
	if err := o.db.ReplaceCustomFields(ctx, doc.ID, fields); err != nil {
		return "", err
	}
	return fmt.Sprintf("Extracted %d fields", len(fields)), nil
}

func (o *Orchestrator) embed(ctx context.Context, doc *models.Document) (string, error) {
	text := ""
	if doc.Content != nil {
		text = *doc.Content
	}

	vec, err := o.embedText(ctx, text)
	if err != nil {
		return "", err
	}
	doc.Embedding = vec
	return fmt.Sprintf("Generated %d-dim embedding", len(vec)), nil
}

// embedText embeds short texts directly; long texts are chunked, embedded in
// batch and mean-pooled into one normalized document vector.
func (o *Orchestrator) embedText(ctx context.Context, text string) ([]float32, error) {
	if len(text) <= embedChunkSize {
		return o.embedder.Embed(ctx, text)
	}

	chunks, err := embeddings.Chunk(text, embedChunkSize, embedChunkOverlap)
	if err != nil {
		return nil, err
	}
	vecs, err := o.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return meanPool(vecs, o.embedder.Dim()), nil
}

func (o *Orchestrator) thumbnail(ctx context.Context, doc *models.Document) (string, error) {
	local, cleanup, err := o.blobs.LocalPath(ctx, doc.FilePath)
	if err != nil {
		return "", err
	}
	defer cleanup()

	thumbRel := strings.ReplaceAll(doc.ID, "-", "") + ".png"
	thumbAbs := filepath.Join(o.thumbnailDir, thumbRel)
	if o.thumbs.Generate(ctx, local, thumbAbs) {
		doc.ThumbnailPath = &thumbRel
	}

	info := o.thumbs.FileInfo(ctx, local)
	doc.PageCount = &info.Pages
	if doc.FileSize == nil || *doc.FileSize == 0 {
		doc.FileSize = &info.Size
	}
	if doc.MimeType == nil || *doc.MimeType == "" {
		doc.MimeType = &info.MimeType
	}
	return "Thumbnail generated", nil
}

func (o *Orchestrator) getOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	slug := models.Slugify(name)
	tag, err := o.db.GetTagBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if tag != nil {
		return tag, nil
	}
	created := &models.Tag{Name: name, Slug: slug}
	if err := o.db.CreateTag(ctx, created); err != nil {
		// Lost a create race: the slug is unique, so re-read wins.
		if tag, gerr := o.db.GetTagBySlug(ctx, slug); gerr == nil && tag != nil {
			return tag, nil
		}
		return nil, err
	}
	return created, nil
}

func (o *Orchestrator) getOrCreateType(ctx context.Context, name string) (*models.DocumentType, error) {
	slug := models.Slugify(name)
	dt, err := o.db.GetDocumentTypeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if dt != nil {
		return dt, nil
	}
	created := &models.DocumentType{Name: name, Slug: slug}
	if err := o.db.CreateDocumentType(ctx, created); err != nil {
		if dt, gerr := o.db.GetDocumentTypeBySlug(ctx, slug); gerr == nil && dt != nil {
			return dt, nil
		}
		return nil, err
	}
	return created, nil
}

func (o *Orchestrator) getOrCreateCorrespondent(ctx context.Context, name string) (*models.Correspondent, error) {
	slug := models.Slugify(name)
	co, err := o.db.GetCorrespondentBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if co != nil {
		return co, nil
	}
	created := &models.Correspondent{Name: name, Slug: slug}
	if err := o.db.CreateCorrespondent(ctx, created); err != nil {
		if co, gerr := o.db.GetCorrespondentBySlug(ctx, slug); gerr == nil && co != nil {
			return co, nil
		}
		return nil, err
	}
	return created, nil
}

func meanPool(vecs [][]float32, dim int) []float32 {
	out := make([]float32, dim)
	if len(vecs) == 0 {
		return out
	}
	for _, v := range vecs {
		for i := 0; i < dim && i < len(v); i++ {
			out[i] += v[i]
		}
	}
	var norm float64
	for i := range out {
		out[i] /= float32(len(vecs))
		norm += float64(out[i]) * float64(out[i])
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}

func tagNames(tags []models.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func typeNames(types []models.DocumentType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name
	}
	return out
}

func correspondentNames(cs []models.Correspondent) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
