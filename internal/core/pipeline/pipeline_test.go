package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

// fakeDB is an in-memory core.DbClient for pipeline tests.
type fakeDB struct {
	mu           sync.Mutex
	documents    map[string]*models.Document
	tags         map[string]*models.Tag
	types        map[string]*models.DocumentType
	corr         map[string]*models.Correspondent
	docTags      map[string]map[int]bool
	customFields map[string][]models.ExtractedField
	logs         []models.ProcessingLog
	nextID       int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		documents:    map[string]*models.Document{},
		tags:         map[string]*models.Tag{},
		types:        map[string]*models.DocumentType{},
		corr:         map[string]*models.Correspondent{},
		docTags:      map[string]map[int]bool{},
		customFields: map[string][]models.ExtractedField{},
	}
}

func (f *fakeDB) CreateDocument(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.documents[doc.ID] = &cp
	return nil
}

func (f *fakeDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDB) ListDocuments(context.Context, core.DocumentFilter) ([]models.Document, int, error) {
	return nil, 0, nil
}

func (f *fakeDB) UpdateDocument(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.documents[doc.ID] = &cp
	return nil
}

func (f *fakeDB) UpdateDocumentStatus(_ context.Context, id string, status models.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.documents[id]; ok {
		doc.Status = status
	}
	return nil
}

func (f *fakeDB) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.documents, id)
	return nil
}

func (f *fakeDB) ListTags(context.Context) ([]models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tag
	for _, t := range f.tags {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeDB) GetTagBySlug(_ context.Context, slug string) (*models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tags[slug]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDB) CreateTag(_ context.Context, tag *models.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tags[tag.Slug]; ok {
		return errors.New("duplicate slug")
	}
	f.nextID++
	tag.ID = f.nextID
	cp := *tag
	f.tags[tag.Slug] = &cp
	return nil
}

func (f *fakeDB) UpdateTag(context.Context, *models.Tag) error { return nil }
func (f *fakeDB) DeleteTag(context.Context, int) error         { return nil }

func (f *fakeDB) TagsForDocument(_ context.Context, documentID string) ([]models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tag
	for _, t := range f.tags {
		if f.docTags[documentID][t.ID] {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeDB) AddDocumentTag(_ context.Context, documentID string, tagID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docTags[documentID] == nil {
		f.docTags[documentID] = map[int]bool{}
	}
	f.docTags[documentID][tagID] = true
	return nil
}

func (f *fakeDB) ReplaceDocumentTags(_ context.Context, documentID string, tagIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := map[int]bool{}
	for _, id := range tagIDs {
		set[id] = true
	}
	f.docTags[documentID] = set
	return nil
}

func (f *fakeDB) ListDocumentTypes(context.Context) ([]models.DocumentType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DocumentType
	for _, t := range f.types {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeDB) GetDocumentTypeBySlug(_ context.Context, slug string) (*models.DocumentType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.types[slug]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDB) CreateDocumentType(_ context.Context, dt *models.DocumentType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	dt.ID = f.nextID
	cp := *dt
	f.types[dt.Slug] = &cp
	return nil
}

func (f *fakeDB) UpdateDocumentType(context.Context, *models.DocumentType) error { return nil }
func (f *fakeDB) DeleteDocumentType(context.Context, int) error                 { return nil }

func (f *fakeDB) ListCorrespondents(context.Context) ([]models.Correspondent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Correspondent
	for _, c := range f.corr {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeDB) GetCorrespondentBySlug(_ context.Context, slug string) (*models.Correspondent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.corr[slug]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDB) CreateCorrespondent(_ context.Context, c *models.Correspondent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.corr[c.Slug] = &cp
	return nil
}

func (f *fakeDB) UpdateCorrespondent(context.Context, *models.Correspondent) error { return nil }
func (f *fakeDB) DeleteCorrespondent(context.Context, int) error                   { return nil }

func (f *fakeDB) ListCustomFields(_ context.Context, documentID string) ([]models.CustomField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CustomField
	for i, fld := range f.customFields[documentID] {
		out = append(out, models.CustomField{
			ID: i + 1, DocumentID: documentID,
			FieldName: fld.Name, FieldValue: fld.Value, FieldType: fld.Type,
		})
	}
	return out, nil
}

func (f *fakeDB) ReplaceCustomFields(_ context.Context, documentID string, fields []models.ExtractedField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customFields[documentID] = append([]models.ExtractedField(nil), fields...)
	return nil
}

func (f *fakeDB) AddProcessingLog(_ context.Context, documentID, step, status, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, models.ProcessingLog{
		DocumentID: documentID, Step: step, Status: status, Message: message,
	})
	return nil
}

func (f *fakeDB) ListProcessingLogs(_ context.Context, documentID string) ([]models.ProcessingLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ProcessingLog
	for _, l := range f.logs {
		if l.DocumentID == documentID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeDB) SearchFullText(context.Context, string, int, int) ([]models.ScoredDocument, int, error) {
	return nil, 0, nil
}

func (f *fakeDB) SearchSemantic(context.Context, []float32, int, int) ([]models.ScoredDocument, int, error) {
	return nil, 0, nil
}

func (f *fakeDB) FullTextScores(context.Context, string) (map[string]float64, error) {
	return nil, nil
}

func (f *fakeDB) SemanticScores(context.Context, []float32) (map[string]float64, error) {
	return nil, nil
}

func (f *fakeDB) GetDocumentsByIDs(context.Context, []string) (map[string]models.Document, error) {
	return nil, nil
}

func (f *fakeDB) NearestDocuments(context.Context, []float32, int) ([]models.ScoredDocument, error) {
	return nil, nil
}

func (f *fakeDB) AddChatHistory(context.Context, *models.ChatHistory) error { return nil }
func (f *fakeDB) ListChatHistory(context.Context, int) ([]models.ChatHistory, error) {
	return nil, nil
}

func (f *fakeDB) DashboardStats(context.Context) (*core.DashboardStats, error) { return nil, nil }
func (f *fakeDB) Close() error                                                { return nil }

var _ core.DbClient = (*fakeDB)(nil)

// passthroughBlobs serves blobs straight from the local filesystem.
type passthroughBlobs struct{}

func (passthroughBlobs) Put(context.Context, string, io.Reader, string) error { return nil }
func (passthroughBlobs) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}
func (passthroughBlobs) Delete(context.Context, string) error { return nil }
func (passthroughBlobs) LocalPath(_ context.Context, path string) (string, func(), error) {
	return path, func() {}, nil
}

var _ core.BlobStore = passthroughBlobs{}

// Stage adapters used by the orchestrator tests.

type fakeExtractor struct {
	text string
	err  error
}

func (e fakeExtractor) Extract(context.Context, string) (string, error) { return e.text, e.err }

type fakeClassifier struct {
	result models.ClassificationResult
	calls  int
}

func (c *fakeClassifier) Classify(context.Context, string, []string, []string, []string) models.ClassificationResult {
	c.calls++
	return c.result
}

type fakeFields struct {
	fields []models.ExtractedField
}

func (f fakeFields) ExtractFields(context.Context, string) []models.ExtractedField {
	return f.fields
}

type fakeEmbedder struct {
	dim int
	err error
}

func (e fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, e.dim), nil
}

func (e fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}

func (e fakeEmbedder) Dim() int { return e.dim }

type fakeThumbs struct {
	ok bool
}

func (t fakeThumbs) Generate(context.Context, string, string) bool { return t.ok }
func (t fakeThumbs) FileInfo(context.Context, string) models.FileInfo {
	return models.FileInfo{Size: 123, MimeType: "application/pdf", Pages: 2}
}

func newTestOrchestrator(t *testing.T, db *fakeDB, ex core.TextExtractor, cl core.Classifier) *Orchestrator {
	t.Helper()
	return NewOrchestrator(db, passthroughBlobs{}, ex, cl,
		fakeFields{fields: []models.ExtractedField{{Name: "Amount", Value: "42 EUR", Type: "amount"}}},
		fakeEmbedder{dim: 8},
		fakeThumbs{ok: true},
		t.TempDir(),
	)
}

func seedDocument(t *testing.T, db *fakeDB, id string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, db.CreateDocument(context.Background(), &models.Document{
		ID:               id,
		OriginalFilename: "doc.pdf",
		FilePath:         path,
		Status:           models.StatusPending,
	}))
}

func stepStatuses(logs []models.ProcessingLog) map[string]string {
	out := map[string]string{}
	for _, l := range logs {
		out[l.Step] = l.Status
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	db := newFakeDB()
	seedDocument(t, db, "doc-1")

	classifier := &fakeClassifier{result: models.ClassificationResult{
		Title:         "Power Bill March",
		Tags:          []string{"utilities", "power"},
		DocumentType:  "Invoice",
		Correspondent: "City Power",
		Date:          "2024-03-01",
	}}
	o := newTestOrchestrator(t, db, fakeExtractor{text: "extracted document text"}, classifier)

	require.NoError(t, o.Run(context.Background(), "doc-1"))

	doc, err := db.GetDocumentByID(context.Background(), "doc-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, models.StatusDone, doc.Status)
	require.NotNil(t, doc.Title)
	assert.Equal(t, "Power Bill March", *doc.Title)
	require.NotNil(t, doc.Content)
	assert.Equal(t, "extracted document text", *doc.Content)
	require.NotNil(t, doc.CreatedDate)
	assert.Equal(t, "2024-03-01", doc.CreatedDate.Format("2006-01-02"))
	assert.NotNil(t, doc.DocumentTypeID)
	assert.NotNil(t, doc.CorrespondentID)
	assert.Len(t, doc.Embedding, 8)
	require.NotNil(t, doc.ThumbnailPath)

	tags, err := db.TagsForDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	fields, err := db.ListCustomFields(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Amount", fields[0].FieldName)

	logs, err := db.ListProcessingLogs(context.Background(), "doc-1")
	require.NoError(t, err)
	statuses := stepStatuses(logs)
	for _, step := range []string{"ocr", "classify", "fields", "embeddings", "thumbnail"} {
		assert.Equal(t, "success", statuses[step], "step %s", step)
	}
	assert.Equal(t, "success", statuses["complete"])
}

func TestRunFatalOCRFailure(t *testing.T) {
	db := newFakeDB()
	seedDocument(t, db, "doc-2")

	o := newTestOrchestrator(t, db, fakeExtractor{err: errors.New("unreadable file")}, &fakeClassifier{})

	err := o.Run(context.Background(), "doc-2")
	require.Error(t, err)

	doc, _ := db.GetDocumentByID(context.Background(), "doc-2")
	assert.Equal(t, models.StatusError, doc.Status)

	logs, _ := db.ListProcessingLogs(context.Background(), "doc-2")
	statuses := stepStatuses(logs)
	assert.Equal(t, "error", statuses["ocr"])
	// No stage after the fatal one may have run.
	assert.NotContains(t, statuses, "classify")
	assert.NotContains(t, statuses, "complete")
}

func TestRunNonFatalStageFailureStillCompletes(t *testing.T) {
	db := newFakeDB()
	seedDocument(t, db, "doc-3")

	o := NewOrchestrator(db, passthroughBlobs{},
		fakeExtractor{text: "text"},
		&fakeClassifier{result: models.ClassificationResult{Title: "T"}},
		fakeFields{},
		fakeEmbedder{dim: 8, err: errors.New("embedding backend down")},
		fakeThumbs{ok: true},
		t.TempDir(),
	)

	require.NoError(t, o.Run(context.Background(), "doc-3"))

	doc, _ := db.GetDocumentByID(context.Background(), "doc-3")
	assert.Equal(t, models.StatusDone, doc.Status)
	assert.Nil(t, doc.Embedding)

	logs, _ := db.ListProcessingLogs(context.Background(), "doc-3")
	statuses := stepStatuses(logs)
	assert.Equal(t, "error", statuses["embeddings"])
	assert.Equal(t, "success", statuses["thumbnail"])
	assert.Equal(t, "success", statuses["complete"])
}

func TestRunMissingDocumentIsDropped(t *testing.T) {
	db := newFakeDB()
	o := newTestOrchestrator(t, db, fakeExtractor{text: "x"}, &fakeClassifier{})
	assert.NoError(t, o.Run(context.Background(), "no-such-doc"))
}

func TestRunTwiceDoesNotDuplicateTagsOrFields(t *testing.T) {
	db := newFakeDB()
	seedDocument(t, db, "doc-4")

	classifier := &fakeClassifier{result: models.ClassificationResult{
		Title: "T",
		Tags:  []string{"Utilities", "utilities "},
	}}
	o := newTestOrchestrator(t, db, fakeExtractor{text: "text"}, classifier)

	require.NoError(t, o.Run(context.Background(), "doc-4"))
	require.NoError(t, o.Run(context.Background(), "doc-4"))

	// Both tag spellings share one slug, and the second run re-associates
	// instead of duplicating.
	tags, _ := db.TagsForDocument(context.Background(), "doc-4")
	assert.Len(t, tags, 1)

	fields, _ := db.ListCustomFields(context.Background(), "doc-4")
	assert.Len(t, fields, 1)
}

func TestRerunReusesStoredContent(t *testing.T) {
	db := newFakeDB()
	seedDocument(t, db, "doc-5")
	content := "already extracted"
	doc, _ := db.GetDocumentByID(context.Background(), "doc-5")
	doc.Content = &content
	doc.Status = models.StatusDone
	require.NoError(t, db.UpdateDocument(context.Background(), doc))

	// The extractor fails hard; a rerun must never reach it.
	o := newTestOrchestrator(t, db,
		fakeExtractor{err: errors.New("must not re-ocr")},
		&fakeClassifier{result: models.ClassificationResult{Title: "New Title"}},
	)

	require.NoError(t, o.Rerun(context.Background(), "doc-5"))

	updated, _ := db.GetDocumentByID(context.Background(), "doc-5")
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Equal(t, "New Title", *updated.Title)
	assert.Equal(t, "already extracted", *updated.Content)

	logs, _ := db.ListProcessingLogs(context.Background(), "doc-5")
	statuses := stepStatuses(logs)
	assert.NotContains(t, statuses, "reocr")
	assert.Equal(t, "success", statuses["reclassify"])
	assert.Equal(t, "success", statuses["reprocess_complete"])
}

func TestRerunWithBlankContentReOCRsNonFatally(t *testing.T) {
	db := newFakeDB()
	seedDocument(t, db, "doc-6")

	o := newTestOrchestrator(t, db,
		fakeExtractor{err: errors.New("still unreadable")},
		&fakeClassifier{},
	)

	require.NoError(t, o.Rerun(context.Background(), "doc-6"))

	doc, _ := db.GetDocumentByID(context.Background(), "doc-6")
	assert.Equal(t, models.StatusDone, doc.Status)

	logs, _ := db.ListProcessingLogs(context.Background(), "doc-6")
	statuses := stepStatuses(logs)
	assert.Equal(t, "error", statuses["reocr"])
	assert.Equal(t, "success", statuses["reprocess_complete"])
}

func TestMeanPoolNormalizes(t *testing.T) {
	vecs := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
	pooled := meanPool(vecs, 4)
	require.Len(t, pooled, 4)

	var norm float64
	for _, v := range pooled {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
	assert.InDelta(t, pooled[0], pooled[1], 1e-6)
}

func TestMeanPoolEmptyInput(t *testing.T) {
	assert.Equal(t, make([]float32, 4), meanPool(nil, 4))
}

