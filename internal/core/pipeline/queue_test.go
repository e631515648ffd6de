package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmykhattab/docuai/internal/models"
)

// failingDB errors every document load, making each pipeline run fail fatally.
type failingDB struct {
	*fakeDB
	loads atomic.Int32
}

func (f *failingDB) GetDocumentByID(context.Context, string) (*models.Document, error) {
	f.loads.Add(1)
	return nil, errors.New("database unavailable")
}

func TestQueueRetriesFatalFailures(t *testing.T) {
	db := &failingDB{fakeDB: newFakeDB()}
	o := newTestOrchestrator(t, db.fakeDB, fakeExtractor{text: "x"}, &fakeClassifier{})
	o.db = db

	q := NewQueue(o, 1)
	q.maxRetries = 2
	q.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.EnqueueProcess("doc-x")

	// One initial attempt plus two retries.
	assert.Eventually(t, func() bool {
		return db.loads.Load() == 3
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), db.loads.Load(), "no attempts beyond the retry budget")

	cancel()
	q.Wait()
}

func TestQueueSuccessfulRunIsNotRetried(t *testing.T) {
	db := newFakeDB()
	seedDocument(t, db, "doc-q")

	classifier := &fakeClassifier{}
	o := newTestOrchestrator(t, db, fakeExtractor{text: "text"}, classifier)

	q := NewQueue(o, 2)
	q.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.EnqueueProcess("doc-q")

	require.Eventually(t, func() bool {
		doc, _ := db.GetDocumentByID(context.Background(), "doc-q")
		return doc != nil && doc.Status == models.StatusDone
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, classifier.calls)

	cancel()
	q.Wait()
}
