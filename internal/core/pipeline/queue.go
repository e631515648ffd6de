package pipeline

import (
	"context"
	"log"
	"sync"
	"time"
)

type TaskKind string

const (
	TaskProcess   TaskKind = "process"
	TaskReprocess TaskKind = "reprocess"
)

type Task struct {
	Kind       TaskKind
	DocumentID string
}

// Queue fans tasks out to a fixed pool of workers. Failed runs are retried a
// few times with a fixed backoff; a document whose retries are exhausted stays
// in the error state until reprocessed by hand.
type Queue struct {
	orchestrator *Orchestrator
	tasks        chan Task
	workers      int
	maxRetries   int
	backoff      time.Duration
	wg           sync.WaitGroup
}

func NewQueue(orchestrator *Orchestrator, workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		orchestrator: orchestrator,
		tasks:        make(chan Task, 64),
		workers:      workers,
		maxRetries:   3,
		backoff:      60 * time.Second,
	}
}

// Start launches the worker pool. Workers drain the channel until ctx is
// cancelled; Wait blocks until they have all exited.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.worker(ctx, id)
		}(i + 1)
	}
	log.Printf("queue: started %d workers", q.workers)
}

func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) EnqueueProcess(documentID string) {
	q.tasks <- Task{Kind: TaskProcess, DocumentID: documentID}
}

func (q *Queue) EnqueueReprocess(documentID string) {
	q.tasks <- Task{Kind: TaskReprocess, DocumentID: documentID}
}

func (q *Queue) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.runWithRetry(ctx, id, task)
		}
	}
}

func (q *Queue) runWithRetry(ctx context.Context, workerID int, task Task) {
	attempts := q.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		switch task.Kind {
		case TaskReprocess:
			err = q.orchestrator.Rerun(ctx, task.DocumentID)
		default:
			err = q.orchestrator.Run(ctx, task.DocumentID)
		}
		if err == nil {
			return
		}
		if attempt == attempts {
			log.Printf("queue: worker %d giving up on %s %s after %d attempts: %v",
				workerID, task.Kind, task.DocumentID, attempts, err)
			return
		}
		log.Printf("queue: worker %d retrying %s %s in %s (attempt %d/%d): %v",
			workerID, task.Kind, task.DocumentID, q.backoff, attempt, attempts, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.backoff):
		}
	}
}
