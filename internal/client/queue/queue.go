// Package queue is the session's single-consumer parse queue. Items run one
// at a time in FIFO order; an item's callback runs inside the drain loop
// before the next item starts.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
)

type Processor interface {
	Parse(ctx context.Context, rec *models.Record) (*models.Record, error)
}

// Callback runs after a successful parse of its record.
type Callback func(ctx context.Context, parsed *models.Record)

type entry struct {
	rec *models.Record
	cb  Callback
}

type Queue struct {
	proc   Processor
	logger logging.Logger

	mu       sync.Mutex
	items    []entry
	draining bool
	wg       sync.WaitGroup
}

func New(proc Processor, l logging.Logger) *Queue {
	return &Queue{proc: proc, logger: l.With("module", "queue")}
}

// Enqueue appends rec unless it is already queued or has nothing to parse.
func (q *Queue) Enqueue(rec *models.Record, cb Callback) bool {
	if !rec.Processable() {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.items {
		if e.rec.ID == rec.ID {
			return false
		}
	}
	q.items = append(q.items, entry{rec: rec, cb: cb})
	markQueued(rec, len(q.items))
	return true
}

func markQueued(rec *models.Record, position int) {
	rec.OperationName = common.OperationParse
	rec.OperationInProgress = true
	rec.OperationProgress = &models.Progress{
		OperationName: common.OperationParse,
		Message:       fmt.Sprintf("queued (%d)", position),
	}
}

// Drain processes items until the queue is empty or ctx is done. A call
// made while another drain runs only refreshes the queued positions.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.draining {
		if len(q.items) > 1 {
			for i, e := range q.items[1:] {
				markQueued(e.rec, i+1)
			}
		}
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	for {
		// the flag drops in the same critical section that sees the queue
		// empty, so an Enqueue+Kick racing the last pop starts a new drain
		q.mu.Lock()
		if len(q.items) == 0 || ctx.Err() != nil {
			q.draining = false
			q.mu.Unlock()
			return
		}
		head := q.items[0]
		q.mu.Unlock()

		q.run(ctx, head)

		q.mu.Lock()
		q.items = q.items[1:]
		q.mu.Unlock()
	}
}

func (q *Queue) run(ctx context.Context, e entry) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error(ctx, "queue item panicked", "record_id", e.rec.ID, "panic", r)
		}
	}()

	parsed, err := q.proc.Parse(ctx, e.rec)
	if err != nil {
		q.logger.Warn(ctx, "queue item failed", "record_id", e.rec.ID, "error", err)
		return
	}
	if e.cb != nil {
		e.cb(ctx, parsed)
	}
}

// Kick starts a drain in the background.
func (q *Queue) Kick(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.Drain(ctx)
	}()
}

// Wait blocks until every drain started by Kick has returned.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Queued returns the ids of queued records, head first.
func (q *Queue) Queued() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]int64, len(q.items))
	for i, e := range q.items {
		ids[i] = e.rec.ID
	}
	return ids
}
