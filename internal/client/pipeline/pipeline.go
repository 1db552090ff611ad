// Package pipeline runs a single record through parsing or translation under
// an operation lock.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/locks"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/providers"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
)

type Locks interface {
	Acquire(ctx context.Context, operation string, recordID int64) (*models.OperationLock, error)
	Finish(ctx context.Context, operation string, recordID int64, err error) error
}

type Reporter interface {
	Report(ctx context.Context, rec *models.Record, u models.ProgressUpdate) (*models.Record, error)
	Observe(rec *models.Record, lock *models.OperationLock)
}

type Renderer interface {
	Render(ctx context.Context, rec *models.Record) ([]models.PageImage, error)
}

type Records interface {
	Save(ctx context.Context, rec *models.Record) error
	UpdateFromText(ctx context.Context, text string, rec *models.Record, extra []models.Extra) (*models.Record, error)
}

type Pipeline struct {
	locks      Locks
	reporter   Reporter
	renderer   Renderer
	provider   providers.Provider
	completion llm.Completion
	records    Records
	logger     logging.Logger
}

func New(lk Locks, rep Reporter, rnd Renderer, p providers.Provider, c llm.Completion, recs Records, l logging.Logger) *Pipeline {
	return &Pipeline{
		locks:      lk,
		reporter:   rep,
		renderer:   rnd,
		provider:   p,
		completion: c,
		records:    recs,
		logger:     l.With("module", "pipeline"),
	}
}

// acquire claims the lock; a lock held elsewhere is surfaced on rec.
func (p *Pipeline) acquire(ctx context.Context, operation string, rec *models.Record) error {
	_, err := p.locks.Acquire(ctx, operation, rec.ID)
	var held *locks.HeldError
	if errors.As(err, &held) {
		p.reporter.Observe(rec, held.Lock)
		p.logger.Info(ctx, "operation running elsewhere", "operation_id", held.Lock.OperationID, "session_id", held.Lock.LastStepSessionID)
	}
	return err
}

// fail reports err on rec and writes the errored lock.
func (p *Pipeline) fail(ctx context.Context, operation string, rec *models.Record, err error) error {
	if _, rerr := p.reporter.Report(ctx, rec, models.ProgressUpdate{OperationName: operation, Err: err}); rerr != nil {
		p.logger.Warn(ctx, "error report failed", "record_id", rec.ID, "error", rerr)
	}
	if ferr := p.locks.Finish(ctx, operation, rec.ID, err); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

// done writes the finished lock and clears the in-progress state.
func (p *Pipeline) done(ctx context.Context, operation string, rec *models.Record) {
	if err := p.locks.Finish(ctx, operation, rec.ID, nil); err != nil {
		p.logger.Warn(ctx, "finished lock not written", "record_id", rec.ID, "operation", operation, "error", err)
	}
	if _, err := p.reporter.Report(ctx, rec, models.ProgressUpdate{OperationName: operation}); err != nil {
		p.logger.Warn(ctx, "final report failed", "record_id", rec.ID, "error", err)
	}
}

// recoverRun turns a panic of a locked run into an errored lock and an
// error result.
func (p *Pipeline) recoverRun(ctx context.Context, operation string, rec *models.Record, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	p.logger.Error(ctx, "operation panicked", "record_id", rec.ID, "operation", operation, "panic", r)
	*errp = p.fail(ctx, operation, rec, fmt.Errorf("%s of record %d panicked: %v", operation, rec.ID, r))
}

// Parse renders rec's pages and runs the configured provider on them.
func (p *Pipeline) Parse(ctx context.Context, rec *models.Record) (_ *models.Record, err error) {
	if !rec.Processable() {
		return rec, fmt.Errorf("record %d: %w", rec.ID, common.ErrNothingToProcess)
	}
	if err := p.acquire(ctx, common.OperationParse, rec); err != nil {
		return rec, err
	}
	defer p.recoverRun(ctx, common.OperationParse, rec, &err)

	updated, err := p.reporter.Report(ctx, rec, models.ProgressUpdate{OperationName: common.OperationParse, InProgress: true, Message: "rendering pages"})
	if err != nil {
		return rec, p.fail(ctx, common.OperationParse, rec, err)
	}
	rec = updated

	pages, err := p.renderer.Render(ctx, rec)
	if err != nil {
		return rec, p.fail(ctx, common.OperationParse, rec, err)
	}

	p.logger.Info(ctx, "parsing record", "record_id", rec.ID, "pages", len(pages), "provider", p.provider.Name())
	parsed, err := p.provider.Parse(ctx, rec, pages)
	if err != nil {
		return rec, p.fail(ctx, common.OperationParse, rec, err)
	}

	p.done(ctx, common.OperationParse, parsed)
	return parsed, nil
}
