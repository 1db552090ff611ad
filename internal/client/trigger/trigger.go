// Package trigger decides which loaded records get parsed or translated
// automatically, based on their content state and the lock table.
package trigger

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/locks"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/queue"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
)

// DefaultRecentWindow limits automatic parsing to recently updated records.
const DefaultRecentWindow = time.Hour

type LockInspector interface {
	Inspect(ctx context.Context, recordIDs ...int64) ([]*models.OperationLock, error)
	Classify(l *models.OperationLock) locks.State
}

type Observer interface {
	Observe(rec *models.Record, lock *models.OperationLock)
}

type Enqueuer interface {
	Enqueue(rec *models.Record, cb queue.Callback) bool
	Kick(ctx context.Context)
}

type Translator interface {
	Translate(ctx context.Context, rec *models.Record, language string) (*models.Record, error)
}

type Options struct {
	AutoParse     bool
	AutoTranslate bool
	Language      string
	RecentWindow  time.Duration
}

// Result lists what one evaluation did, by record id.
type Result struct {
	Enqueued   []int64
	Translated []int64
	Observed   []int64
}

type Controller struct {
	locks      LockInspector
	observer   Observer
	queue      Enqueuer
	translator Translator
	opts       Options
	logger     logging.Logger
	now        func() time.Time
}

func New(lk LockInspector, obs Observer, q Enqueuer, tr Translator, opts Options, l logging.Logger) *Controller {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	return &Controller{
		locks:      lk,
		observer:   obs,
		queue:      q,
		translator: tr,
		opts:       opts,
		logger:     l.With("module", "trigger"),
		now:        time.Now,
	}
}

// afterParse chains translation behind a successful parse.
func (c *Controller) afterParse() queue.Callback {
	if !c.opts.AutoTranslate {
		return nil
	}
	return func(ctx context.Context, parsed *models.Record) {
		if parsed == nil || len(parsed.ReferenceIDs()) > 0 {
			return
		}
		c.translate(ctx, parsed)
	}
}

func (c *Controller) translate(ctx context.Context, rec *models.Record) bool {
	if _, err := c.translator.Translate(ctx, rec, c.opts.Language); err != nil {
		if errors.Is(err, common.ErrOperationInProgress) {
			c.logger.Info(ctx, "translation running elsewhere", "record_id", rec.ID)
		} else {
			c.logger.Warn(ctx, "auto translation failed", "record_id", rec.ID, "error", err)
		}
		return false
	}
	return true
}

// Evaluate scans locks for records, enqueues parses, then runs direct
// translations one after another.
func (c *Controller) Evaluate(ctx context.Context, records []*models.Record) (Result, error) {
	var res Result
	if len(records) == 0 {
		return res, nil
	}

	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	found, err := c.locks.Inspect(ctx, ids...)
	if err != nil {
		return res, err
	}

	now := c.now()
	var translate []*models.Record
	enqueue := func(rec *models.Record) {
		if c.queue.Enqueue(rec, c.afterParse()) {
			res.Enqueued = append(res.Enqueued, rec.ID)
		}
	}

	for _, rec := range records {
		parseLock := locks.Latest(found, rec.ID, common.OperationParse)
		translateLock := locks.Latest(found, rec.ID, common.OperationTranslate)
		parseState := c.locks.Classify(parseLock)
		translateState := c.locks.Classify(translateLock)

		if parseState == locks.StateForeign || translateState == locks.StateForeign {
			if parseState == locks.StateForeign {
				c.observer.Observe(rec, parseLock)
			} else {
				c.observer.Observe(rec, translateLock)
			}
			res.Observed = append(res.Observed, rec.ID)
			continue
		}

		// this process is already on it; the running pipeline reports progress
		if parseState == locks.StateRunning || translateState == locks.StateRunning {
			continue
		}

		if parseState == locks.StateResumable {
			enqueue(rec)
			continue
		}
		if translateState == locks.StateResumable {
			translate = append(translate, rec)
			continue
		}
		if parseState == locks.StateErrored && rec.NeedsParsing() {
			rec.OperationName = common.OperationParse
			rec.OperationError = parseLock.ErrorMessage
		}

		if rec.IsDerived() || len(rec.Attachments) == 0 || !c.opts.AutoParse {
			continue
		}

		needsParsing := rec.NeedsParsing() &&
			!rec.OperationInProgress &&
			rec.OperationError == "" &&
			now.Sub(rec.UpdatedAt) < c.opts.RecentWindow

		switch {
		case needsParsing:
			enqueue(rec)
		case !rec.NeedsParsing() && c.opts.AutoTranslate && len(rec.ReferenceIDs()) == 0:
			if translateState == locks.StateNone || translateState == locks.StateStale {
				translate = append(translate, rec)
			}
		}
	}

	if len(res.Enqueued) > 0 {
		c.queue.Kick(ctx)
	}

	for _, rec := range translate {
		if c.translate(ctx, rec) {
			res.Translated = append(res.Translated, rec.ID)
		}
	}
	return res, nil
}
