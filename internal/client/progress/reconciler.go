// Package progress folds provider progress ticks into record state, lock
// steps and durable page checkpoints.
package progress

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
)

const (
	// DefaultThrottle is the minimum progress advance between lock steps.
	DefaultThrottle = 30
	// DefaultHeartbeat is how often "Last processing step" is refreshed.
	DefaultHeartbeat = 30 * time.Minute
)

type Stepper interface {
	Step(ctx context.Context, operation string, recordID int64, u models.ProgressUpdate)
}

// Saver persists a record, updating it in place.
type Saver interface {
	Save(ctx context.Context, rec *models.Record) error
}

type recordState struct {
	pushed     bool
	lastPushed int
	inProgress bool
	errMsg     string
	operation  string
	text       string
	snapshot   *models.Progress
	history    []models.Progress
}

type Reconciler struct {
	steps     Stepper
	records   Saver
	logger    logging.Logger
	now       func() time.Time
	throttle  int
	heartbeat time.Duration

	mu     sync.Mutex
	states map[int64]*recordState
}

func NewReconciler(steps Stepper, records Saver, l logging.Logger) *Reconciler {
	return &Reconciler{
		steps:     steps,
		records:   records,
		logger:    l.With("module", "progress"),
		now:       time.Now,
		throttle:  DefaultThrottle,
		heartbeat: DefaultHeartbeat,
		states:    map[int64]*recordState{},
	}
}

func (r *Reconciler) state(id int64) *recordState {
	st, ok := r.states[id]
	if !ok {
		st = &recordState{}
		r.states[id] = st
	}
	return st
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Report applies one progress tick to rec and returns it. The record is
// saved when the heartbeat annotation is refreshed or a page completes.
func (r *Reconciler) Report(ctx context.Context, rec *models.Record, u models.ProgressUpdate) (*models.Record, error) {
	now := r.now()
	errMsg := errString(u.Err)

	r.mu.Lock()
	st := r.state(rec.ID)

	// a new run starts with an empty stream text
	if st.operation != u.OperationName || (u.InProgress && !st.inProgress) {
		st.text = ""
	}
	st.text += u.TextDelta

	snap := models.Progress{
		OperationName: u.OperationName,
		InProgress:    u.InProgress,
		Error:         errMsg,
		Page:          u.Page,
		Pages:         u.Pages,
		Progress:      u.Progress,
		ProgressOf:    u.ProgressOf,
		TextDelta:     st.text,
		PageDelta:     u.PageDelta,
		RecordText:    u.RecordText,
		Message:       u.Message,
		Timestamp:     now,
	}

	changed := !st.pushed || st.inProgress != u.InProgress || st.errMsg != errMsg || st.operation != u.OperationName
	push := changed || u.Err != nil || u.Message != "" || u.PageDelta != "" || u.Progress-st.lastPushed >= r.throttle
	if push {
		st.pushed = true
		st.lastPushed = u.Progress
	}
	st.inProgress = u.InProgress
	st.errMsg = errMsg
	st.operation = u.OperationName
	st.snapshot = &snap
	st.history = append(st.history, snap)
	r.mu.Unlock()

	rec.OperationName = u.OperationName
	rec.OperationInProgress = u.InProgress
	rec.OperationError = errMsg
	p := snap
	rec.OperationProgress = &p

	if push && rec.ID != 0 {
		r.steps.Step(ctx, u.OperationName, rec.ID, u)
	}

	save := false

	if u.Progress > 0 && u.ProgressOf > 0 && r.heartbeatDue(rec, now) {
		rec.SetExtra(models.ExtraLastProcessingStep, now.UTC().Format(time.RFC3339))
		save = true
	}

	if u.PageDelta != "" && u.RecordText != "" && u.Page > 0 {
		rec.SetExtra(models.PageContentType(u.Page), u.PageDelta)
		if u.Page >= u.Pages {
			rec.RemoveExtra(models.ExtraParsedPages)
			rec.RemoveExtra(models.ExtraPagesTotal)
		} else {
			rec.SetExtra(models.ExtraParsedPages, strconv.Itoa(u.Page))
			rec.SetExtra(models.ExtraPagesTotal, strconv.Itoa(u.Pages))
		}
		rec.Text = u.RecordText
		save = true
	}

	if save {
		if err := r.records.Save(ctx, rec); err != nil {
			return rec, fmt.Errorf("checkpoint record %d: %w", rec.ID, err)
		}
		r.logger.Debug(ctx, "record checkpointed", "record_id", rec.ID, "page", u.Page, "pages", u.Pages)
	}

	return rec, nil
}

func (r *Reconciler) heartbeatDue(rec *models.Record, now time.Time) bool {
	v, ok := rec.GetExtra(models.ExtraLastProcessingStep)
	if !ok {
		return true
	}
	last, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return true
	}
	return now.Sub(last) >= r.heartbeat
}

// Observe marks rec as being processed by another session, taking the
// progress from its lock. Nothing is written.
func (r *Reconciler) Observe(rec *models.Record, lock *models.OperationLock) {
	ts := r.now()
	if lock.LastStep != nil {
		ts = *lock.LastStep
	}

	snap := models.Progress{
		OperationName:              lock.OperationName,
		InProgress:                 true,
		Page:                       lock.Page,
		Pages:                      lock.Pages,
		Progress:                   lock.Progress,
		ProgressOf:                 lock.ProgressOf,
		TextDelta:                  lock.TextDelta,
		PageDelta:                  lock.PageDelta,
		RecordText:                 lock.RecordText,
		Message:                    lock.Message,
		ProcessedOnDifferentDevice: true,
		Timestamp:                  ts,
	}

	rec.OperationName = lock.OperationName
	rec.OperationInProgress = true
	rec.OperationError = ""
	p := snap
	rec.OperationProgress = &p

	r.mu.Lock()
	st := r.state(rec.ID)
	st.snapshot = &snap
	st.history = append(st.history, snap)
	r.mu.Unlock()
}

// Snapshot returns the latest progress of a record.
func (r *Reconciler) Snapshot(id int64) (models.Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[id]
	if !ok || st.snapshot == nil {
		return models.Progress{}, false
	}
	return *st.snapshot, true
}

// History returns a copy of every snapshot reported for a record.
func (r *Reconciler) History(id int64) []models.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[id]
	if !ok {
		return nil
	}
	return append([]models.Progress(nil), st.history...)
}
