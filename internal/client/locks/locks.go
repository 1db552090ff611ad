// Package locks coordinates parse and translate runs across sessions through
// the server's operation lock table.
//
// Acquisition is check-then-create and therefore racy across sessions; two
// sessions may both start the same operation, and the last writer of a page
// annotation wins. Progress steps are written in the background and never
// block the caller. Acquire and Finish are awaited.
package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/client"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
)

// DefaultStaleAfter is how long a silent lock keeps other sessions away.
const DefaultStaleAfter = 5 * time.Minute

// stepWriteTimeout bounds a single background write.
const stepWriteTimeout = 15 * time.Second

// Store is the part of the server client the manager needs.
type Store interface {
	GetOperations(ctx context.Context, q client.OperationQuery) ([]*models.OperationLock, error)
	CreateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error)
	UpdateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error)
}

type State int

const (
	StateNone State = iota
	StateFinished
	StateErrored
	StateResumable
	StateForeign
	StateStale
	// StateRunning is a lock this process acquired and has not finished yet.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	case StateResumable:
		return "resumable"
	case StateForeign:
		return "foreign"
	case StateStale:
		return "stale"
	case StateRunning:
		return "running"
	default:
		return "none"
	}
}

// Terminal reports a finished or errored lock.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateErrored
}

// ErrRunning is returned by Acquire when this process already runs the
// operation.
var ErrRunning = fmt.Errorf("%w: already running in this session", common.ErrOperationInProgress)

// HeldError is returned by Acquire when another session is actively working
// on the operation.
type HeldError struct {
	Lock *models.OperationLock
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("%s is running on session %s", e.Lock.OperationID, e.Lock.LastStepSessionID)
}

func (e *HeldError) Unwrap() error {
	return common.ErrOperationInProgress
}

type Manager struct {
	store     Store
	session   string
	userAgent string
	window    time.Duration
	logger    logging.Logger
	now       func() time.Time

	mu      sync.Mutex
	idle    *sync.Cond
	current map[string]*models.OperationLock
	pending map[string]*models.OperationLock
	order   []string
	closed  map[string]bool
	active  map[string]bool
	writing bool
}

func NewManager(store Store, session, userAgent string, window time.Duration, l logging.Logger) *Manager {
	if window <= 0 {
		window = DefaultStaleAfter
	}
	m := &Manager{
		store:     store,
		session:   session,
		userAgent: userAgent,
		window:    window,
		logger:    l.With("module", "locks"),
		now:       time.Now,
		current:   map[string]*models.OperationLock{},
		pending:   map[string]*models.OperationLock{},
		closed:    map[string]bool{},
		active:    map[string]bool{},
	}
	m.idle = sync.NewCond(&m.mu)
	return m
}

func (m *Manager) Session() string { return m.session }

func (m *Manager) Window() time.Duration { return m.window }

// Classify places a lock in one of the states the pipeline acts on. A
// pending lock of an operation this process is still running is
// StateRunning, not resumable.
func (m *Manager) Classify(l *models.OperationLock) State {
	state := m.classifyStored(l)
	if state == StateResumable && m.running(models.OperationID(l.OperationName, l.RecordID)) {
		return StateRunning
	}
	return state
}

func (m *Manager) classifyStored(l *models.OperationLock) State {
	switch {
	case l == nil:
		return StateNone
	case l.Finished:
		return StateFinished
	case l.Errored:
		return StateErrored
	case l.Resumable(m.session):
		return StateResumable
	case l.Foreign(m.session, m.now(), m.window):
		return StateForeign
	default:
		return StateStale
	}
}

// running reports an operation acquired by this process and not finished.
func (m *Manager) running(opID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[opID]
}

// Inspect returns the locks of the given records, most recent first.
func (m *Manager) Inspect(ctx context.Context, recordIDs ...int64) ([]*models.OperationLock, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}
	locks, err := m.store.GetOperations(ctx, client.OperationQuery{RecordIDs: recordIDs})
	if err != nil {
		return nil, fmt.Errorf("inspect locks: %w", err)
	}
	return locks, nil
}

// Latest picks the most recent lock for an operation on a record from an
// Inspect result.
func Latest(locks []*models.OperationLock, recordID int64, operation string) *models.OperationLock {
	for _, l := range locks {
		if l.RecordID == recordID && l.OperationName == operation {
			return l
		}
	}
	return nil
}

func (m *Manager) stamp(l *models.OperationLock, now time.Time) {
	l.LastStep = &now
	l.LastStepSessionID = m.session
	l.LastStepUserAgent = m.userAgent
}

// Acquire claims the operation for this session. A lock actively held by
// another session yields *HeldError and one this process is still running
// yields ErrRunning; anything else is reclaimed or created.
func (m *Manager) Acquire(ctx context.Context, operation string, recordID int64) (lock *models.OperationLock, err error) {
	if !models.ValidOperation(operation) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownOperation, operation)
	}
	opID := models.OperationID(operation, recordID)

	m.mu.Lock()
	if m.active[opID] {
		m.mu.Unlock()
		return nil, fmt.Errorf("acquire %s: %w", opID, ErrRunning)
	}
	m.active[opID] = true
	m.mu.Unlock()

	defer func() {
		if err != nil {
			m.mu.Lock()
			delete(m.active, opID)
			m.mu.Unlock()
		}
	}()

	found, err := m.store.GetOperations(ctx, client.OperationQuery{OperationID: opID})
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", opID, err)
	}

	var existing *models.OperationLock
	if len(found) > 0 {
		existing = found[0]
	}

	// the reservation above is ours, so classify the stored lock as if idle
	state := m.classifyStored(existing)
	if state == StateForeign {
		return nil, &HeldError{Lock: existing}
	}

	now := m.now()
	if existing == nil {
		lock = &models.OperationLock{RecordID: recordID, OperationID: opID, OperationName: operation}
	} else {
		lock = existing
		lock.Finished, lock.Errored, lock.ErrorMessage = false, false, ""
		lock.Progress, lock.ProgressOf = 0, 0
		lock.TextDelta, lock.PageDelta, lock.RecordText, lock.Message = "", "", "", ""
	}
	lock.StartedOn = &now
	lock.StartedOnSessionID = m.session
	lock.StartedOnUserAgent = m.userAgent
	m.stamp(lock, now)

	if existing == nil {
		lock, err = m.store.CreateOperation(ctx, lock)
	} else {
		m.logger.Info(ctx, "reclaiming lock", "operation_id", opID, "state", state.String())
		lock, err = m.store.UpdateOperation(ctx, lock)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", opID, err)
	}

	m.mu.Lock()
	m.current[opID] = lock
	delete(m.closed, opID)
	m.mu.Unlock()

	return lock, nil
}

// Step records progress without waiting for the server. Consecutive steps of
// one operation that have not been written yet collapse into the newest.
func (m *Manager) Step(ctx context.Context, operation string, recordID int64, u models.ProgressUpdate) {
	opID := models.OperationID(operation, recordID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed[opID] {
		return
	}

	base, ok := m.current[opID]
	var lock models.OperationLock
	if ok {
		lock = *base
	} else {
		lock = models.OperationLock{RecordID: recordID, OperationID: opID, OperationName: operation}
	}

	lock.Progress = u.Progress
	lock.ProgressOf = u.ProgressOf
	lock.Page = u.Page
	lock.Pages = u.Pages
	lock.TextDelta = u.TextDelta
	lock.PageDelta = u.PageDelta
	lock.RecordText = u.RecordText
	lock.Message = u.Message
	if u.Err != nil {
		lock.Message = u.Err.Error()
	}
	m.stamp(&lock, m.now())
	m.current[opID] = &lock

	queued := lock
	if _, exists := m.pending[opID]; !exists {
		m.order = append(m.order, opID)
	}
	m.pending[opID] = &queued

	if !m.writing {
		m.writing = true
		go m.writeLoop(context.WithoutCancel(ctx))
	}
}

func (m *Manager) writeLoop(ctx context.Context) {
	for {
		m.mu.Lock()
		if len(m.order) == 0 {
			m.writing = false
			m.idle.Broadcast()
			m.mu.Unlock()
			return
		}
		opID := m.order[0]
		m.order = m.order[1:]
		lock := m.pending[opID]
		delete(m.pending, opID)
		m.mu.Unlock()

		wctx, cancel := context.WithTimeout(ctx, stepWriteTimeout)
		if _, err := m.store.UpdateOperation(wctx, lock); err != nil {
			m.logger.Warn(ctx, "lock step not written", "operation_id", opID, "error", err)
		}
		cancel()
	}
}

// Flush waits until every queued step has been written.
func (m *Manager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		for m.writing {
			m.idle.Wait()
		}
		m.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish writes the terminal state. Steps queued for the operation are
// dropped, in-flight writes are waited for, and later steps are ignored
// until the operation is acquired again.
func (m *Manager) Finish(ctx context.Context, operation string, recordID int64, runErr error) error {
	opID := models.OperationID(operation, recordID)

	m.mu.Lock()
	m.closed[opID] = true
	delete(m.active, opID)
	if _, ok := m.pending[opID]; ok {
		delete(m.pending, opID)
		kept := m.order[:0]
		for _, id := range m.order {
			if id != opID {
				kept = append(kept, id)
			}
		}
		m.order = kept
	}
	base, ok := m.current[opID]
	m.mu.Unlock()

	if err := m.Flush(ctx); err != nil {
		return fmt.Errorf("finish %s: %w", opID, err)
	}

	var lock models.OperationLock
	if ok {
		lock = *base
	} else {
		lock = models.OperationLock{RecordID: recordID, OperationID: opID, OperationName: operation}
	}
	lock.Finished = runErr == nil
	lock.Errored = runErr != nil
	lock.ErrorMessage = ""
	if runErr != nil {
		lock.ErrorMessage = runErr.Error()
	}
	lock.TextDelta = ""
	m.stamp(&lock, m.now())

	saved, err := m.store.UpdateOperation(ctx, &lock)
	if err != nil {
		return fmt.Errorf("finish %s: %w", opID, err)
	}

	m.mu.Lock()
	m.current[opID] = saved
	m.mu.Unlock()
	return nil
}
