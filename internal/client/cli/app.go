package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/config"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/queue"
	"github.com/dmitrijs2005/recordkeeper/internal/client/trigger"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/fatih/color"
	"golang.org/x/term"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

type RecordService interface {
	Get(ctx context.Context, id int64) (*models.Record, error)
	List(ctx context.Context, folderID int64) ([]*models.Record, error)
	Refresh(ctx context.Context, folderID int64) ([]*models.Record, bool, error)
	Delete(ctx context.Context, rec *models.Record) error
	AddAttachment(ctx context.Context, folderID int64, path string) (*models.Record, error)
}

type Queue interface {
	Enqueue(rec *models.Record, cb queue.Callback) bool
	Kick(ctx context.Context)
	Len() int
	Queued() []int64
}

type Translator interface {
	Translate(ctx context.Context, rec *models.Record, language string) (*models.Record, error)
}

type Progress interface {
	Snapshot(id int64) (models.Progress, bool)
	History(id int64) []models.Progress
}

type Evaluator interface {
	Evaluate(ctx context.Context, records []*models.Record) (trigger.Result, error)
}

type Deps struct {
	Records    RecordService
	Queue      Queue
	Translator Translator
	Progress   Progress
	Trigger    Evaluator
	Logger     logging.Logger
}

type App struct {
	config     *config.Config
	records    RecordService
	queue      Queue
	translator Translator
	progress   Progress
	trigger    Evaluator
	logger     logging.Logger
	reader     *bufio.Reader
	out        io.Writer

	mu     sync.Mutex
	mode   Mode
	loaded map[int64]*models.Record
	order  []int64
}

func NewApp(c *config.Config, d Deps, in io.Reader, out io.Writer) *App {
	if !isTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
	return &App{
		config:     c,
		records:    d.Records,
		queue:      d.Queue,
		translator: d.Translator,
		progress:   d.Progress,
		trigger:    d.Trigger,
		logger:     d.Logger.With("module", "cli"),
		reader:     bufio.NewReader(in),
		out:        out,
		mode:       ModeOffline,
		loaded:     map[int64]*models.Record{},
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.logger.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// merge replaces the loaded folder with recs. Records that are already
// loaded keep their operation state.
func (a *App) merge(recs []*models.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	loaded := make(map[int64]*models.Record, len(recs))
	order := make([]int64, 0, len(recs))
	for _, r := range recs {
		if old, ok := a.loaded[r.ID]; ok {
			r.CopyTransient(old)
		}
		loaded[r.ID] = r
		order = append(order, r.ID)
	}
	a.loaded = loaded
	a.order = order
}

func (a *App) put(rec *models.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.loaded[rec.ID]; !ok {
		a.order = append(a.order, rec.ID)
	}
	a.loaded[rec.ID] = rec
}

func (a *App) remove(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.loaded, id)
	for i, v := range a.order {
		if v == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *App) snapshot() []*models.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	recs := make([]*models.Record, 0, len(a.order))
	for _, id := range a.order {
		recs = append(recs, a.loaded[id])
	}
	return recs
}

// lookup prefers the loaded record so queue state stays on one pointer.
func (a *App) lookup(ctx context.Context, id int64) (*models.Record, error) {
	a.mu.Lock()
	rec, ok := a.loaded[id]
	a.mu.Unlock()
	if ok {
		return rec, nil
	}
	rec, err := a.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.put(rec)
	return rec, nil
}

// sync reloads the folder (always when force is set, otherwise only when the
// server reports a change) and runs the auto-trigger over it.
func (a *App) sync(ctx context.Context, force bool) error {
	var (
		recs    []*models.Record
		changed bool
		err     error
	)
	if force {
		recs, err = a.records.List(ctx, a.config.FolderID)
		changed = err == nil
	} else {
		recs, changed, err = a.records.Refresh(ctx, a.config.FolderID)
	}
	if err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)

	if changed {
		a.merge(recs)
	}

	res, err := a.trigger.Evaluate(ctx, a.snapshot())
	if err != nil {
		a.logger.Warn(ctx, "auto trigger failed", "error", err)
		return nil
	}
	if len(res.Enqueued) > 0 || len(res.Translated) > 0 {
		a.logger.Info(ctx, "auto trigger", "enqueued", res.Enqueued, "translated", res.Translated, "observed", res.Observed)
	}
	return nil
}

func (a *App) StartRefreshWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.sync(ctx, false); err != nil {
				a.logger.Warn(ctx, "refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) status() string {
	return "(" + string(a.Mode()) + ")"
}

// Run loads the folder, starts the background refresh and blocks in the
// REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to recordkeeper (type 'help' for commands)")

	if err := a.sync(ctx, true); err != nil {
		a.logger.Warn(ctx, "initial load failed", "error", err)
	}

	go a.StartRefreshWatcher(ctx, a.config.RefreshInterval)

	runREPL(ctx, a, a.status, a.reader)
}
