// Package app wires the recordkeeper client: local cache, server client,
// LLM backend, the parse/translate pipeline with its queue and auto-trigger,
// the status API and the REPL.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/cli"
	"github.com/dmitrijs2005/recordkeeper/internal/client/client"
	"github.com/dmitrijs2005/recordkeeper/internal/client/config"
	"github.com/dmitrijs2005/recordkeeper/internal/client/httpapi"
	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/locks"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/pipeline"
	"github.com/dmitrijs2005/recordkeeper/internal/client/progress"
	"github.com/dmitrijs2005/recordkeeper/internal/client/providers"
	"github.com/dmitrijs2005/recordkeeper/internal/client/queue"
	"github.com/dmitrijs2005/recordkeeper/internal/client/render"
	"github.com/dmitrijs2005/recordkeeper/internal/client/services"
	"github.com/dmitrijs2005/recordkeeper/internal/client/trigger"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/google/uuid"
)

const (
	downloadTimeout = 2 * time.Minute
	flushTimeout    = 10 * time.Second
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	session    string
	db         *sql.DB
	api        *client.GRPCClient
	completion llm.Completion
	locks      *locks.Manager
	queue      *queue.Queue
	status     *httpapi.Server
	cli        *cli.App
}

// NewApp builds every component. The server connection is lazy, so an
// unreachable server does not fail startup.
func NewApp(ctx context.Context, c *config.Config, stdin io.Reader, stdout io.Writer) (*App, error) {
	logger := logging.NewText(os.Stderr, slog.LevelInfo)
	session := uuid.NewString()

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	repos := client.NewRepositories(db)

	api, err := client.NewRecordKeeperClient(c.ServerEndpointAddr, session, c.UserAgent)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("server client error: %w", err)
	}

	closeAll := func() {
		_ = api.Close()
		_ = db.Close()
	}

	// streams may run for minutes; only blob transfers get a deadline
	completion, err := llm.New(llm.Options{
		Backend:       c.LLMBackend,
		Model:         c.Model,
		VertexProject: c.VertexProject,
		VertexRegion:  c.VertexRegion,
		OpenAIAPIKey:  c.OpenAIAPIKey,
		OpenAIBaseURL: c.OpenAIBaseURL,
		HTTPClient:    &http.Client{},
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("llm backend error: %w", err)
	}

	dbHash := models.DatabaseHash(c.DatabaseID)
	httpClient := &http.Client{Timeout: downloadTimeout}

	records := services.NewRecordService(api, repos.Metadata, dbHash, c.FolderID, httpClient, logger)
	lockManager := locks.NewManager(api, session, c.UserAgent, c.StaleAfter, logger)
	reconciler := progress.NewReconciler(lockManager, records, logger)
	renderer := render.NewRenderer(db, api, dbHash, httpClient, logger)

	provider, err := providers.New(c.OCRProvider, providers.Deps{
		Completion:   completion,
		Reporter:     reconciler,
		Finalizer:    records,
		DatabaseHash: dbHash,
		OCRLanguage:  c.OCRLanguage,
		Logger:       logger,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("ocr provider error: %w", err)
	}

	pl := pipeline.New(lockManager, reconciler, renderer, provider, completion, records, logger)
	q := queue.New(pl, logger)
	trg := trigger.New(lockManager, reconciler, q, pl, trigger.Options{
		AutoParse:     c.AutoParse,
		AutoTranslate: c.AutoTranslate,
		Language:      c.TargetLanguage,
	}, logger)

	var status *httpapi.Server
	if c.StatusAddr != "" {
		status = httpapi.NewServer(c.StatusAddr, c.TargetLanguage, records, q, reconciler, pl, logger)
	}

	repl := cli.NewApp(c, cli.Deps{
		Records:    records,
		Queue:      q,
		Translator: pl,
		Progress:   reconciler,
		Trigger:    trg,
		Logger:     logger,
	}, stdin, stdout)

	return &App{
		config:     c,
		logger:     logger,
		session:    session,
		db:         db,
		api:        api,
		completion: completion,
		locks:      lockManager,
		queue:      q,
		status:     status,
		cli:        repl,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startStatusServer(ctx context.Context) {
	if err := app.status.Run(ctx); err != nil {
		app.logger.Error(ctx, "status API stopped", "error", err)
	}
}

// Run blocks until the REPL exits or a signal arrives, then stops the queue,
// flushes pending lock writes and closes connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "session", app.session)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	if app.status != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startStatusServer(ctx)
		}()
	}

	// the REPL blocks on stdin, so a signal must not wait for it
	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		app.cli.Run(ctx)
	}()

	select {
	case <-replDone:
	case <-ctx.Done():
	}
	cancelFunc()

	wg.Wait()
	app.Close()
}

// Close waits for running drains and releases resources.
func (app *App) Close() {
	ctx := context.Background()

	app.queue.Wait()

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := app.locks.Flush(flushCtx); err != nil {
		app.logger.Warn(ctx, "pending lock writes dropped", "error", err)
	}

	if c, ok := app.completion.(io.Closer); ok {
		_ = c.Close()
	}
	if err := app.api.Close(); err != nil {
		app.logger.Error(ctx, "error closing server connection", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
