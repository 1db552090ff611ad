// Package httpapi serves the client's local status API: queue contents,
// per-record progress, and manual parse and translate triggers.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/queue"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 5 * time.Second

type Records interface {
	Get(ctx context.Context, id int64) (*models.Record, error)
	LastRefresh(ctx context.Context, folderID int64) (*time.Time, error)
	HasChanged(ctx context.Context, folderID int64, since *time.Time) (bool, error)
}

type Queue interface {
	Enqueue(rec *models.Record, cb queue.Callback) bool
	Kick(ctx context.Context)
	Len() int
	Queued() []int64
}

type Progress interface {
	Snapshot(id int64) (models.Progress, bool)
	History(id int64) []models.Progress
}

type Translator interface {
	Translate(ctx context.Context, rec *models.Record, language string) (*models.Record, error)
}

type Server struct {
	address    string
	language   string
	records    Records
	queue      Queue
	progress   Progress
	translator Translator
	logger     logging.Logger

	// base outlives requests; queue drains started over HTTP run under it.
	base context.Context
}

func NewServer(addr, language string, recs Records, q Queue, p Progress, tr Translator, l logging.Logger) *Server {
	return &Server{
		address:    addr,
		language:   language,
		records:    recs,
		queue:      q,
		progress:   p,
		translator: tr,
		logger:     l.With("module", "httpapi"),
		base:       context.Background(),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/queue", s.getQueue)

	r.Route("/records/{id}", func(r chi.Router) {
		r.Get("/progress", s.getProgress)
		r.Post("/parse", s.postParse)
		r.Post("/translate", s.postTranslate)
	})

	r.Get("/folders/{id}/last-update", s.getLastUpdate)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.base = ctx
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping status API...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting status API", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
