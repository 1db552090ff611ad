package pipeline

import (
	"context"
	"database/sql"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/client"
	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/locks"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/progress"
	"github.com/dmitrijs2005/recordkeeper/internal/client/providers"
	"github.com/dmitrijs2005/recordkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/recordkeeper/internal/client/services"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// server is an in-memory stand-in for both the record and the lock side of
// the gRPC client.
type server struct {
	services.Store
	locks.Store

	mu      sync.Mutex
	records map[int64]*models.Record
	nextID  int64
	ops     map[string]*models.OperationLock
	updates []models.OperationLock
	deleted []int64
}

func newServer() *server {
	return &server{records: map[int64]*models.Record{}, ops: map[string]*models.OperationLock{}}
}

func (s *server) SaveRecord(ctx context.Context, r *models.Record) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	c.UpdatedAt = time.Now()
	c.ClearTransient()
	c.Extra = append([]models.Extra(nil), r.Extra...)
	s.records[c.ID] = &c
	out := c
	return &out, nil
}

func (s *server) DeleteRecord(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.records, id)
	return nil
}

func (s *server) record(id int64) *models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *server) GetOperations(ctx context.Context, q client.OperationQuery) ([]*models.OperationLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.ops[q.OperationID]; ok {
		c := *l
		return []*models.OperationLock{&c}, nil
	}
	return nil, nil
}

func (s *server) CreateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *op
	c.ID = int64(len(s.ops) + 1)
	s.ops[c.OperationID] = &c
	out := c
	return &out, nil
}

func (s *server) UpdateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *op
	s.ops[c.OperationID] = &c
	s.updates = append(s.updates, c)
	out := c
	return &out, nil
}

func (s *server) lock(id string) *models.OperationLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops[id]
}

type fakeRenderer struct {
	pages []models.PageImage
	err   error
}

func (f fakeRenderer) Render(ctx context.Context, rec *models.Record) ([]models.PageImage, error) {
	return f.pages, f.err
}

// scripted answers requests in order; a request past the script gets err.
type scripted struct {
	mu       sync.Mutex
	scripts  [][]string
	err      error
	requests []llm.Request
}

func (s *scripted) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return func(yield func(string, error) bool) {
		if n >= len(s.scripts) {
			if s.err != nil {
				yield("", s.err)
			}
			return
		}
		for _, d := range s.scripts[n] {
			if !yield(d, nil) {
				return
			}
		}
	}
}

type harness struct {
	srv        *server
	pipeline   *Pipeline
	records    services.RecordService
	reconciler *progress.Reconciler
	manager    *locks.Manager
}

func newHarness(t *testing.T, providerName string, c llm.Completion, rnd Renderer) *harness {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	srv := newServer()
	recs := services.NewRecordService(srv, metadata.NewSQLiteRepository(db), "dbhash", 1, nil, logging.Nop{})
	mgr := locks.NewManager(srv, "session-a", "test", 5*time.Minute, logging.Nop{})
	rec := progress.NewReconciler(mgr, recs, logging.Nop{})

	prov, err := providers.New(providerName, providers.Deps{Completion: c, Reporter: rec, Finalizer: recs, DatabaseHash: "dbhash"})
	require.NoError(t, err)

	return &harness{
		srv:        srv,
		pipeline:   New(mgr, rec, rnd, prov, c, recs, logging.Nop{}),
		records:    recs,
		reconciler: rec,
		manager:    mgr,
	}
}

func twoPages() []models.PageImage {
	return []models.PageImage{
		{Page: 1, MimeType: "application/pdf", Data: []byte("1")},
		{Page: 2, MimeType: "application/pdf", Data: []byte("2")},
	}
}
