package render

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE page_cache (
  cache_key  TEXT    NOT NULL,
  page       INTEGER NOT NULL,
  mime_type  TEXT    NOT NULL,
  data       BLOB    NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (cache_key, page)
);`)
	require.NoError(t, err)
	return db
}

type blobServer struct {
	srv   *httptest.Server
	hits  atomic.Int32
	blobs map[string][]byte
}

func newBlobServer(t *testing.T, blobs map[string][]byte) *blobServer {
	b := &blobServer{blobs: blobs}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		data, ok := b.blobs[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

type urlSource struct {
	base string
	err  error
}

func (u urlSource) GetDownloadURL(ctx context.Context, key string) (string, error) {
	return u.base + "/" + key, u.err
}

func stubSplit(t *testing.T) {
	orig := splitPDF
	t.Cleanup(func() { splitPDF = orig })
	splitPDF = func(data []byte) ([][]byte, error) {
		return bytes.Split(data, []byte("|")), nil
	}
}

func TestRender_SplitsPDFsAndKeepsImages(t *testing.T) {
	stubSplit(t)
	bs := newBlobServer(t, map[string][]byte{"a": []byte("p1|p2"), "b": []byte("png")})
	r := NewRenderer(setupDB(t), urlSource{base: bs.srv.URL}, "db", nil, logging.Nop{})

	rec := &models.Record{ID: 1, Attachments: []models.Attachment{
		{ID: "1", StorageKey: "a", MimeType: "application/pdf"},
		{ID: "2", StorageKey: "b", MimeType: "image/png"},
	}}

	got, err := r.Render(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.PageImage{Page: 1, MimeType: "application/pdf", Data: []byte("p1")}, got[0])
	assert.Equal(t, models.PageImage{Page: 2, MimeType: "application/pdf", Data: []byte("p2")}, got[1])
	assert.Equal(t, models.PageImage{Page: 3, MimeType: "image/png", Data: []byte("png")}, got[2])
}

func TestRender_UsesCache(t *testing.T) {
	stubSplit(t)
	bs := newBlobServer(t, map[string][]byte{"a": []byte("p1")})
	r := NewRenderer(setupDB(t), urlSource{base: bs.srv.URL}, "db", nil, logging.Nop{})
	rec := &models.Record{ID: 1, Attachments: []models.Attachment{{ID: "1", StorageKey: "a", MimeType: "application/pdf"}}}

	_, err := r.Render(context.Background(), rec)
	require.NoError(t, err)
	got, err := r.Render(context.Background(), rec)
	require.NoError(t, err)

	assert.Len(t, got, 1)
	assert.Equal(t, int32(1), bs.hits.Load())

	require.NoError(t, r.Invalidate(context.Background(), rec))
	_, err = r.Render(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int32(2), bs.hits.Load())
}

func TestRender_ConcurrentCallsShareWork(t *testing.T) {
	stubSplit(t)
	bs := newBlobServer(t, map[string][]byte{"a": []byte("x")})
	r := NewRenderer(setupDB(t), urlSource{base: bs.srv.URL}, "db", nil, logging.Nop{})
	rec := &models.Record{ID: 1, Attachments: []models.Attachment{{ID: "1", StorageKey: "a", MimeType: "image/jpeg"}}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Render(context.Background(), rec)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, bs.hits.Load(), int32(8))
	assert.GreaterOrEqual(t, bs.hits.Load(), int32(1))
}

func TestRender_NoAttachments(t *testing.T) {
	r := NewRenderer(setupDB(t), urlSource{}, "db", nil, logging.Nop{})
	got, err := r.Render(context.Background(), &models.Record{ID: 1, Transcription: "t"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRender_Errors(t *testing.T) {
	stubSplit(t)
	bs := newBlobServer(t, map[string][]byte{})
	rec := &models.Record{ID: 9, Attachments: []models.Attachment{{ID: "1", StorageKey: "missing", MimeType: "image/png"}}}

	r := NewRenderer(setupDB(t), urlSource{base: bs.srv.URL}, "db", nil, logging.Nop{})
	_, err := r.Render(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 9")

	boom := errors.New("presign failed")
	r = NewRenderer(setupDB(t), urlSource{err: boom}, "db", nil, logging.Nop{})
	_, err = r.Render(context.Background(), rec)
	assert.ErrorIs(t, err, boom)
}

func TestRender_DetectsMissingMimeType(t *testing.T) {
	stubSplit(t)
	bs := newBlobServer(t, map[string][]byte{"a": []byte("one|two")})
	r := NewRenderer(setupDB(t), urlSource{base: bs.srv.URL}, "db", nil, logging.Nop{})
	rec := &models.Record{ID: 1, Attachments: []models.Attachment{{ID: "1", StorageKey: "a", DisplayName: "scan.pdf"}}}

	got, err := r.Render(context.Background(), rec)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
