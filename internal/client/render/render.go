// Package render turns a record's attachments into per-page blobs for the
// parse providers and caches the result locally.
package render

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/repositories/pages"
	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
	"github.com/dmitrijs2005/recordkeeper/internal/filex"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/dmitrijs2005/recordkeeper/internal/netx"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const downloadConcurrency = 4

// URLSource resolves storage keys to presigned download URLs.
type URLSource interface {
	GetDownloadURL(ctx context.Context, storageKey string) (string, error)
}

var splitPDF = splitPDFPages

// splitPDFPages writes data to a scratch directory and splits it into
// single-page documents with pdfcpu.
func splitPDFPages(data []byte) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "recordkeeper-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	count, err := api.PageCountFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := api.SplitFile(src, dir, 1, nil); err != nil {
		return nil, fmt.Errorf("failed to split pdf: %w", err)
	}

	out := make([][]byte, 0, count)
	for i := 1; i <= count; i++ {
		b, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("document_%d.pdf", i)))
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

type Renderer struct {
	db           *sql.DB
	cache        pages.Repository
	urls         URLSource
	databaseHash string
	httpClient   *http.Client
	logger       logging.Logger

	group singleflight.Group
}

func NewRenderer(db *sql.DB, urls URLSource, databaseHash string, httpClient *http.Client, l logging.Logger) *Renderer {
	return &Renderer{
		db:           db,
		cache:        pages.NewSQLiteRepository(db),
		urls:         urls,
		databaseHash: databaseHash,
		httpClient:   httpClient,
		logger:       l.With("module", "render"),
	}
}

// Render returns the pages of rec's attachments in attachment order.
// Concurrent calls for the same attachment set share one render.
func (r *Renderer) Render(ctx context.Context, rec *models.Record) ([]models.PageImage, error) {
	if len(rec.Attachments) == 0 {
		return nil, nil
	}
	key := rec.AttachmentsKey(r.databaseHash)

	v, err, shared := r.group.Do(key, func() (any, error) {
		cached, err := r.cache.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(cached) > 0 {
			return cached, nil
		}

		rendered, err := r.render(ctx, rec.Attachments)
		if err != nil {
			return nil, err
		}

		err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return pages.NewSQLiteRepository(tx).Put(ctx, key, rendered)
		})
		if err != nil {
			r.logger.Warn(ctx, "page cache not written", "key", key, "error", err)
		}
		return rendered, nil
	})
	if err != nil {
		return nil, fmt.Errorf("render record %d: %w", rec.ID, err)
	}
	if shared {
		r.logger.Debug(ctx, "render shared", "record_id", rec.ID)
	}
	return v.([]models.PageImage), nil
}

// Invalidate drops the cached pages of rec.
func (r *Renderer) Invalidate(ctx context.Context, rec *models.Record) error {
	return r.cache.Delete(ctx, rec.AttachmentsKey(r.databaseHash))
}

func (r *Renderer) render(ctx context.Context, attachments []models.Attachment) ([]models.PageImage, error) {
	blobs := make([][]byte, len(attachments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for i, a := range attachments {
		g.Go(func() error {
			url, err := r.urls.GetDownloadURL(gctx, a.StorageKey)
			if err != nil {
				return fmt.Errorf("attachment %s: %w", a.ID, err)
			}
			data, err := netx.DownloadFromPresignedURL(gctx, r.httpClient, url)
			if err != nil {
				return fmt.Errorf("attachment %s: %w", a.ID, err)
			}
			blobs[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.PageImage
	for i, a := range attachments {
		mimeType := a.MimeType
		if mimeType == "" {
			mimeType = filex.DetectMIME(a.DisplayName, blobs[i])
		}

		if !filex.IsPDF(mimeType) {
			out = append(out, models.PageImage{Page: len(out) + 1, MimeType: mimeType, Data: blobs[i]})
			continue
		}

		split, err := splitPDF(blobs[i])
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", a.ID, err)
		}
		for _, p := range split {
			out = append(out, models.PageImage{Page: len(out) + 1, MimeType: mimeType, Data: p})
		}
	}
	return out, nil
}
