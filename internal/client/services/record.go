// Package services holds the client-side record service: persistence through
// the server, refresh polling and the finalizer that turns model output into
// record fields.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/providers"
	"github.com/dmitrijs2005/recordkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/filex"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/dmitrijs2005/recordkeeper/internal/netx"
	"github.com/google/uuid"
)

const (
	lastRefreshKeyPrefix = "last_refresh:"
	languageTagPrefix    = "Language: "
)

// Store is the record part of the server client.
type Store interface {
	SaveRecord(ctx context.Context, r *models.Record) (*models.Record, error)
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	ListRecords(ctx context.Context, folderID int64) ([]*models.Record, error)
	DeleteRecord(ctx context.Context, id int64) error
	GetLastUpdate(ctx context.Context, folderID int64) (*time.Time, error)
	GetUploadURL(ctx context.Context) (string, string, error)
}

type RecordService interface {
	Get(ctx context.Context, id int64) (*models.Record, error)
	List(ctx context.Context, folderID int64) ([]*models.Record, error)
	Refresh(ctx context.Context, folderID int64) ([]*models.Record, bool, error)
	LastRefresh(ctx context.Context, folderID int64) (*time.Time, error)
	HasChanged(ctx context.Context, folderID int64, since *time.Time) (bool, error)
	Save(ctx context.Context, rec *models.Record) error
	Delete(ctx context.Context, rec *models.Record) error
	UpdateFromText(ctx context.Context, text string, rec *models.Record, extra []models.Extra) (*models.Record, error)
	AddAttachment(ctx context.Context, folderID int64, path string) (*models.Record, error)
}

type recordService struct {
	store        Store
	metadataRepo metadata.Repository
	databaseHash string
	folderID     int64
	httpClient   *http.Client
	logger       logging.Logger
	now          func() time.Time
}

// NewRecordService builds the service. folderID is where UpdateFromText
// creates records when it is given none.
func NewRecordService(store Store, metadataRepo metadata.Repository, databaseHash string, folderID int64, httpClient *http.Client, l logging.Logger) RecordService {
	return &recordService{
		store:        store,
		metadataRepo: metadataRepo,
		databaseHash: databaseHash,
		folderID:     folderID,
		httpClient:   httpClient,
		logger:       l.With("module", "records"),
		now:          time.Now,
	}
}

func lastRefreshKey(folderID int64) string {
	return lastRefreshKeyPrefix + strconv.FormatInt(folderID, 10)
}

func (s *recordService) Get(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

// List loads the folder and remembers the newest UpdatedAt as the refresh
// mark. Server timestamps are used so client clock skew does not matter.
func (s *recordService) List(ctx context.Context, folderID int64) ([]*models.Record, error) {
	recs, err := s.store.ListRecords(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("list folder %d: %w", folderID, err)
	}

	var newest time.Time
	for _, r := range recs {
		if r.UpdatedAt.After(newest) {
			newest = r.UpdatedAt
		}
	}
	if !newest.IsZero() {
		if err := s.metadataRepo.SetTime(ctx, lastRefreshKey(folderID), newest); err != nil {
			s.logger.Warn(ctx, "refresh mark not stored", "folder_id", folderID, "error", err)
		}
	}
	return recs, nil
}

func (s *recordService) LastRefresh(ctx context.Context, folderID int64) (*time.Time, error) {
	t, ok, err := s.metadataRepo.GetTime(ctx, lastRefreshKey(folderID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// HasChanged reports whether the folder was updated after since. A nil since
// means never loaded.
func (s *recordService) HasChanged(ctx context.Context, folderID int64, since *time.Time) (bool, error) {
	last, err := s.store.GetLastUpdate(ctx, folderID)
	if err != nil {
		return false, fmt.Errorf("last update of folder %d: %w", folderID, err)
	}
	if since == nil {
		return true, nil
	}
	if last == nil {
		return false, nil
	}
	return last.After(*since), nil
}

// Refresh reloads the folder only when the server reports a newer update.
func (s *recordService) Refresh(ctx context.Context, folderID int64) ([]*models.Record, bool, error) {
	since, err := s.LastRefresh(ctx, folderID)
	if err != nil {
		return nil, false, err
	}
	changed, err := s.HasChanged(ctx, folderID, since)
	if err != nil || !changed {
		return nil, false, err
	}
	recs, err := s.List(ctx, folderID)
	if err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func withTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// Save persists rec and refreshes it in place from the server copy,
// keeping its transient operation state.
func (s *recordService) Save(ctx context.Context, rec *models.Record) error {
	rec.UpdateChecksum(s.databaseHash)
	if lang, ok := rec.GetExtra(models.ExtraTranslationLanguage); ok && lang != "" {
		rec.Tags = withTag(rec.Tags, languageTagPrefix+lang)
	}

	saved, err := s.store.SaveRecord(ctx, rec)
	if err != nil {
		return fmt.Errorf("save record %d: %w", rec.ID, err)
	}
	saved.CopyTransient(rec)
	*rec = *saved
	return nil
}

func (s *recordService) Delete(ctx context.Context, rec *models.Record) error {
	if err := s.store.DeleteRecord(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete record %d: %w", rec.ID, err)
	}
	s.logger.Info(ctx, "record deleted", "record_id", rec.ID)
	return nil
}

// UpdateFromText applies composed model output to rec, or to a new record
// in the default folder when rec is nil. An extraction flagged as invalid
// deletes rec and returns common.ErrInvalidDocument.
func (s *recordService) UpdateFromText(ctx context.Context, text string, rec *models.Record, extra []models.Extra) (*models.Record, error) {
	createdAt := s.now()
	if rec != nil && !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt
	}

	ex, err := providers.ParseExtraction(text, createdAt)
	if err != nil {
		if errors.Is(err, common.ErrInvalidDocument) && rec != nil && rec.ID != 0 {
			s.logger.Warn(ctx, "invalid document, removing record", "record_id", rec.ID, "error", err)
			if derr := s.Delete(ctx, rec); derr != nil {
				return nil, errors.Join(err, derr)
			}
		}
		return nil, err
	}

	if rec == nil {
		rec = &models.Record{FolderID: s.folderID, CreatedAt: createdAt}
	}

	rec.JSON = ex.Items
	if rec.JSON == nil {
		rec.JSON = []map[string]any{}
	}
	rec.Text = ex.Markdown
	rec.Type = ex.Type
	rec.EventDate = ex.EventDate
	if ex.Title != "" {
		rec.Title = ex.Title
	}
	if ex.Description != "" {
		rec.Description = ex.Description
	}
	for _, t := range ex.Tags {
		rec.Tags = withTag(rec.Tags, t)
	}
	for _, e := range extra {
		rec.SetExtra(e.Type, e.Value)
	}

	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AddAttachment uploads the file at path and creates a record holding it.
func (s *recordService) AddAttachment(ctx context.Context, folderID int64, path string) (*models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	mimeType := filex.DetectMIME(name, data)

	key, url, err := s.store.GetUploadURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("upload url: %w", err)
	}
	if err := netx.UploadToPresignedURL(ctx, s.httpClient, url, data, mimeType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}

	rec := &models.Record{
		FolderID:  folderID,
		Title:     name,
		CreatedAt: s.now(),
		Attachments: []models.Attachment{{
			ID:          uuid.NewString(),
			StorageKey:  key,
			DisplayName: name,
			MimeType:    mimeType,
			Size:        int64(len(data)),
		}},
	}
	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
