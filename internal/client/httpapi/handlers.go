package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/go-chi/chi/v5"
)

type queueResponse struct {
	Length  int     `json:"length"`
	Records []int64 `json:"records"`
}

type progressResponse struct {
	RecordID int64             `json:"recordId"`
	Current  *models.Progress  `json:"current"`
	History  []models.Progress `json:"history"`
}

type parseResponse struct {
	RecordID int64 `json:"recordId"`
	Queued   bool  `json:"queued"`
	Length   int   `json:"length"`
}

type lastUpdateResponse struct {
	FolderID    int64      `json:"folderId"`
	LastRefresh *time.Time `json:"lastRefresh"`
	Changed     bool       `json:"changed"`
}

type recordResponse struct {
	ID           int64      `json:"id"`
	FolderID     int64      `json:"folderId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Type         string     `json:"type"`
	Tags         []string   `json:"tags"`
	EventDate    *time.Time `json:"eventDate,omitempty"`
	Text         string     `json:"text"`
	ReferenceIDs []int64    `json:"referenceIds,omitempty"`
	Language     string     `json:"language,omitempty"`
}

func toRecordResponse(r *models.Record) recordResponse {
	lang, _ := r.GetExtra(models.ExtraTranslationLanguage)
	return recordResponse{
		ID:           r.ID,
		FolderID:     r.FolderID,
		Title:        r.Title,
		Description:  r.Description,
		Type:         r.Type,
		Tags:         r.Tags,
		EventDate:    r.EventDate,
		Text:         r.Text,
		ReferenceIDs: r.ReferenceIDs(),
		Language:     lang,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps pipeline errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrOperationInProgress):
		return http.StatusConflict
	case errors.Is(err, common.ErrNothingToProcess), errors.Is(err, common.ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, queueResponse{Length: s.queue.Len(), Records: s.queue.Queued()})
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	resp := progressResponse{RecordID: id, History: s.progress.History(id)}
	if snap, ok := s.progress.Snapshot(id); ok {
		resp.Current = &snap
	}
	if resp.History == nil {
		resp.History = []models.Progress{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) (*models.Record, bool) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return nil, false
	}
	rec, err := s.records.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return rec, true
}

func (s *Server) postParse(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	if !rec.Processable() {
		writeError(w, http.StatusUnprocessableEntity, common.ErrNothingToProcess.Error())
		return
	}

	queued := s.queue.Enqueue(rec, nil)
	if queued {
		s.queue.Kick(s.base)
	}
	writeJSON(w, http.StatusAccepted, parseResponse{RecordID: rec.ID, Queued: queued, Length: s.queue.Len()})
}

func (s *Server) postTranslate(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}

	language := r.URL.Query().Get("language")
	if language == "" {
		language = s.language
	}

	tr, err := s.translator.Translate(r.Context(), rec, language)
	if err != nil {
		s.logger.Warn(r.Context(), "translation failed", "record_id", rec.ID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(tr))
}

func (s *Server) getLastUpdate(w http.ResponseWriter, r *http.Request) {
	folderID, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid folder id")
		return
	}

	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = &t
	} else {
		last, err := s.records.LastRefresh(r.Context(), folderID)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		since = last
	}

	changed, err := s.records.HasChanged(r.Context(), folderID, since)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lastUpdateResponse{FolderID: folderID, LastRefresh: since, Changed: changed})
}
