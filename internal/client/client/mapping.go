package client

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/wire"
)

func recordToWire(r *models.Record) (wire.Record, error) {
	w := wire.Record{
		ID:                 r.ID,
		FolderID:           r.FolderID,
		Title:              r.Title,
		Description:        r.Description,
		Type:               r.Type,
		Tags:               r.Tags,
		Text:               r.Text,
		Transcription:      r.Transcription,
		Checksum:           r.Checksum,
		ChecksumLastParsed: r.ChecksumLastParsed,
		EventDate:          r.EventDate,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.JSON != nil {
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return wire.Record{}, fmt.Errorf("error encoding extraction of record %d: %w", r.ID, err)
		}
		w.JSON = b
	}
	for _, e := range r.Extra {
		w.Extra = append(w.Extra, wire.Extra{Type: e.Type, Value: e.Value})
	}
	for _, a := range r.Attachments {
		w.Attachments = append(w.Attachments, wire.Attachment(a))
	}
	return w, nil
}

func recordFromWire(w wire.Record) (*models.Record, error) {
	r := &models.Record{
		ID:                 w.ID,
		FolderID:           w.FolderID,
		Title:              w.Title,
		Description:        w.Description,
		Type:               w.Type,
		Tags:               w.Tags,
		Text:               w.Text,
		Transcription:      w.Transcription,
		Checksum:           w.Checksum,
		ChecksumLastParsed: w.ChecksumLastParsed,
		EventDate:          w.EventDate,
		CreatedAt:          w.CreatedAt,
		UpdatedAt:          w.UpdatedAt,
	}
	if len(w.JSON) > 0 && string(w.JSON) != "null" {
		if err := json.Unmarshal(w.JSON, &r.JSON); err != nil {
			return nil, fmt.Errorf("error decoding extraction of record %d: %w", w.ID, err)
		}
	}
	for _, e := range w.Extra {
		r.Extra = append(r.Extra, models.Extra{Type: e.Type, Value: e.Value})
	}
	for _, a := range w.Attachments {
		r.Attachments = append(r.Attachments, models.Attachment(a))
	}
	return r, nil
}

func operationToWire(op *models.OperationLock) wire.OperationLock {
	return wire.OperationLock(*op)
}

func operationFromWire(w wire.OperationLock) *models.OperationLock {
	op := models.OperationLock(w)
	return &op
}

func queryToWire(q OperationQuery) wire.OperationQuery {
	return wire.OperationQuery{RecordID: q.RecordID, RecordIDs: q.RecordIDs, OperationID: q.OperationID}
}
