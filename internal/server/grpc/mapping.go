package grpc

import (
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
	"github.com/dmitrijs2005/recordkeeper/internal/wire"
)

func recordFromWire(w wire.Record) *models.Record {
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
		r.JSON = []byte(w.JSON)
	}
	for _, e := range w.Extra {
		r.Extra = append(r.Extra, models.Extra{Type: e.Type, Value: e.Value})
	}
	for _, a := range w.Attachments {
		r.Attachments = append(r.Attachments, models.Attachment(a))
	}
	return r
}

func recordToWire(r *models.Record) wire.Record {
	w := wire.Record{
		ID:                 r.ID,
		FolderID:           r.FolderID,
		Title:              r.Title,
		Description:        r.Description,
		Type:               r.Type,
		Tags:               r.Tags,
		Text:               r.Text,
		JSON:               r.JSON,
		Transcription:      r.Transcription,
		Checksum:           r.Checksum,
		ChecksumLastParsed: r.ChecksumLastParsed,
		EventDate:          r.EventDate,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	for _, e := range r.Extra {
		w.Extra = append(w.Extra, wire.Extra{Type: e.Type, Value: e.Value})
	}
	for _, a := range r.Attachments {
		w.Attachments = append(w.Attachments, wire.Attachment(a))
	}
	return w
}

func operationFromWire(w wire.OperationLock) *models.OperationLock {
	op := models.OperationLock(w)
	return &op
}

func operationToWire(op *models.OperationLock) wire.OperationLock {
	return wire.OperationLock(*op)
}

func queryFromWire(q wire.OperationQuery) models.OperationQuery {
	return models.OperationQuery{RecordID: q.RecordID, RecordIDs: q.RecordIDs, OperationID: q.OperationID}
}
