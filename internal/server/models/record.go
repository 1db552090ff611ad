package models

import (
	"strings"
	"time"
)

// PreservedAttachmentsType lists attachment ids a translation shares with its
// source; those blobs survive deletion of the translation.
const PreservedAttachmentsType = "Preserved attachments"

type Extra struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Attachment struct {
	ID          string `json:"id"`
	StorageKey  string `json:"storageKey"`
	DisplayName string `json:"displayName"`
	MimeType    string `json:"mimeType"`
	Size        int64  `json:"size"`
}

// Record is the durable document row. JSON holds the raw structured
// extraction and is nil until the first successful parse.
type Record struct {
	ID                 int64
	FolderID           int64
	Title              string
	Description        string
	Type               string
	Tags               []string
	Text               string
	JSON               []byte
	Transcription      string
	Extra              []Extra
	Attachments        []Attachment
	Checksum           string
	ChecksumLastParsed string
	EventDate          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PreservedAttachmentIDs parses the "Preserved attachments" annotation.
func (r *Record) PreservedAttachmentIDs() map[string]struct{} {
	ids := map[string]struct{}{}
	for _, e := range r.Extra {
		if e.Type != PreservedAttachmentsType {
			continue
		}
		for _, id := range strings.Split(e.Value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids[id] = struct{}{}
			}
		}
	}
	return ids
}

// LastUpdate is the newest modification within a folder.
type LastUpdate struct {
	RecordID  int64
	UpdatedAt time.Time
}
