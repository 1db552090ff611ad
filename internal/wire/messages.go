package wire

import (
	"encoding/json"
	"time"
)

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

type Record struct {
	ID                 int64           `json:"id"`
	FolderID           int64           `json:"folderId"`
	Title              string          `json:"title,omitempty"`
	Description        string          `json:"description,omitempty"`
	Type               string          `json:"type,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	Text               string          `json:"text,omitempty"`
	JSON               json.RawMessage `json:"json,omitempty"`
	Transcription      string          `json:"transcription,omitempty"`
	Extra              []Extra         `json:"extra,omitempty"`
	Attachments        []Attachment    `json:"attachments,omitempty"`
	Checksum           string          `json:"checksum,omitempty"`
	ChecksumLastParsed string          `json:"checksumLastParsed,omitempty"`
	EventDate          *time.Time      `json:"eventDate,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

type OperationLock struct {
	ID                 int64      `json:"id,omitempty"`
	RecordID           int64      `json:"recordId"`
	OperationID        string     `json:"operationId"`
	OperationName      string     `json:"operationName"`
	Progress           int        `json:"progress"`
	ProgressOf         int        `json:"progressOf"`
	Page               int        `json:"page"`
	Pages              int        `json:"pages"`
	Message            string     `json:"message,omitempty"`
	TextDelta          string     `json:"textDelta,omitempty"`
	PageDelta          string     `json:"pageDelta,omitempty"`
	RecordText         string     `json:"recordText,omitempty"`
	StartedOn          *time.Time `json:"startedOn,omitempty"`
	StartedOnUserAgent string     `json:"startedOnUserAgent,omitempty"`
	StartedOnSessionID string     `json:"startedOnSessionId,omitempty"`
	LastStep           *time.Time `json:"lastStep,omitempty"`
	LastStepUserAgent  string     `json:"lastStepUserAgent,omitempty"`
	LastStepSessionID  string     `json:"lastStepSessionId,omitempty"`
	Finished           bool       `json:"finished"`
	Errored            bool       `json:"errored"`
	ErrorMessage       string     `json:"errorMessage,omitempty"`
}

// OperationQuery addresses locks by record id(s) or operation id. The first
// non-empty selector wins: OperationID, RecordID, RecordIDs.
type OperationQuery struct {
	RecordID    int64   `json:"recordId,omitempty"`
	RecordIDs   []int64 `json:"recordIds,omitempty"`
	OperationID string  `json:"operationId,omitempty"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type GetOperationsRequest struct {
	Query OperationQuery `json:"query"`
}

type GetOperationsResponse struct {
	Operations []OperationLock `json:"operations"`
}

type OperationRequest struct {
	Operation OperationLock `json:"operation"`
}

type OperationResponse struct {
	Operation OperationLock `json:"operation"`
}

type DeleteOperationsRequest struct {
	Query OperationQuery `json:"query"`
}

type DeleteOperationsResponse struct {
	Deleted int64 `json:"deleted"`
}

type SaveRecordRequest struct {
	Record Record `json:"record"`
}

type RecordResponse struct {
	Record Record `json:"record"`
}

type GetRecordRequest struct {
	ID int64 `json:"id"`
}

type ListRecordsRequest struct {
	FolderID int64 `json:"folderId"`
}

type ListRecordsResponse struct {
	Records []Record `json:"records"`
}

type DeleteRecordRequest struct {
	ID int64 `json:"id"`
}

type DeleteRecordResponse struct{}

type GetLastUpdateRequest struct {
	FolderID int64 `json:"folderId"`
}

// GetLastUpdateResponse is empty (Found=false) for a folder with no records.
type GetLastUpdateResponse struct {
	Found     bool      `json:"found"`
	RecordID  int64     `json:"recordId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type GetUploadURLRequest struct{}

type GetUploadURLResponse struct {
	StorageKey string `json:"storageKey"`
	URL        string `json:"url"`
}

type GetDownloadURLRequest struct {
	StorageKey string `json:"storageKey"`
}

type GetDownloadURLResponse struct {
	URL string `json:"url"`
}
