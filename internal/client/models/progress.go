package models

import "time"

// Progress is the snapshot shown for a record under processing.
type Progress struct {
	OperationName              string    `json:"operationName"`
	InProgress                 bool      `json:"inProgress"`
	Error                      string    `json:"error,omitempty"`
	Page                       int       `json:"page"`
	Pages                      int       `json:"pages"`
	Progress                   int       `json:"progress"`
	ProgressOf                 int       `json:"progressOf"`
	TextDelta                  string    `json:"textDelta,omitempty"`
	PageDelta                  string    `json:"pageDelta,omitempty"`
	RecordText                 string    `json:"recordText,omitempty"`
	Message                    string    `json:"message,omitempty"`
	ProcessedOnDifferentDevice bool      `json:"processedOnDifferentDevice"`
	Timestamp                  time.Time `json:"timestamp"`
}

// ProgressUpdate is one tick reported by a provider.
//
// TextDelta is the newest fragment; the reconciler accumulates it. A
// completed page carries PageDelta, and RecordText when the page belongs to
// the record itself.
type ProgressUpdate struct {
	OperationName string
	InProgress    bool
	Progress      int
	ProgressOf    int
	Page          int
	Pages         int
	TextDelta     string
	PageDelta     string
	RecordText    string
	Message       string
	Err           error
}

// PageImage is one rendered page of a record's attachments.
type PageImage struct {
	Page     int
	MimeType string
	Data     []byte
}
