// Package models defines client-side data models used by the recordkeeper
// processing pipeline.
package models

import (
	"strconv"
	"strings"
	"time"
)

// Annotation types written by the pipeline.
const (
	ExtraParsedPages           = "Document parsed pages"
	ExtraPagesTotal            = "Document pages total"
	ExtraLastProcessingStep    = "Last processing step"
	ExtraReferenceRecordIDs    = "Reference record Ids"
	ExtraTranslationLanguage   = "Translation language"
	ExtraPreservedAttachments  = "Preserved attachments"
	extraPageContentPrefix     = "Page "
	extraPageContentSuffix     = " content"
	referenceListSeparator     = ", "
	preservedAttachmentsJoiner = ", "
)

// PageContentType returns the annotation type holding the text of page n.
func PageContentType(n int) string {
	return extraPageContentPrefix + strconv.Itoa(n) + extraPageContentSuffix
}

// IsPageContentType reports whether t is a "Page N content" type.
func IsPageContentType(t string) bool {
	if !strings.HasPrefix(t, extraPageContentPrefix) || !strings.HasSuffix(t, extraPageContentSuffix) {
		return false
	}
	n := strings.TrimSuffix(strings.TrimPrefix(t, extraPageContentPrefix), extraPageContentSuffix)
	_, err := strconv.Atoi(n)
	return err == nil
}

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

// Record is a stored document: attachments, extracted content and
// annotations. The Operation* fields are transient; they are rebuilt from
// the operation lock store and never sent to the server.
type Record struct {
	ID       int64
	FolderID int64

	Title       string
	Description string
	Type        string
	Tags        []string
	EventDate   *time.Time

	Text          string
	JSON          []map[string]any
	Transcription string
	Extra         []Extra
	Attachments   []Attachment

	Checksum           string
	ChecksumLastParsed string

	CreatedAt time.Time
	UpdatedAt time.Time

	OperationName       string
	OperationInProgress bool
	OperationError      string
	OperationProgress   *Progress
}

// GetExtra returns the value of the last annotation of type t.
func (r *Record) GetExtra(t string) (string, bool) {
	for i := len(r.Extra) - 1; i >= 0; i-- {
		if r.Extra[i].Type == t {
			return r.Extra[i].Value, true
		}
	}
	return "", false
}

// SetExtra replaces every annotation of type t with a single one.
func (r *Record) SetExtra(t, value string) {
	r.RemoveExtra(t)
	r.Extra = append(r.Extra, Extra{Type: t, Value: value})
}

func (r *Record) RemoveExtra(t string) {
	kept := make([]Extra, 0, len(r.Extra))
	for _, e := range r.Extra {
		if e.Type != t {
			kept = append(kept, e)
		}
	}
	r.Extra = kept
}

func (r *Record) HasExtra(t string) bool {
	_, ok := r.GetExtra(t)
	return ok
}

// ExtraInt returns an integer annotation, 0 when absent or malformed.
func (r *Record) ExtraInt(t string) int {
	v, ok := r.GetExtra(t)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// PageContents returns the "Page N content" annotations ordered by N.
// Numbering stops at the first missing page.
func (r *Record) PageContents() []string {
	var pages []string
	for n := 1; ; n++ {
		v, ok := r.GetExtra(PageContentType(n))
		if !ok {
			return pages
		}
		pages = append(pages, v)
	}
}

// PageExtras returns copies of every page content annotation.
func (r *Record) PageExtras() []Extra {
	var out []Extra
	for _, e := range r.Extra {
		if IsPageContentType(e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// ReferenceIDs parses the "Reference record Ids" list.
func (r *Record) ReferenceIDs() []int64 {
	v, ok := r.GetExtra(ExtraReferenceRecordIDs)
	if !ok {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddReferenceID appends id to the "Reference record Ids" list once.
func (r *Record) AddReferenceID(id int64) {
	ids := r.ReferenceIDs()
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	ids = append(ids, id)

	parts := make([]string, len(ids))
	for i, v := range ids {
		parts[i] = strconv.FormatInt(v, 10)
	}
	r.SetExtra(ExtraReferenceRecordIDs, strings.Join(parts, referenceListSeparator))
}

// AttachmentIDs joins attachment ids the way "Preserved attachments" stores
// them.
func (r *Record) AttachmentIDs() string {
	ids := make([]string, len(r.Attachments))
	for i, a := range r.Attachments {
		ids[i] = a.ID
	}
	return strings.Join(ids, preservedAttachmentsJoiner)
}

// IsDerived reports whether the record was produced by the pipeline itself
// (a translation), which excludes it from automatic processing.
func (r *Record) IsDerived() bool {
	return r.HasExtra(ExtraTranslationLanguage) || r.HasExtra(ExtraReferenceRecordIDs) || r.HasExtra(ExtraPreservedAttachments)
}

// Processable reports whether there is anything to parse.
func (r *Record) Processable() bool {
	return len(r.Attachments) > 0 || r.Transcription != ""
}

// ClearTransient resets the operation state.
func (r *Record) ClearTransient() {
	r.OperationName = ""
	r.OperationInProgress = false
	r.OperationError = ""
	r.OperationProgress = nil
}

// CopyTransient copies the operation state from src.
func (r *Record) CopyTransient(src *Record) {
	r.OperationName = src.OperationName
	r.OperationInProgress = src.OperationInProgress
	r.OperationError = src.OperationError
	r.OperationProgress = src.OperationProgress
}
