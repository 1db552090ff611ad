package models

import (
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// DatabaseHash hashes the configured database id; it is part of every
// checksum so devices sharing a database compute the same values.
func DatabaseHash(databaseID string) string {
	return common.Sha256Hex(databaseID)
}

func (r *Record) storageKeys() string {
	keys := make([]string, len(r.Attachments))
	for i, a := range r.Attachments {
		keys[i] = a.StorageKey
	}
	return strings.Join(keys, "-")
}

// ComputeChecksum hashes the attachment identities and the transcription.
func (r *Record) ComputeChecksum(databaseHash string) string {
	sum := "record-" + common.Sha256Hex(r.storageKeys()) + "-" + databaseHash
	if r.Transcription != "" {
		sum += "-" + common.Sha256Hex(r.Transcription)
	}
	return sum
}

// UpdateChecksum recomputes Checksum.
func (r *Record) UpdateChecksum(databaseHash string) {
	r.Checksum = r.ComputeChecksum(databaseHash)
}

// UpdateChecksumLastParsed marks the current content as parsed.
func (r *Record) UpdateChecksumLastParsed(databaseHash string) {
	r.UpdateChecksum(databaseHash)
	r.ChecksumLastParsed = r.Checksum
}

// AttachmentsKey identifies the attachment set for the page cache.
func (r *Record) AttachmentsKey(databaseHash string) string {
	return "pages-" + common.Sha256Hex(r.storageKeys()) + "-" + databaseHash
}

// NeedsParsing reports whether the extraction is missing or stale.
func (r *Record) NeedsParsing() bool {
	return r.JSON == nil || r.Checksum != r.ChecksumLastParsed
}
