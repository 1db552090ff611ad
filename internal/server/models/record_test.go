package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreservedAttachmentIDs(t *testing.T) {
	r := &Record{Extra: []Extra{
		{Type: "Reference record Ids", Value: "4"},
		{Type: PreservedAttachmentsType, Value: "a1, a2,,a3 "},
	}}
	got := r.PreservedAttachmentIDs()
	assert.Len(t, got, 3)
	for _, id := range []string{"a1", "a2", "a3"} {
		_, ok := got[id]
		assert.True(t, ok, id)
	}
}

func TestPreservedAttachmentIDs_None(t *testing.T) {
	assert.Empty(t, (&Record{}).PreservedAttachmentIDs())
}

func TestOperationQuery_Empty(t *testing.T) {
	assert.True(t, OperationQuery{}.Empty())
	assert.False(t, OperationQuery{RecordID: 1}.Empty())
	assert.False(t, OperationQuery{RecordIDs: []int64{1}}.Empty())
	assert.False(t, OperationQuery{OperationID: "parse-1"}.Empty())
}
