package pipeline

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/locks"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func parsedSource(t *testing.T, h *harness) *models.Record {
	t.Helper()
	event := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := &models.Record{
		FolderID:    4,
		Text:        "eins\n\nzwei\n\n",
		JSON:        []map[string]any{{"type": "lab"}},
		EventDate:   &event,
		Attachments: []models.Attachment{{ID: "a1", StorageKey: "records/a1"}, {ID: "a2", StorageKey: "records/a2"}},
	}
	rec.SetExtra(models.PageContentType(1), "eins")
	rec.SetExtra(models.PageContentType(2), "zwei")
	require.NoError(t, h.records.Save(context.Background(), rec))
	return rec
}

func TestTranslate_LinksBothRecords(t *testing.T) {
	c := &scripted{scripts: [][]string{
		{"one"},
		{"t", "wo"},
		{"```json\n[{\"type\":\"lab\",\"title\":\"Blood test\"}]\n```"},
	}}
	h := newHarness(t, providers.NamePaged, c, fakeRenderer{})
	ctx := context.Background()
	src := parsedSource(t, h)

	tr, err := h.pipeline.Translate(ctx, src, "English")
	require.NoError(t, err)

	assert.Contains(t, c.requests[0].Prompt, "English")
	assert.Contains(t, c.requests[0].Prompt, "eins")
	assert.Contains(t, c.requests[1].Prompt, "zwei")

	storedTr := h.srv.record(tr.ID)
	require.NotNil(t, storedTr)
	assert.Equal(t, int64(4), storedTr.FolderID)
	assert.Equal(t, []string{"one", "two"}, storedTr.PageContents())
	assert.Equal(t, "one\n\ntwo", storedTr.Text)
	assert.Equal(t, "Blood test", storedTr.Title)
	v, _ := storedTr.GetExtra(models.ExtraTranslationLanguage)
	assert.Equal(t, "English", v)
	v, _ = storedTr.GetExtra(models.ExtraPreservedAttachments)
	assert.Equal(t, "a1, a2", v)
	assert.Equal(t, []int64{src.ID}, storedTr.ReferenceIDs())
	assert.Equal(t, src.Attachments, storedTr.Attachments)
	assert.True(t, src.EventDate.Equal(*storedTr.EventDate))
	assert.Contains(t, storedTr.Tags, "Language: English")
	assert.True(t, storedTr.IsDerived())

	storedSrc := h.srv.record(src.ID)
	assert.Equal(t, []int64{tr.ID}, storedSrc.ReferenceIDs())
	assert.Equal(t, []string{"eins", "zwei"}, storedSrc.PageContents())
	assert.Equal(t, "eins\n\nzwei\n\n", storedSrc.Text)

	lock := h.srv.lock("translate-" + itoa(src.ID))
	require.NotNil(t, lock)
	assert.True(t, lock.Finished)
}

func TestTranslate_SecondTranslationAppendsReference(t *testing.T) {
	c := &scripted{scripts: [][]string{
		{"one"}, {"two"}, {"[]"},
		{"uno"}, {"dos"}, {"[]"},
	}}
	h := newHarness(t, providers.NamePaged, c, fakeRenderer{})
	ctx := context.Background()
	src := parsedSource(t, h)

	en, err := h.pipeline.Translate(ctx, src, "English")
	require.NoError(t, err)
	es, err := h.pipeline.Translate(ctx, src, "Spanish")
	require.NoError(t, err)

	assert.Equal(t, []int64{en.ID, es.ID}, h.srv.record(src.ID).ReferenceIDs())
}

func TestTranslate_FallsBackToText(t *testing.T) {
	c := &scripted{scripts: [][]string{{"hello"}, {"[]"}}}
	h := newHarness(t, providers.NamePaged, c, fakeRenderer{})
	ctx := context.Background()

	src := &models.Record{FolderID: 1, Text: "hallo", CreatedAt: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, h.records.Save(ctx, src))

	tr, err := h.pipeline.Translate(ctx, src, "English")
	require.NoError(t, err)
	require.Len(t, c.requests, 2)
	assert.Contains(t, c.requests[0].Prompt, "hallo")
	assert.Equal(t, []string{"hello"}, h.srv.record(tr.ID).PageContents())
	assert.Equal(t, 2024, tr.EventDate.Year())
}

func TestTranslate_FailureErrorsLockAndKeepsSource(t *testing.T) {
	boom := errors.New("quota")
	c := &scripted{scripts: [][]string{{"one"}}, err: boom}
	h := newHarness(t, providers.NamePaged, c, fakeRenderer{})
	ctx := context.Background()
	src := parsedSource(t, h)

	_, err := h.pipeline.Translate(ctx, src, "English")
	require.ErrorIs(t, err, boom)

	lock := h.srv.lock("translate-" + itoa(src.ID))
	assert.True(t, lock.Errored)
	assert.Empty(t, h.srv.record(src.ID).ReferenceIDs())
	assert.Equal(t, []string{"eins", "zwei"}, h.srv.record(src.ID).PageContents())
}

func TestTranslate_RefusedWhileRunningInSession(t *testing.T) {
	c := &scripted{}
	h := newHarness(t, providers.NamePaged, c, fakeRenderer{})
	ctx := context.Background()
	src := parsedSource(t, h)

	_, err := h.manager.Acquire(ctx, "translate", src.ID)
	require.NoError(t, err)

	_, err = h.pipeline.Translate(ctx, src, "English")
	require.ErrorIs(t, err, locks.ErrRunning)
	assert.Empty(t, c.requests)
	assert.Empty(t, src.ReferenceIDs())
	if src.OperationProgress != nil {
		assert.False(t, src.OperationProgress.ProcessedOnDifferentDevice)
	}
}

type panickingCompletion struct{}

func (panickingCompletion) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		panic("stream decoder crashed")
	}
}

func TestTranslate_PanicErrorsLock(t *testing.T) {
	h := newHarness(t, providers.NamePaged, panickingCompletion{}, fakeRenderer{})
	ctx := context.Background()
	src := parsedSource(t, h)

	var err error
	require.NotPanics(t, func() { _, err = h.pipeline.Translate(ctx, src, "English") })
	require.Error(t, err)

	lock := h.srv.lock("translate-" + itoa(src.ID))
	require.NotNil(t, lock)
	assert.True(t, lock.Errored)
	assert.Contains(t, lock.ErrorMessage, "stream decoder crashed")
}
