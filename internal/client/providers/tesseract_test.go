package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRecognize replaces tesseract with fn and records the pages it saw.
func stubRecognize(t *testing.T, fn func(page models.PageImage) (string, error)) *[]int {
	t.Helper()
	var seen []int
	orig := recognize
	t.Cleanup(func() { recognize = orig })
	recognize = func(ctx context.Context, languages []string, page models.PageImage) (string, error) {
		seen = append(seen, page.Page)
		return fn(page)
	}
	return &seen
}

func newTesseract(c *scriptedCompletion, language string) (Provider, *recordingReporter, *recordingFinalizer) {
	rep, fin := &recordingReporter{}, &recordingFinalizer{}
	p, _ := New(NameTesseract, Deps{Completion: c, Reporter: rep, Finalizer: fin, DatabaseHash: "db", OCRLanguage: language})
	return p, rep, fin
}

func TestTesseract_RecognizesPagesThenAsksForMetadata(t *testing.T) {
	var langs []string
	orig := recognize
	t.Cleanup(func() { recognize = orig })
	recognize = func(ctx context.Context, languages []string, page models.PageImage) (string, error) {
		langs = languages
		return fmt.Sprintf("scanned %d", page.Page), nil
	}

	c := &scriptedCompletion{scripts: [][]string{{"```json\n", `[{"title":"Scan"}]`, "\n```"}}}
	p, rep, fin := newTesseract(c, "eng+lav")

	rec := &models.Record{ID: 8, Attachments: []models.Attachment{{StorageKey: "k"}}}
	_, err := p.Parse(context.Background(), rec, pages(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"eng", "lav"}, langs)

	wantText := "scanned 1\n\nscanned 2\n\n"
	require.Len(t, c.requests, 1)
	assert.Empty(t, c.requests[0].Parts)
	assert.Contains(t, c.requests[0].Prompt, wantText)
	assert.Equal(t, Compose(`[{"title":"Scan"}]`, wantText), fin.text)

	var checkpoints []int
	for _, u := range rep.updates {
		assert.Equal(t, common.OperationParse, u.OperationName)
		assert.True(t, u.InProgress)
		if u.PageDelta != "" {
			checkpoints = append(checkpoints, u.Page)
		}
	}
	assert.Equal(t, []int{1, 2}, checkpoints)
	assertMonotonic(t, rep.updates)

	last := rep.updates[len(rep.updates)-1]
	assert.Equal(t, last.Progress, last.ProgressOf)
	assert.Equal(t, fin.rec.Checksum, fin.rec.ChecksumLastParsed)
}

func TestTesseract_ResumesAfterCheckpointedPages(t *testing.T) {
	seen := stubRecognize(t, func(page models.PageImage) (string, error) {
		return fmt.Sprintf("scanned %d", page.Page), nil
	})

	rec := &models.Record{ID: 8, Attachments: []models.Attachment{{StorageKey: "k"}}}
	rec.SetExtra(models.PageContentType(1), "kept 1")
	rec.SetExtra(models.PageContentType(2), "kept 2")
	rec.SetExtra(models.ExtraParsedPages, "2")

	c := &scriptedCompletion{scripts: [][]string{{"[]"}}}
	p, rep, fin := newTesseract(c, "")

	_, err := p.Parse(context.Background(), rec, pages(3))
	require.NoError(t, err)

	assert.Equal(t, []int{3}, *seen)
	assert.Equal(t, Compose("[]", "kept 1\n\nkept 2\n\nscanned 3\n\n"), fin.text)
	assert.Equal(t, 2*TesseractPageTokens, rep.updates[0].Progress)
}

func TestTesseract_RecognitionErrorStopsBeforeMetadata(t *testing.T) {
	boom := errors.New("tessdata missing")
	stubRecognize(t, func(page models.PageImage) (string, error) {
		if page.Page == 2 {
			return "", boom
		}
		return "ok", nil
	})

	c := &scriptedCompletion{}
	p, rep, fin := newTesseract(c, "")

	_, err := p.Parse(context.Background(), &models.Record{ID: 8}, pages(3))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "page 2")
	assert.Empty(t, c.requests)
	assert.Empty(t, fin.text)

	var checkpoints []int
	for _, u := range rep.updates {
		if u.PageDelta != "" {
			checkpoints = append(checkpoints, u.Page)
		}
	}
	assert.Equal(t, []int{1}, checkpoints, "the recognized page is kept for a resume")
}

func TestTesseract_MetadataErrorIsReturned(t *testing.T) {
	stubRecognize(t, func(page models.PageImage) (string, error) { return "ok", nil })

	boom := errors.New("quota")
	c := &scriptedCompletion{err: boom, errAt: 0}
	p, _, fin := newTesseract(c, "")

	_, err := p.Parse(context.Background(), &models.Record{ID: 8}, pages(1))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "metadata")
	assert.Empty(t, fin.text)
}

func TestOCRLanguages(t *testing.T) {
	assert.Equal(t, []string{DefaultOCRLanguage}, ocrLanguages(""))
	assert.Equal(t, []string{DefaultOCRLanguage}, ocrLanguages(" + "))
	assert.Equal(t, []string{"eng"}, ocrLanguages("eng"))
	assert.Equal(t, []string{"eng", "deu"}, ocrLanguages("eng+ deu"))
}
