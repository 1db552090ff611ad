package providers

import (
	"context"
	"iter"

	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
)

// scriptedCompletion answers the n-th request with the n-th script.
type scriptedCompletion struct {
	scripts  [][]string
	errAt    int
	err      error
	requests []llm.Request
}

func (s *scriptedCompletion) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	n := len(s.requests)
	s.requests = append(s.requests, req)
	return func(yield func(string, error) bool) {
		if s.err != nil && n == s.errAt {
			yield("", s.err)
			return
		}
		if n >= len(s.scripts) {
			return
		}
		for _, d := range s.scripts[n] {
			if !yield(d, nil) {
				return
			}
		}
	}
}

type recordingReporter struct {
	updates []models.ProgressUpdate
}

func (r *recordingReporter) Report(ctx context.Context, rec *models.Record, u models.ProgressUpdate) (*models.Record, error) {
	r.updates = append(r.updates, u)
	return rec, nil
}

type recordingFinalizer struct {
	text string
	rec  *models.Record
}

func (f *recordingFinalizer) UpdateFromText(ctx context.Context, text string, rec *models.Record, extra []models.Extra) (*models.Record, error) {
	f.text = text
	f.rec = rec
	out := *rec
	out.Text = text
	return &out, nil
}

func pages(n int) []models.PageImage {
	out := make([]models.PageImage, n)
	for i := range out {
		out[i] = models.PageImage{Page: i + 1, MimeType: "application/pdf", Data: []byte{byte(i + 1)}}
	}
	return out
}
