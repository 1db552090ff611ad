// Package llm is the streaming completion capability used by the parse and
// translate providers: a prompt plus optional page attachments in, a lazy
// sequence of text fragments out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// ErrStreamConsumed is yielded when a stream is ranged over a second time.
var ErrStreamConsumed = errors.New("completion stream already consumed")

// Part is an inline attachment sent with the prompt.
type Part struct {
	MimeType string
	Data     []byte
}

type Request struct {
	Prompt string
	Parts  []Part
	// Model overrides the backend's default model when set.
	Model string
}

// Completion streams text fragments for a request. The sequence is finite
// and can be ranged over once; a failure ends it with a non-nil error.
type Completion interface {
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Collect is the non-streaming variant: it drains the stream and returns the
// whole text.
func Collect(ctx context.Context, c Completion, req Request) (string, error) {
	var sb strings.Builder
	for delta, err := range c.Stream(ctx, req) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta)
	}
	return sb.String(), nil
}

// once makes seq non-restartable.
func once(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}

type Options struct {
	Backend       string
	Model         string
	VertexProject string
	VertexRegion  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	HTTPClient    *http.Client
}

// New selects the backend named by opts.Backend ("gemini" or "chatgpt").
func New(opts Options) (Completion, error) {
	switch opts.Backend {
	case "gemini":
		if opts.VertexProject == "" {
			return nil, errors.New("vertex project is not configured")
		}
		return NewGemini(opts.VertexProject, opts.VertexRegion, opts.Model), nil
	case "chatgpt":
		if opts.OpenAIAPIKey == "" {
			return nil, errors.New("openai api key is not configured")
		}
		return NewOpenAI(opts.OpenAIBaseURL, opts.OpenAIAPIKey, opts.Model, opts.HTTPClient), nil
	default:
		return nil, fmt.Errorf("%w: llm backend %q", common.ErrUnknownProvider, opts.Backend)
	}
}
