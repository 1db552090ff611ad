package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

// contentStream is the part of genai.GenerateContentResponseIterator used
// here.
type contentStream interface {
	Next() (*genai.GenerateContentResponse, error)
}

var (
	newGenaiClient = genai.NewClient

	generateContentStream = func(ctx context.Context, m *genai.GenerativeModel, parts ...genai.Part) contentStream {
		return m.GenerateContentStream(ctx, parts...)
	}
)

// Gemini streams completions from Vertex AI. The client is created on first
// use.
type Gemini struct {
	project string
	region  string
	model   string

	mu     sync.Mutex
	client *genai.Client
}

func NewGemini(project, region, model string) *Gemini {
	return &Gemini{project: project, region: region, model: model}
}

func (g *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	c, err := newGenaiClient(ctx, g.project, g.region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	g.client = c
	return c, nil
}

func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func (g *Gemini) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return once(func(yield func(string, error) bool) {
		client, err := g.getClient(ctx)
		if err != nil {
			yield("", err)
			return
		}

		name := g.model
		if req.Model != "" {
			name = req.Model
		}
		model := client.GenerativeModel(name)

		parts := make([]genai.Part, 0, len(req.Parts)+1)
		for _, p := range req.Parts {
			parts = append(parts, genai.Blob{MIMEType: p.MimeType, Data: p.Data})
		}
		parts = append(parts, genai.Text(req.Prompt))

		it := generateContentStream(ctx, model, parts...)
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if text := responseText(resp); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	})
}
