package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
)

// OpenAI streams completions from an OpenAI-compatible /chat/completions
// endpoint using server-sent events.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAI(baseURL, apiKey, model string, httpClient *http.Client) *OpenAI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAI{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model, httpClient: httpClient}
}

type chatFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
	File     *chatFile     `json:"file,omitempty"`
}

type chatMessage struct {
	Role    string     `json:"role"`
	Content []chatPart `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) buildRequest(req Request) chatRequest {
	content := []chatPart{{Type: "text", Text: req.Prompt}}
	for i, p := range req.Parts {
		dataURL := "data:" + p.MimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
		if strings.HasPrefix(p.MimeType, "image/") {
			content = append(content, chatPart{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}})
			continue
		}
		content = append(content, chatPart{Type: "file", File: &chatFile{Filename: fmt.Sprintf("page-%d.pdf", i+1), FileData: dataURL}})
	}

	model := o.model
	if req.Model != "" {
		model = req.Model
	}
	return chatRequest{Model: model, Messages: []chatMessage{{Role: "user", Content: content}}, Stream: true}
}

func (o *OpenAI) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return once(func(yield func(string, error) bool) {
		body, err := json.Marshal(o.buildRequest(req))
		if err != nil {
			yield("", fmt.Errorf("failed to marshal request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			yield("", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

		resp, err := o.httpClient.Do(httpReq)
		if err != nil {
			yield("", fmt.Errorf("chatgpt request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield("", fmt.Errorf("chatgpt returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))))
			return
		}

		parseEvents(resp.Body, yield)
	})
}

// parseEvents reads "data:" lines until [DONE], a finish reason or EOF.
// Lines that are not JSON are skipped.
func parseEvents(r io.Reader, yield func(string, error) bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			yield("", fmt.Errorf("chatgpt stream: %s", chunk.Error.Message))
			return
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			if !yield(choice.Delta.Content, nil) {
				return
			}
		}
		if choice.FinishReason != "" {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		yield("", fmt.Errorf("chatgpt stream: %w", err))
	}
}
