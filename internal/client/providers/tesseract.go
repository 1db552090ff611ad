package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultOCRLanguage is the tesseract language used when none is configured.
const DefaultOCRLanguage = "eng"

// TesseractPageTokens is the per-page weight of local recognition in the
// progress budget.
const TesseractPageTokens = 100

var recognize = recognizePage

// recognizePage runs tesseract on a page. PDF pages are recognized through
// the raster images embedded in them.
func recognizePage(ctx context.Context, languages []string, page models.PageImage) (string, error) {
	images := [][]byte{page.Data}
	if page.MimeType == "application/pdf" {
		var err error
		if images, err = pdfImages(page.Data); err != nil {
			return "", err
		}
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(languages...); err != nil {
		return "", fmt.Errorf("failed to set ocr language: %w", err)
	}

	var sb strings.Builder
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := client.SetImageFromBytes(img); err != nil {
			return "", fmt.Errorf("failed to load image: %w", err)
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("failed to recognize text: %w", err)
		}
		if text = strings.TrimSpace(text); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// pdfImages extracts the images of a single-page document with pdfcpu.
func pdfImages(data []byte) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "recordkeeper-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "page.pdf")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	out := filepath.Join(dir, "images")
	if err := os.Mkdir(out, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	if err := api.ExtractImagesFile(src, out, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("page has no images: %w", common.ErrNothingToProcess)
	}
	sort.Strings(names)

	images := make([][]byte, 0, len(names))
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", name, err)
		}
		images = append(images, b)
	}
	return images, nil
}

// ocrLanguages splits a tesseract language spec like "eng+deu".
func ocrLanguages(spec string) []string {
	var out []string
	for _, l := range strings.Split(spec, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []string{DefaultOCRLanguage}
	}
	return out
}

// Tesseract recognizes every page locally and checkpoints it, then asks the
// model only for the metadata of the recognized text.
type Tesseract struct {
	deps   Deps
	logger logging.Logger
}

func (p *Tesseract) Name() string { return NameTesseract }

func (p *Tesseract) Parse(ctx context.Context, rec *models.Record, pages []models.PageImage) (*models.Record, error) {
	total := len(pages)
	languages := ocrLanguages(p.deps.OCRLanguage)
	parsed, recordText := resumeFrom(rec, total)

	budget := NewBudget(total, TesseractPageTokens)
	budget.Add(parsed * TesseractPageTokens)

	report := func(u models.ProgressUpdate) error {
		u.OperationName = common.OperationParse
		u.InProgress = true
		u.Progress = budget.Processed()
		u.ProgressOf = budget.Total()
		u.Pages = total
		var err error
		rec, err = p.deps.Reporter.Report(ctx, rec, u)
		return err
	}

	if err := report(models.ProgressUpdate{Page: parsed}); err != nil {
		return nil, err
	}
	if parsed > 0 {
		p.logger.Info(ctx, "resuming parse", "record_id", rec.ID, "page", parsed+1, "pages", total)
	}

	for i := parsed; i < total; i++ {
		page := i + 1
		if err := report(models.ProgressUpdate{Page: page, Message: fmt.Sprintf("recognizing page %d of %d", page, total)}); err != nil {
			return nil, err
		}
		text, err := recognize(ctx, languages, pages[i])
		if err != nil {
			return nil, fmt.Errorf("parse record %d page %d: %w", rec.ID, page, err)
		}

		recordText += text + pageSeparator
		budget.Add(TesseractPageTokens)
		if err := report(models.ProgressUpdate{Page: page, PageDelta: text, RecordText: recordText}); err != nil {
			return nil, err
		}
	}

	var meta strings.Builder
	for delta, err := range p.deps.Completion.Stream(ctx, llm.Request{Prompt: MetadataPrompt(recordText)}) {
		if err != nil {
			return nil, fmt.Errorf("parse record %d metadata: %w", rec.ID, err)
		}
		meta.WriteString(delta)
		budget.Add(1)
		if err := report(models.ProgressUpdate{Page: total, TextDelta: delta}); err != nil {
			return nil, err
		}
	}

	budget.Complete()
	if err := report(models.ProgressUpdate{Page: total}); err != nil {
		return nil, err
	}

	return finalize(ctx, p.deps, rec, Compose(StripFences(meta.String()), recordText))
}
