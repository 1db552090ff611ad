// Package providers implements the parse strategies that turn rendered pages
// into record text and a structured extraction.
package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
)

const (
	NameSingleShot = "llm"
	NamePaged      = "llm-paged"
	NameTesseract  = "tesseract"
)

// Reporter receives progress ticks; see progress.Reconciler.
type Reporter interface {
	Report(ctx context.Context, rec *models.Record, u models.ProgressUpdate) (*models.Record, error)
}

// Finalizer turns composed model output into the updated record. With a nil
// rec it creates a new one carrying extra.
type Finalizer interface {
	UpdateFromText(ctx context.Context, text string, rec *models.Record, extra []models.Extra) (*models.Record, error)
}

type Provider interface {
	Name() string
	Parse(ctx context.Context, rec *models.Record, pages []models.PageImage) (*models.Record, error)
}

type Deps struct {
	Completion   llm.Completion
	Reporter     Reporter
	Finalizer    Finalizer
	DatabaseHash string
	// OCRLanguage is a tesseract language spec such as "eng+deu".
	OCRLanguage string
	Logger      logging.Logger
}

// New returns the provider registered under name.
func New(name string, d Deps) (Provider, error) {
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	switch name {
	case NameSingleShot:
		return &SingleShot{deps: d, logger: d.Logger.With("module", "provider", "provider", name)}, nil
	case NamePaged:
		return &Paged{deps: d, logger: d.Logger.With("module", "provider", "provider", name)}, nil
	case NameTesseract:
		return &Tesseract{deps: d, logger: d.Logger.With("module", "provider", "provider", name)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownProvider, name)
	}
}

var fenceRe = regexp.MustCompile("```[a-zA-Z]*\n?|```")

// StripFences removes markdown code fences a model wraps around its output.
func StripFences(s string) string {
	return fenceRe.ReplaceAllString(s, "")
}

// Compose builds the text the Finalizer understands: a json block with the
// metadata followed by a markdown block with the body.
func Compose(metadata, text string) string {
	return "```json\n" + strings.TrimSpace(metadata) + "\n```\n\n```markdown\n" + text + "\n```"
}

func pageParts(pages []models.PageImage) []llm.Part {
	parts := make([]llm.Part, len(pages))
	for i, p := range pages {
		parts[i] = llm.Part{MimeType: p.MimeType, Data: p.Data}
	}
	return parts
}

// finalize marks the content as parsed and hands the text to the Finalizer.
func finalize(ctx context.Context, d Deps, rec *models.Record, text string) (*models.Record, error) {
	rec.UpdateChecksumLastParsed(d.DatabaseHash)
	updated, err := d.Finalizer.UpdateFromText(ctx, text, rec, nil)
	if err != nil {
		return nil, err
	}
	return updated, nil
}
