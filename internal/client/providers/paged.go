package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
)

const pageSeparator = "\n\n"

// Paged streams one page per request and checkpoints every completed page,
// so an interrupted parse resumes after the last saved page.
type Paged struct {
	deps   Deps
	logger logging.Logger
}

func (p *Paged) Name() string { return NamePaged }

// resumeFrom returns how many pages are already done and the text they
// contribute.
func resumeFrom(rec *models.Record, pages int) (int, string) {
	parsed := rec.ExtraInt(models.ExtraParsedPages)
	contents := rec.PageContents()
	if parsed <= 0 || parsed >= pages || len(contents) < parsed {
		return 0, ""
	}

	var sb strings.Builder
	for _, c := range contents[:parsed] {
		sb.WriteString(c)
		sb.WriteString(pageSeparator)
	}
	return parsed, sb.String()
}

func (p *Paged) Parse(ctx context.Context, rec *models.Record, pages []models.PageImage) (*models.Record, error) {
	total := len(pages)
	parsed, recordText := resumeFrom(rec, total)

	budget := NewBudget(total, PagedPageTokens)
	budget.Add(parsed * PagedPageTokens)

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
		req := llm.Request{Prompt: ParsePagePrompt(page, total), Parts: pageParts(pages[i : i+1])}

		var pageText strings.Builder
		tokens := 0
		for delta, err := range p.deps.Completion.Stream(ctx, req) {
			if err != nil {
				return nil, fmt.Errorf("parse record %d page %d: %w", rec.ID, page, err)
			}
			pageText.WriteString(delta)
			tokens++
			budget.Add(1)
			if err := report(models.ProgressUpdate{Page: page, TextDelta: delta}); err != nil {
				return nil, err
			}
		}

		text := StripFences(pageText.String())
		recordText += text + pageSeparator
		budget.PageDone(tokens, 1)
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
