package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/client/llm"
	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/client/providers"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

const translatedPageSeparator = "\n\n"

func sourcePages(rec *models.Record) []string {
	pages := rec.PageContents()
	if len(pages) == 0 && rec.Text != "" {
		pages = []string{rec.Text}
	}
	return pages
}

// Translate creates a translated copy of rec linked to it in both
// directions. Pages already streamed are not rolled back on failure.
func (p *Pipeline) Translate(ctx context.Context, rec *models.Record, language string) (_ *models.Record, err error) {
	if err := p.acquire(ctx, common.OperationTranslate, rec); err != nil {
		return nil, err
	}
	defer p.recoverRun(ctx, common.OperationTranslate, rec, &err)

	translated, err := p.translate(ctx, rec, language)
	if err != nil {
		return nil, p.fail(ctx, common.OperationTranslate, rec, err)
	}

	p.done(ctx, common.OperationTranslate, rec)
	p.logger.Info(ctx, "record translated", "record_id", rec.ID, "translation_id", translated.ID, "language", language)
	return translated, nil
}

func (p *Pipeline) translate(ctx context.Context, rec *models.Record, language string) (*models.Record, error) {
	pages := sourcePages(rec)
	if len(pages) == 0 {
		return nil, fmt.Errorf("record %d: %w", rec.ID, common.ErrNothingToProcess)
	}
	total := len(pages)
	budget := providers.NewBudget(total, providers.SingleShotPageTokens)

	report := func(u models.ProgressUpdate) error {
		u.OperationName = common.OperationTranslate
		u.InProgress = true
		u.Progress = budget.Processed()
		u.ProgressOf = budget.Total()
		u.Pages = total
		var err error
		rec, err = p.reporter.Report(ctx, rec, u)
		return err
	}

	if err := report(models.ProgressUpdate{}); err != nil {
		return nil, err
	}

	out := make([]string, total)
	for i, content := range pages {
		page := i + 1
		var sb strings.Builder
		tokens := 0
		for delta, err := range p.completion.Stream(ctx, llm.Request{Prompt: providers.TranslatePagePrompt(language, page, content)}) {
			if err != nil {
				return nil, fmt.Errorf("translate page %d: %w", page, err)
			}
			sb.WriteString(delta)
			tokens++
			budget.Add(1)
			if err := report(models.ProgressUpdate{Page: page, TextDelta: delta}); err != nil {
				return nil, err
			}
		}
		out[i] = sb.String()
		budget.PageDone(tokens, providers.TranslationFactor)
		if err := report(models.ProgressUpdate{Page: page, PageDelta: out[i]}); err != nil {
			return nil, err
		}
	}

	text := strings.Join(out, translatedPageSeparator)

	var meta strings.Builder
	for delta, err := range p.completion.Stream(ctx, llm.Request{Prompt: providers.MetadataPrompt(text)}) {
		if err != nil {
			return nil, fmt.Errorf("translation metadata: %w", err)
		}
		meta.WriteString(delta)
		budget.Add(1)
		if err := report(models.ProgressUpdate{Page: total, TextDelta: delta}); err != nil {
			return nil, err
		}
	}

	extra := []models.Extra{
		{Type: models.ExtraReferenceRecordIDs, Value: strconv.FormatInt(rec.ID, 10)},
		{Type: models.ExtraTranslationLanguage, Value: language},
		{Type: models.ExtraPreservedAttachments, Value: rec.AttachmentIDs()},
	}
	tr, err := p.records.UpdateFromText(ctx, providers.Compose(providers.StripFences(meta.String()), text), nil, extra)
	if err != nil {
		return nil, fmt.Errorf("create translation: %w", err)
	}

	tr.FolderID = rec.FolderID
	for i, t := range out {
		tr.SetExtra(models.PageContentType(i+1), t)
	}
	tr.Attachments = append([]models.Attachment(nil), rec.Attachments...)
	if rec.EventDate != nil {
		d := *rec.EventDate
		tr.EventDate = &d
	} else {
		d := rec.CreatedAt
		tr.EventDate = &d
	}

	rec.AddReferenceID(tr.ID)
	if err := p.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	if err := p.records.Save(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}
