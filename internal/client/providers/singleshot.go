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

// SingleShot sends every page in one request and expects metadata and
// markdown back in a single answer.
type SingleShot struct {
	deps   Deps
	logger logging.Logger
}

func (p *SingleShot) Name() string { return NameSingleShot }

func (p *SingleShot) Parse(ctx context.Context, rec *models.Record, pages []models.PageImage) (*models.Record, error) {
	budget := NewBudget(len(pages), SingleShotPageTokens)
	report := func(u models.ProgressUpdate) error {
		u.OperationName = common.OperationParse
		u.InProgress = true
		u.Progress = budget.Processed()
		u.ProgressOf = budget.Total()
		var err error
		rec, err = p.deps.Reporter.Report(ctx, rec, u)
		return err
	}

	if err := report(models.ProgressUpdate{}); err != nil {
		return nil, err
	}

	req := llm.Request{Prompt: ParseAllPrompt(rec), Parts: pageParts(pages)}

	var content strings.Builder
	for delta, err := range p.deps.Completion.Stream(ctx, req) {
		if err != nil {
			return nil, fmt.Errorf("parse record %d: %w", rec.ID, err)
		}
		content.WriteString(delta)
		budget.Add(1)
		if err := report(models.ProgressUpdate{TextDelta: delta}); err != nil {
			return nil, err
		}
	}

	budget.Complete()
	if err := report(models.ProgressUpdate{}); err != nil {
		return nil, err
	}

	p.logger.Debug(ctx, "stream complete", "record_id", rec.ID, "tokens", budget.Processed())
	return finalize(ctx, p.deps, rec, content.String())
}
