package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/fatih/color"
)

var (
	colorBusy    = color.New(color.FgYellow)
	colorFailed  = color.New(color.FgRed)
	colorDone    = color.New(color.FgGreen)
	colorDerived = color.New(color.FgCyan)
)

const historyLines = 10

func (a *App) recordStatus(rec *models.Record, queued map[int64]int) string {
	if snap, ok := a.progress.Snapshot(rec.ID); ok && snap.InProgress {
		s := fmt.Sprintf("%s %d/%d", snap.OperationName, snap.Progress, snap.ProgressOf)
		if snap.Pages > 0 {
			s += fmt.Sprintf(" page %d/%d", snap.Page, snap.Pages)
		}
		if snap.ProcessedOnDifferentDevice {
			s += " (other device)"
		}
		return colorBusy.Sprint(s)
	}
	if pos, ok := queued[rec.ID]; ok {
		return colorBusy.Sprintf("queued (%d)", pos)
	}
	if rec.OperationError != "" {
		return colorFailed.Sprintf("%s failed: %s", rec.OperationName, rec.OperationError)
	}
	if lang, ok := rec.GetExtra(models.ExtraTranslationLanguage); ok {
		return colorDerived.Sprintf("translation (%s)", lang)
	}
	if rec.NeedsParsing() {
		return "not parsed"
	}
	if refs := rec.ReferenceIDs(); len(refs) > 0 {
		return colorDone.Sprintf("parsed, translated %v", refs)
	}
	return colorDone.Sprint("parsed")
}

func (a *App) queuePositions() map[int64]int {
	ids := a.queue.Queued()
	pos := make(map[int64]int, len(ids))
	for i, id := range ids {
		pos[id] = i + 1
	}
	return pos
}

func (a *App) List(ctx context.Context) error {
	recs := a.snapshot()
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No records")
		return nil
	}

	queued := a.queuePositions()
	for _, r := range recs {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(a.out, "%-6d %-40s %-12s %s\n", r.ID, title, r.Type, a.recordStatus(r, queued))
	}
	return nil
}

func (a *App) Add(ctx context.Context, path string) error {
	rec, err := a.records.AddAttachment(ctx, a.config.FolderID, path)
	if err != nil {
		return err
	}
	a.put(rec)
	fmt.Fprintf(a.out, "Added record %d\n", rec.ID)

	if _, err := a.trigger.Evaluate(ctx, []*models.Record{rec}); err != nil {
		a.logger.Warn(ctx, "auto trigger failed", "record_id", rec.ID, "error", err)
	}
	return nil
}

func (a *App) Parse(ctx context.Context, id int64) error {
	rec, err := a.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Processable() {
		fmt.Fprintf(a.out, "Record %d has nothing to parse\n", id)
		return nil
	}
	if !a.queue.Enqueue(rec, nil) {
		fmt.Fprintf(a.out, "Record %d is already queued\n", id)
		return nil
	}
	a.queue.Kick(ctx)
	fmt.Fprintf(a.out, "Record %d queued (%d in queue)\n", id, a.queue.Len())
	return nil
}

func (a *App) Translate(ctx context.Context, id int64, language string) error {
	if language == "" {
		language = a.config.TargetLanguage
	}
	rec, err := a.lookup(ctx, id)
	if err != nil {
		return err
	}

	tr, err := a.translator.Translate(ctx, rec, language)
	if err != nil {
		return err
	}
	a.put(tr)
	fmt.Fprintf(a.out, "Record %d translated to %s as record %d\n", id, language, tr.ID)
	return nil
}

func (a *App) ShowQueue(ctx context.Context) error {
	ids := a.queue.Queued()
	if len(ids) == 0 {
		fmt.Fprintln(a.out, "Queue is empty")
		return nil
	}
	for i, id := range ids {
		marker := ""
		if i == 0 {
			marker = " (running)"
		}
		fmt.Fprintf(a.out, "%d. record %d%s\n", i+1, id, marker)
	}
	return nil
}

func describe(p models.Progress) string {
	var b strings.Builder
	b.WriteString(p.OperationName)
	if p.Pages > 0 {
		fmt.Fprintf(&b, " page %d/%d", p.Page, p.Pages)
	}
	if p.Message != "" {
		b.WriteString(": " + p.Message)
	}
	return b.String()
}

func (a *App) ShowProgress(ctx context.Context, id int64) error {
	snap, ok := a.progress.Snapshot(id)
	if !ok {
		fmt.Fprintf(a.out, "No progress recorded for record %d\n", id)
		return nil
	}

	state := colorDone.Sprint("done")
	switch {
	case snap.Error != "":
		state = colorFailed.Sprint("failed: " + snap.Error)
	case snap.InProgress:
		state = colorBusy.Sprint("running")
	}
	fmt.Fprintf(a.out, "%s %d/%d %s\n", describe(snap), snap.Progress, snap.ProgressOf, state)
	if snap.ProcessedOnDifferentDevice {
		fmt.Fprintln(a.out, "Processed on a different device")
	}

	history := a.progress.History(id)
	if len(history) > historyLines {
		history = history[len(history)-historyLines:]
	}
	for _, h := range history {
		fmt.Fprintf(a.out, "  %s %s %d/%d\n", h.Timestamp.Format(time.TimeOnly), describe(h), h.Progress, h.ProgressOf)
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.sync(ctx, true); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loaded %d records\n", len(a.snapshot()))
	return nil
}

func (a *App) Delete(ctx context.Context, id int64) error {
	rec, err := a.lookup(ctx, id)
	if err != nil {
		return err
	}

	ok, err := Confirm(a.reader, fmt.Sprintf("Delete record %d %q?", id, rec.Title), a.out)
	if err != nil || !ok {
		return err
	}

	if err := a.records.Delete(ctx, rec); err != nil {
		return err
	}
	a.remove(id)
	fmt.Fprintf(a.out, "Record %d deleted\n", id)
	return nil
}
