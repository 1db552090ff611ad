package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// watchInterval is how often Watch polls the progress snapshot.
var watchInterval = 500 * time.Millisecond

func (a *App) newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(a.out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(a.out)
		}),
	)
}

// Watch follows the running operation of a record with a progress bar until
// it ends or ctx is cancelled.
func (a *App) Watch(ctx context.Context, id int64) error {
	snap, ok := a.progress.Snapshot(id)
	if !ok || !snap.InProgress {
		fmt.Fprintf(a.out, "Record %d is not being processed\n", id)
		return nil
	}

	total := snap.ProgressOf
	if total <= 0 {
		total = 1
	}
	bar := a.newBar(total, describe(snap))

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		if snap.ProgressOf > total {
			total = snap.ProgressOf
			bar.ChangeMax(total)
		}
		bar.Describe(describe(snap))
		_ = bar.Set(min(snap.Progress, total))

		if !snap.InProgress {
			if snap.Error != "" {
				_ = bar.Exit()
				fmt.Fprintln(a.out)
				fmt.Fprintln(a.out, colorFailed.Sprint("Failed: "+snap.Error))
				return nil
			}
			_ = bar.Finish()
			fmt.Fprintln(a.out, colorDone.Sprintf("Record %d: %s finished", id, snap.OperationName))
			return nil
		}

		select {
		case <-ctx.Done():
			_ = bar.Exit()
			return ctx.Err()
		case <-ticker.C:
			snap, _ = a.progress.Snapshot(id)
		}
	}
}
