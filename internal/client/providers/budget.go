package providers

import "math"

const (
	// SingleShotPageTokens is the per-page estimate of the single-shot
	// provider and of translation.
	SingleShotPageTokens = 1000
	// PagedPageTokens is the per-page estimate of the paged provider.
	PagedPageTokens = 1200
	// TranslationFactor scales a translated page's token count to cover the
	// metadata call that follows.
	TranslationFactor = 1.7
)

// Budget tracks token progress against an estimate that is corrected as
// pages complete. Processed never decreases and Total never drops below it.
type Budget struct {
	perPage   int
	processed int
	total     int
}

func NewBudget(pages, perPage int) *Budget {
	if pages < 1 {
		pages = 1
	}
	return &Budget{perPage: perPage, total: pages * perPage}
}

// Add counts n processed tokens; negative values are ignored.
func (b *Budget) Add(n int) {
	if n > 0 {
		b.processed += n
	}
	b.clamp()
}

// PageDone replaces one page's estimate with the actual token count scaled
// by factor.
func (b *Budget) PageDone(actual int, factor float64) {
	b.total = b.total - b.perPage + int(math.Round(float64(actual)*factor))
	b.clamp()
}

// Complete makes the total equal to what was processed.
func (b *Budget) Complete() {
	b.total = b.processed
}

func (b *Budget) clamp() {
	if b.total < b.processed {
		b.total = b.processed
	}
}

func (b *Budget) Processed() int { return b.processed }

func (b *Budget) Total() int { return b.total }
