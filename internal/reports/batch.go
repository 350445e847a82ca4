package reports

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchConcurrency = 4
	defaultItemTimeout      = 3 * time.Minute
)

// BatchItem is one report to analyze.
type BatchItem struct {
	ReportID string `json:"report_id"`
	RawText  string `json:"report_text"`
}

// BatchOptions bounds a batch run.
type BatchOptions struct {
	Concurrency int
	ItemTimeout time.Duration
}

// BatchResult pairs an item's outcome with its error, if any.
type BatchResult struct {
	Outcome Outcome
	Err     error
}

// AnalyzeBatch analyzes items on a bounded pool. Results keep input order;
// one item failing or timing out does not stop the rest.
func (s *Service) AnalyzeBatch(ctx context.Context, items []BatchItem, opts BatchOptions) []BatchResult {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultBatchConcurrency
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = defaultItemTimeout
	}

	results := make([]BatchResult, len(items))
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
			defer cancel()
			out, err := s.Analyze(itemCtx, item.ReportID, item.RawText)
			if out.ReportID == "" {
				out.ReportID = item.ReportID
			}
			results[i] = BatchResult{Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
