package service

import (
	"context"
	"strings"

	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// BatchOrchestrator runs a batch in consecutive chunks of size
// parallelism. Items inside a chunk race; the next chunk never starts
// until every item in the current one is terminal, so peak concurrency is
// exactly the parallelism bound.
type BatchOrchestrator struct {
	pipeline       *ItemPipeline
	store          *RunStore
	maxParallelism int
}

func NewBatchOrchestrator(pipeline *ItemPipeline, store *RunStore, maxParallelism int) *BatchOrchestrator {
	if maxParallelism <= 0 {
		maxParallelism = 10
	}
	return &BatchOrchestrator{
		pipeline:       pipeline,
		store:          store,
		maxParallelism: maxParallelism,
	}
}

// Run processes every item of the run and records the final tally. It
// always finishes: item failures are tallied, never propagated.
func (o *BatchOrchestrator) Run(ctx context.Context, run *model.BatchRun, library []*model.LibraryFile) {
	ctx = context.WithValue(ctx, logger.BatchIDKey, run.ID)

	parallelism := run.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	if parallelism > o.maxParallelism {
		parallelism = o.maxParallelism
	}

	o.store.MarkRunning(run.ID)
	logger.Info(ctx, "batch started", "items", len(run.Items), "parallelism", parallelism)

	for start := 0; start < len(run.Items); start += parallelism {
		end := start + parallelism
		if end > len(run.Items) {
			end = len(run.Items)
		}

		g := new(errgroup.Group)
		for _, item := range run.Items[start:end] {
			item := item
			g.Go(func() error {
				if strings.TrimSpace(item.ProductName) == "" {
					// Rejected before dispatch, not inside the pipeline.
					o.store.UpdateItemStatus(run.ID, item.ID, model.StatusFailed, -1, "product name is required")
					return nil
				}
				o.pipeline.Process(ctx, run, item, library)
				return nil
			})
		}
		// Pipelines never return errors; the wait is purely the chunk gate.
		_ = g.Wait()
	}

	completed, failed := 0, 0
	for _, item := range run.Items {
		switch item.Status.Status {
		case model.StatusCompleted:
			completed++
		default:
			// Anything not completed at this point is failed; pipelines
			// leave no item in a non-terminal state.
			failed++
		}
	}

	o.store.FinishRun(run.ID, completed, failed)
	logger.Info(ctx, "batch finished", "completed", completed, "failed", failed)
}
