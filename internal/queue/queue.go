package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"platesync/internal/importer"
	"platesync/internal/logger"
	"platesync/internal/models"
)

// Queue is the durable import task FIFO with self-triggering drain. Tasks are
// immutable once pushed; statistics accumulate in a checkpoint between ticks
// so an interrupted run resumes where it left off.
type Queue struct {
	backlog Backlog
	trigger Trigger
	mat     *importer.Materializer
	rec     *importer.Reconciler
	log     *logger.Logger
}

func New(backlog Backlog, trigger Trigger, mat *importer.Materializer, rec *importer.Reconciler, log *logger.Logger) *Queue {
	return &Queue{backlog: backlog, trigger: trigger, mat: mat, rec: rec, log: log}
}

func (q *Queue) Enqueue(ctx context.Context, task models.ImportTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("queue: encode task: %w", err)
	}
	return q.backlog.Push(ctx, payload)
}

func (q *Queue) Dispatch(ctx context.Context) error {
	return q.trigger.Dispatch(ctx)
}

// Drain runs one tick. It reads up to batchSize tasks from the head of the
// backlog, materializes each, discards the batch, merges the outcome into the
// checkpointed statistics, and either re-triggers itself while tasks remain
// or runs reconciliation exactly once when the backlog is empty. A batch is
// removed from durable storage only after it has been materialized, so a tick
// that crashes mid-batch re-runs the same tasks; materialization is
// idempotent per SKU, so the re-run rewrites the same entities.
func (q *Queue) Drain(ctx context.Context, batchSize int) error {
	if batchSize < 1 {
		batchSize = 1
	}

	stats, resumed, err := q.loadCheckpoint(ctx)
	if err != nil {
		return err
	}

	payloads, err := q.backlog.Peek(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("queue: read batch: %w", err)
	}

	// A tick with no tasks and no in-flight run is a stray trigger.
	if len(payloads) == 0 && !resumed {
		return nil
	}

	rl := importer.NewRunLog(q.log)

	for _, payload := range payloads {
		var task models.ImportTask
		if err := json.Unmarshal(payload, &task); err != nil {
			rl.Errorf("dropping undecodable task: %v", err)
			continue
		}
		stats.Record(q.mat.Materialize(ctx, task, rl))
	}

	if len(payloads) > 0 {
		if err := q.backlog.Discard(ctx, len(payloads)); err != nil {
			return fmt.Errorf("queue: discard batch: %w", err)
		}
	}

	remaining, err := q.backlog.Len(ctx)
	if err != nil {
		return fmt.Errorf("queue: backlog length: %w", err)
	}

	if remaining > 0 {
		if err := q.saveCheckpoint(ctx, stats); err != nil {
			return err
		}
		q.log.Debug("drain: %d task(s) remaining, re-triggering", remaining)
		return q.trigger.Dispatch(ctx)
	}

	if err := q.rec.Run(ctx, stats, rl); err != nil {
		rl.Errorf("reconciliation failed: %v", err)
	}

	q.log.Info("drain complete: %d imported, %d inserted, %d updated, %d excluded",
		stats.Imported, len(stats.Inserted), len(stats.Updated), len(stats.Excluded))

	return q.backlog.ClearCheckpoint(ctx)
}

func (q *Queue) loadCheckpoint(ctx context.Context) (importer.Statistics, bool, error) {
	var stats importer.Statistics

	payload, ok, err := q.backlog.LoadCheckpoint(ctx)
	if err != nil {
		return stats, false, fmt.Errorf("queue: load checkpoint: %w", err)
	}
	if !ok {
		return stats, false, nil
	}
	if err := json.Unmarshal(payload, &stats); err != nil {
		q.log.Warn("drain: discarding undecodable checkpoint: %v", err)
		return importer.Statistics{}, true, nil
	}
	return stats, true, nil
}

func (q *Queue) saveCheckpoint(ctx context.Context, stats importer.Statistics) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("queue: encode checkpoint: %w", err)
	}
	if err := q.backlog.SaveCheckpoint(ctx, payload); err != nil {
		return fmt.Errorf("queue: save checkpoint: %w", err)
	}
	return nil
}
