// Package historian drains the action queue the game service pushes to and archives every
// committed action in postgres.
package historian

import (
	"context"
	"time"

	"github.com/jason-s-yu/stakes/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued records. Pop returns nil, nil when nothing arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.ActionRecord, error)
}

// Sink persists a batch of records atomically.
type Sink interface {
	WriteActions(ctx context.Context, recs []cache.ActionRecord) error
}

// Historian batches records from Source into Sink, flushing when the batch is full or every
// FlushDelay, whichever comes first.
type Historian struct {
	Source     Source
	Sink       Sink
	Log        *logrus.Logger
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking pop so flushes and shutdown are not starved.
	PopTimeout time.Duration

	batch []cache.ActionRecord
}

func (h *Historian) defaults() {
	if h.BatchSize <= 0 {
		h.BatchSize = 20
	}
	if h.FlushDelay <= 0 {
		h.FlushDelay = 500 * time.Millisecond
	}
	if h.PopTimeout <= 0 || h.PopTimeout > h.FlushDelay {
		h.PopTimeout = h.FlushDelay
	}
}

// Run consumes until ctx ends, then flushes whatever is buffered and returns ctx.Err().
func (h *Historian) Run(ctx context.Context) error {
	h.defaults()
	h.Log.WithFields(logrus.Fields{
		"batch_size":  h.BatchSize,
		"flush_delay": h.FlushDelay,
	}).Info("historian started")

	lastFlush := time.Now()
	for {
		if ctx.Err() != nil {
			h.flush(context.WithoutCancel(ctx))
			h.Log.Info("historian stopped")
			return ctx.Err()
		}

		rec, err := h.Source.Pop(ctx, h.PopTimeout)
		switch {
		case err != nil && ctx.Err() == nil:
			h.Log.WithError(err).Warn("pop action record")
		case rec != nil:
			h.batch = append(h.batch, *rec)
		}

		if len(h.batch) >= h.BatchSize || time.Since(lastFlush) >= h.FlushDelay {
			h.flush(ctx)
			lastFlush = time.Now()
		}
	}
}

// flush writes the buffered batch. A failed batch is kept and retried on the next flush.
func (h *Historian) flush(ctx context.Context) {
	if len(h.batch) == 0 {
		return
	}
	if err := h.Sink.WriteActions(ctx, h.batch); err != nil {
		h.Log.WithError(err).WithField("count", len(h.batch)).Error("flush actions")
		return
	}
	h.Log.WithField("count", len(h.batch)).Debug("flushed actions")
	h.batch = h.batch[:0]
}
