package generate

import (
	"context"
	"time"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/logger"
)

// worker dispatches ready items until the run is over
func (r *run) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	r.logger.Starting("Worker started", logger.FieldWorkerID, id)
	defer r.logger.Debugw("Worker exiting", logger.FieldWorkerID, id)

	for {
		w, snap, ok := r.next()
		if !ok {
			return
		}
		r.logger.Debugw("Dispatching item",
			logger.FieldWorkerID, id,
			logger.FieldItemID, w.ID,
			logger.FieldKind, w.Kind,
			logger.FieldPriority, w.Priority,
			logger.FieldAttempt, snap.CurrentAttempt)
		r.report.deliver(snap)
		r.attempt(ctx, w)
	}
}

// attempt runs one RUNNING item through context, cache, budget, executor and sink.
// While an item is RUNNING its context and entity belong to the attempting worker.
func (r *run) attempt(ctx context.Context, w *WorkItem) {
	input, err := r.contextFor(ctx, w)
	if err != nil {
		r.failAttempt(ctx, w, err)
		return
	}

	result, hit, err := r.resolve(ctx, w, input)
	if err != nil {
		r.failAttempt(ctx, w, err)
		return
	}

	if err := r.e.sink.Save(ctx, w.ID, result); err != nil {
		err = errors.Wrapf(err, "failed to save result for %s", w.ID)
		r.failAttempt(ctx, w, err)
		return
	}

	r.complete(w, result, hit)
}

// contextFor returns the item's context, building it when the earlier build failed
func (r *run) contextFor(ctx context.Context, w *WorkItem) (Context, error) {
	if w.context != nil {
		return w.context, nil
	}
	if w.entity == nil || r.e.builder == nil {
		return nil, Permanent(errors.Newf("item %s has no context and no way to build one", w.ID))
	}

	input, err := r.e.builder.Build(ctx, w.Kind, w.entity)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build context for %s", w.ID)
	}
	if input == nil {
		return nil, errors.Newf("context builder returned no context for %s", w.ID)
	}
	w.context = input
	return input, nil
}

// resolve answers from the cache or executes, coalescing concurrent attempts
// that share a fingerprint so only one of them reaches the executor.
func (r *run) resolve(ctx context.Context, w *WorkItem, input Context) (Result, bool, error) {
	if !r.e.cfg.CacheEnabled {
		result, err := r.executeItem(ctx, w, input)
		return result, false, err
	}

	fp, err := input.Fingerprint()
	if err != nil {
		r.logger.Warnw("Context fingerprint failed, executing uncached",
			logger.FieldItemID, w.ID,
			logger.FieldError, err)
		result, err := r.executeItem(ctx, w, input)
		return result, false, err
	}

	var done chan struct{}
	for {
		if result, ok := r.e.cache.Lookup(fp); ok {
			r.logger.Debugw("Cache hit", logger.FieldItemID, w.ID, logger.FieldFingerprint, fp)
			return result, true, nil
		}

		ch, owner := r.claimFingerprint(fp)
		if owner {
			done = ch
			break
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	defer r.releaseFingerprint(fp, done)

	// A previous owner may have stored between our lookup and claim
	if result, ok := r.e.cache.Lookup(fp); ok {
		return result, true, nil
	}

	result, err := r.executeItem(ctx, w, input)
	if err != nil {
		return nil, false, err
	}
	r.e.cache.Store(fp, result)
	return result, false, nil
}

// executeItem waits for rate budget and invokes the executor
func (r *run) executeItem(ctx context.Context, w *WorkItem, input Context) (Result, error) {
	err := r.e.limiter.WaitNotify(ctx, func(wait time.Duration) {
		r.logger.Pulse("Rate limit reached, waiting",
			logger.FieldItemID, w.ID,
			logger.FieldWait, wait)
	})
	if err != nil {
		return nil, err
	}

	r.countExecution()
	start := r.e.clock.Now()
	result, err := r.e.executor.Execute(ctx, input)
	r.logger.Debugw("Executor returned",
		logger.FieldItemID, w.ID,
		logger.FieldDurationMS, r.e.clock.Now().Sub(start).Milliseconds(),
		logger.FieldError, err)
	if err != nil {
		return nil, errors.Wrapf(err, "generation failed for %s", w.ID)
	}
	if result == nil {
		result = Result{}
	}
	return result, nil
}
