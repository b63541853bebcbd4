package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Options controls how a batch of items is driven through a processor.
//
// Items are always processed one at a time in input order. A failed item is
// recorded and the batch moves on; nothing is retried.
type Options struct {
	// RequestTimeout bounds a single processor call. Set to <=0 for the default.
	RequestTimeout time.Duration

	// RateLimitRPS paces calls across the whole batch. Set to <=0 to disable.
	RateLimitRPS float64
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	return o
}

// ProcessAll runs the processor over all input items.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	return ProcessAllWithCallback(ctx, items, processor, nil, opts)
}

// ProcessAllWithCallback runs the processor over all input items and invokes onResult
// after each item completes. A callback error stops the batch and is returned.
func ProcessAllWithCallback[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	onResult func(Result[In, Out]) error,
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := processOne(ctx, item, processor, limiter, opts)
		if res.Err != nil && errors.Is(res.Err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out = append(out, res)

		if onResult != nil {
			if err := onResult(res); err != nil {
				return nil, err
			}
		}
	}
	// A processor that swallows cancellation still ends the batch.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func processOne[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) Result[In, Out] {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Result[In, Out]{Input: item, Err: err}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
	defer cancel()

	res, err := processor(reqCtx, item)
	return Result[In, Out]{
		Input:  item,
		Output: res,
		Err:    err,
	}
}
