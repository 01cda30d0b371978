package quantize

import (
	"context"

	"github.com/jsphweid/rollindex/fraction"
	"golang.org/x/sync/errgroup"
)

// below this many positions per worker the goroutines cost more than they save
const minChunk = 4096

// QuantizeParallel is QuantizeBatch split into contiguous chunks across
// workers. It only touches the buffer, so it may run off the editing
// goroutine; results must be applied to notes by the caller. Cancelling ctx
// stops chunks that have not started yet and the buffer is then partially
// quantized.
func QuantizeParallel(ctx context.Context, ticks []float64, grid fraction.Fraction, tpq int64, workers int) error {
	if workers < 1 {
		workers = 1
	}
	chunk := (len(ticks) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(ticks); lo += chunk {
		hi := lo + chunk
		if hi > len(ticks) {
			hi = len(ticks)
		}
		part := ticks[lo:hi]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			QuantizeBatch(part, grid, tpq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
