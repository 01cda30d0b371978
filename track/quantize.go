package track

import (
	"context"
	"fmt"
	"time"

	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/quantize"
)

func (t *Track) resolve(ids []model.NoteID) ([]model.NoteID, error) {
	if len(ids) == 0 {
		return t.IDs(), nil
	}
	for _, id := range ids {
		if _, ok := t.notes[id]; !ok {
			return nil, wrapNotFound(id)
		}
	}
	return ids, nil
}

func checkGrid(grid fraction.Fraction) error {
	if grid.Sign() <= 0 {
		return fmt.Errorf("%w: grid %s must be positive", fraction.ErrInvalidArgument, grid)
	}
	return nil
}

// Quantize snaps the starts of ids (every note when ids is empty) to grid
// and reports how many notes moved. The tick math runs on up to workers
// goroutines over a scratch buffer; the notes themselves are only written
// here, through Update. Every new position is checked before the first
// note moves, so on error or a cancelled ctx no note is changed.
func (t *Track) Quantize(ctx context.Context, ids []model.NoteID, grid fraction.Fraction, workers int) (int, error) {
	if err := checkGrid(grid); err != nil {
		return 0, err
	}
	ids, err := t.resolve(ids)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	buf := make([]float64, len(ids))
	for i, id := range ids {
		buf[i] = t.notes[id].Start.ToTicks(t.tpq)
	}
	if err := quantize.QuantizeParallel(ctx, buf, grid, t.tpq, workers); err != nil {
		return 0, fmt.Errorf("quantize %d notes: %w", len(ids), err)
	}

	type move struct {
		id    model.NoteID
		start fraction.Fraction
	}
	var moves []move
	for i, id := range ids {
		snapped, err := quantize.OnGrid(buf[i], grid, t.tpq)
		if err != nil {
			return 0, fmt.Errorf("note %d: %w", id, err)
		}
		n := *t.notes[id]
		if snapped.Equal(n.Start) {
			continue
		}
		n.Start = snapped
		if err := Validate(n); err != nil {
			return 0, fmt.Errorf("note %d: %w", id, err)
		}
		moves = append(moves, move{id, snapped})
	}

	for _, m := range moves {
		if err := t.Move(m.id, m.start); err != nil {
			// unreachable after Validate above
			return 0, err
		}
	}
	t.log.Debug("quantized note starts",
		"grid", grid.String(),
		"notes", len(ids),
		"moved", len(moves),
		"took", time.Since(start))
	return len(moves), nil
}

// QuantizeDurations rounds the lengths of ids (every note when ids is
// empty) to whole grid units, never below one unit.
func (t *Track) QuantizeDurations(ids []model.NoteID, grid fraction.Fraction) (int, error) {
	if err := checkGrid(grid); err != nil {
		return 0, err
	}
	ids, err := t.resolve(ids)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, id := range ids {
		n := t.notes[id]
		s := n.Start.ToTicks(t.tpq)
		d, err := quantize.Duration(s, s+n.Duration.ToTicks(t.tpq), grid, t.tpq)
		if err != nil {
			return changed, fmt.Errorf("note %d: %w", id, err)
		}
		if d.Equal(n.Duration) {
			continue
		}
		if err := t.Resize(id, d); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}
