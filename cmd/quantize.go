package cmd

import (
	"context"
	"fmt"

	"github.com/jsphweid/rollindex/fraction"
	"github.com/spf13/cobra"
)

var quantizeFlags struct {
	grid      string
	durations bool
}

func init() {
	quantizeCmd.Flags().StringVar(&quantizeFlags.grid, "grid", "", "grid as a fraction of a whole note, e.g. 1/16 or 1/12 (default from config)")
	quantizeCmd.Flags().BoolVar(&quantizeFlags.durations, "durations", false, "also round note lengths to the grid")
	rootCmd.AddCommand(quantizeCmd)
}

var quantizeCmd = &cobra.Command{
	Use:   "quantize <document id>",
	Short: "Quantizes a stored document into a new document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		grid, err := gridOrDefault(quantizeFlags.grid)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		t, doc, err := OpenTrack(st, args[0])
		if err != nil {
			return err
		}
		moved, err := t.Quantize(contextOrBackground(cmd.Context()), nil, grid, cfg.Workers)
		if err != nil {
			return err
		}
		resized := 0
		if quantizeFlags.durations {
			if resized, err = t.QuantizeDurations(nil, grid); err != nil {
				return err
			}
		}

		name := fmt.Sprintf("%s (quantized %s)", doc.Name, grid)
		id, err := st.SaveDocument(name, doc.SourcePath, doc.TicksPerQuarter, plainNotes(t.Notes()))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  moved %d, resized %d of %d notes\n", id, name, moved, resized, t.Len())
		return nil
	},
}

func gridOrDefault(s string) (fraction.Fraction, error) {
	if s == "" {
		return cfg.GridFraction()
	}
	g, err := fraction.Parse(s)
	if err != nil {
		return g, err
	}
	if g.Sign() <= 0 {
		return g, fmt.Errorf("%w: grid %s must be positive", fraction.ErrInvalidArgument, g)
	}
	return g, nil
}

// commands run outside Execute have no context
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
