package cmd

import (
	"fmt"
	"math"

	"github.com/jsphweid/rollindex/midi"
	"github.com/spf13/cobra"
)

var exportFlags struct {
	startTicks float64
	endTicks   float64
}

func init() {
	exportCmd.Flags().Float64Var(&exportFlags.startTicks, "start", 0, "only notes sounding from this tick")
	exportCmd.Flags().Float64Var(&exportFlags.endTicks, "end", math.MaxFloat64, "only notes sounding before this tick")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <document id> <out.mid>",
	Short: "Writes a stored document, or a time window of it, as a MIDI file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		t, doc, err := OpenTrack(st, args[0])
		if err != nil {
			return err
		}
		notes := t.QueryTimeRange(exportFlags.startTicks, exportFlags.endTicks)
		if err := midi.WriteFile(args[1], plainNotes(notes), doc.TicksPerQuarter); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d notes to %s\n", len(notes), t.Len(), args[1])
		return nil
	},
}
