package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jsphweid/rollindex/snapshot"
	"github.com/jsphweid/rollindex/track"
	"github.com/jsphweid/rollindex/util"
	"github.com/spf13/cobra"
)

var inspectSnapshot bool

func init() {
	inspectCmd.Flags().BoolVar(&inspectSnapshot, "snapshot", false, "treat the argument as a snapshot file path")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <document id | snapshot path>",
	Short: "Prints note index statistics for a document or snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectSnapshot {
			s, err := snapshot.Read(args[0])
			if err != nil {
				return err
			}
			t := track.New(s.TicksPerQuarter, track.WithLogger(log))
			if err := t.Load(s.Notes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s (%s), saved %s\n", s.ID, s.Name, humanize.Time(s.SavedAt))
			inspect(cmd.OutOrStdout(), t)
			return nil
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
		fmt.Fprintf(cmd.OutOrStdout(), "document %s (%s)\n", doc.ID, doc.Name)
		inspect(cmd.OutOrStdout(), t)
		return nil
	},
}

func inspect(w io.Writer, t *track.Track) {
	stats := t.Statistics()
	fmt.Fprintf(w, "notes:           %s\n", humanize.Comma(int64(stats.TotalNotes)))
	fmt.Fprintf(w, "time buckets:    %d\n", stats.TimeBuckets)
	fmt.Fprintf(w, "pitch buckets:   %d\n", stats.PitchBuckets)
	fmt.Fprintf(w, "spatial buckets: %d\n", stats.SpatialBuckets)
	if stats.SpatialBuckets > 0 {
		fmt.Fprintf(w, "notes/bucket:    %.1f\n", float64(stats.TotalNotes)/float64(stats.SpatialBuckets))
	}

	// same pitch notes sounding together, counted once per pair
	perPitch := make(map[int]int)
	overlaps := 0
	for _, n := range t.Notes() {
		perPitch[n.Pitch]++
		others, _ := t.Overlapping(n.ID)
		overlaps += len(others)
	}
	fmt.Fprintf(w, "overlaps:        %d\n", overlaps/2)
	for _, p := range util.GetKeys(perPitch) {
		fmt.Fprintf(w, "  %-4s %3d  %s\n", pitchName(p), p, humanize.Comma(int64(perPitch[p])))
	}
}

var pitchClasses = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func pitchName(p int) string {
	if p < 0 || p > 127 {
		return "?"
	}
	return fmt.Sprintf("%s%d", pitchClasses[p%12], p/12-1)
}
