package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/track"
	"github.com/jsphweid/rollindex/util"
	"github.com/spf13/cobra"
)

var queryFlags struct {
	shape      string
	startTicks float64
	endTicks   float64
	minPitch   int
	maxPitch   int
	limit      int
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.shape, "shape", "viewport", "viewport, rect, time or pitch")
	f.Float64Var(&queryFlags.startTicks, "start", 0, "window start in ticks")
	f.Float64Var(&queryFlags.endTicks, "end", math.MaxFloat64, "window end in ticks")
	f.IntVar(&queryFlags.minPitch, "min-pitch", 0, "lowest pitch")
	f.IntVar(&queryFlags.maxPitch, "max-pitch", 127, "highest pitch")
	f.IntVar(&queryFlags.limit, "limit", 50, "notes to print, 0 for all")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <document id>",
	Short: "Queries a stored document through the note index",
	Args:  cobra.ExactArgs(1),
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
		notes, err := runQuery(t, queryFlags.shape)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s of %s notes match (%d ticks per quarter)\n",
			doc.Name, humanize.Comma(int64(len(notes))), humanize.Comma(int64(t.Len())), doc.TicksPerQuarter)
		printNotes(cmd.OutOrStdout(), notes, queryFlags.limit)
		return nil
	},
}

func runQuery(t *track.Track, shape string) ([]model.IndexedNote, error) {
	q := queryFlags
	switch shape {
	case "viewport":
		return t.QueryViewport(q.startTicks, q.endTicks, q.minPitch, q.maxPitch), nil
	case "rect":
		return t.QueryRect(q.startTicks, q.endTicks, q.minPitch, q.maxPitch), nil
	case "time":
		return t.QueryTimeRange(q.startTicks, q.endTicks), nil
	case "pitch":
		return t.QueryPitchRange(q.minPitch, q.maxPitch), nil
	}
	return nil, fmt.Errorf("unknown query shape %q", shape)
}

func printNotes(w io.Writer, notes []model.IndexedNote, limit int) {
	n := len(notes)
	if limit > 0 {
		n = util.Min(n, limit)
	}
	for _, note := range notes[:n] {
		fmt.Fprintf(w, "%6d  pitch %3d  start %-8s  duration %-6s  velocity %3d  channel %2d\n",
			note.ID, note.Pitch, note.Start, note.Duration, note.Velocity, note.Channel)
	}
	if n < len(notes) {
		fmt.Fprintf(w, "... %d more\n", len(notes)-n)
	}
}
