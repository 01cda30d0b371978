package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jsphweid/rollindex/midi"
	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/store"
	"github.com/jsphweid/rollindex/track"
	"github.com/jsphweid/rollindex/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <path> [max files]",
	Short: "Imports MIDI files into the note store",
	Long: `Imports a MIDI file, or every .mid/.midi file under a directory, into the
note store. Files that cannot be parsed are skipped.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var maxNum int
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("max files: %w", err)
			}
			maxNum = n
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		docs, err := Import(st, args[0], maxNum)
		if err != nil {
			return err
		}
		total := 0
		for _, d := range docs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s notes\n", d.ID, d.Name, humanize.Comma(int64(d.NumNotes)))
			total += d.NumNotes
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %s notes from %d files\n", humanize.Comma(int64(total)), len(docs))
		return nil
	},
}

// Import stores every MIDI file under path, up to maxNum files when maxNum
// is positive, and returns the documents created.
func Import(st *store.Store, path string, maxNum int) ([]model.Document, error) {
	paths, err := util.GatherAllMidiPaths(path, maxNum)
	if err != nil {
		return nil, err
	}

	var docs []model.Document
	for _, p := range paths {
		s, err := midi.ReadMidiFile(p)
		if err != nil {
			log.Warn("skipping midi file", "path", p, "error", err)
			continue
		}
		notes, tpq, err := midi.Notes(s)
		if err != nil {
			log.Warn("skipping midi file", "path", p, "error", err)
			continue
		}
		// drop what the track would reject instead of failing the file
		valid := notes[:0]
		for _, n := range notes {
			if track.Validate(n) == nil {
				valid = append(valid, n)
			}
		}

		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		id, err := st.SaveDocument(name, p, tpq, valid)
		if err != nil {
			return docs, fmt.Errorf("saving %s: %w", p, err)
		}
		log.Info("imported midi file", "path", p, "id", id, "notes", len(valid), "dropped", len(notes)-len(valid))
		docs = append(docs, model.Document{
			ID:              id,
			Name:            name,
			SourcePath:      p,
			TicksPerQuarter: tpq,
			NumNotes:        len(valid),
		})
	}
	return docs, nil
}
