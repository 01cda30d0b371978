package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jsphweid/rollindex/snapshot"
	"github.com/jsphweid/rollindex/store"
	"github.com/jsphweid/rollindex/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarizes stored documents and snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return report(cmd.OutOrStdout(), st, cfg.IndexDir)
	},
}

func report(w io.Writer, st *store.Store, indexDir string) error {
	docs, err := st.ListDocuments()
	if err != nil {
		return err
	}
	counts := make([]int, len(docs))
	for i, d := range docs {
		counts[i] = d.NumNotes
		fmt.Fprintf(w, "%s  %-30s  %8s notes  %4d tpq  %s\n",
			d.ID, d.Name, humanize.Comma(int64(d.NumNotes)), d.TicksPerQuarter, humanize.Time(d.CreatedAt))
	}
	fmt.Fprintf(w, "documents: %d, notes: %s\n", len(docs), humanize.Comma(int64(util.Sum(counts))))

	ids, err := snapshot.List(indexDir)
	if err != nil {
		return err
	}
	var total uint64
	for _, id := range ids {
		info, err := os.Stat(snapshot.Path(indexDir, id))
		if err != nil {
			return err
		}
		total += uint64(info.Size())
	}
	fmt.Fprintf(w, "snapshots: %d in %s, %s\n", len(ids), indexDir, humanize.Bytes(total))
	return nil
}
