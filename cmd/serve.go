package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jsphweid/rollindex/snapshot"
	"github.com/jsphweid/rollindex/track"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	listen   string
	document string
	resume   bool
	snapshot string
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", "", "listen address (default from config)")
	f.StringVar(&serveFlags.document, "doc", "", "stored document to edit")
	f.StringVar(&serveFlags.snapshot, "snapshot", "", "snapshot id to continue editing")
	f.BoolVar(&serveFlags.resume, "resume", false, "continue the most recent snapshot")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves a track for editing over HTTP",
	Long: `Serves one track for editing over HTTP. The track starts from a stored
document, a snapshot, or empty, and is autosaved as a snapshot in the index
directory once edits settle.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := loadServer()
		if err != nil {
			return err
		}
		autosave := srv.EnableAutosave(cfg.IndexDir, cfg.AutosaveDelay)

		listen := cfg.Listen
		if serveFlags.listen != "" {
			listen = serveFlags.listen
		}
		httpServer := &http.Server{
			Addr:              listen,
			Handler:           cors.Default().Handler(srv.Router()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("serving", "listen", listen, "snapshot", srv.id, "notes", srv.track.Len())
		errc := make(chan error, 1)
		go func() {
			errc <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("shutdown", "error", err)
			}
		}

		if err := autosave.Flush(); err != nil {
			return fmt.Errorf("final save: %w", err)
		}
		log.Info("saved", "path", snapshot.Path(cfg.IndexDir, srv.id))
		return nil
	},
}

func loadServer() (*Server, error) {
	grid, err := cfg.GridFraction()
	if err != nil {
		return nil, err
	}
	opts := []ServerOption{WithGrid(grid), WithWorkers(cfg.Workers), WithServerLogger(log)}

	snapID := serveFlags.snapshot
	if serveFlags.resume && snapID == "" {
		ids, err := snapshot.List(cfg.IndexDir)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("no snapshots in %s to resume", cfg.IndexDir)
		}
		snapID = ids[0].String()
	}

	switch {
	case snapID != "":
		id, err := uuid.Parse(snapID)
		if err != nil {
			return nil, fmt.Errorf("snapshot id: %w", err)
		}
		s, err := snapshot.Read(snapshot.Path(cfg.IndexDir, id))
		if err != nil {
			return nil, err
		}
		t := track.New(s.TicksPerQuarter, track.WithLogger(log))
		if err := t.Load(s.Notes); err != nil {
			return nil, err
		}
		return NewServer(t, append(opts, WithSnapshot(s.ID, s.Name))...), nil

	case serveFlags.document != "":
		st, err := openStore()
		if err != nil {
			return nil, err
		}
		defer st.Close()
		t, doc, err := OpenTrack(st, serveFlags.document)
		if err != nil {
			return nil, err
		}
		return NewServer(t, append(opts, WithSnapshot(uuid.New(), doc.Name))...), nil
	}

	t := track.New(cfg.TicksPerQuarter, track.WithLogger(log))
	return NewServer(t, append(opts, WithSnapshot(uuid.New(), "untitled"))...), nil
}
