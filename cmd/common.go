package cmd

import (
	"fmt"

	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/store"
	"github.com/jsphweid/rollindex/track"
)

func openStore() (*store.Store, error) {
	return store.Open(cfg.DBPath, store.WithLogger(log))
}

// OpenTrack loads a stored document into a fresh track at the document's
// resolution.
func OpenTrack(st *store.Store, id string) (*track.Track, model.Document, error) {
	doc, notes, err := st.LoadDocument(id)
	if err != nil {
		return nil, model.Document{}, err
	}
	t := track.New(doc.TicksPerQuarter, track.WithLogger(log))
	if _, err := t.InsertBatch(notes); err != nil {
		return nil, doc, fmt.Errorf("document %s: %w", id, err)
	}
	return t, doc, nil
}

func plainNotes(notes []model.IndexedNote) []model.Note {
	res := make([]model.Note, len(notes))
	for i, n := range notes {
		res[i] = n.Note
	}
	return res
}
