package model

import "github.com/jsphweid/rollindex/fraction"

type NoteID = uint64

// Note positions are in whole notes; see package fraction.
type Note struct {
	Pitch    int               `json:"pitch"`
	Start    fraction.Fraction `json:"start"`
	Duration fraction.Fraction `json:"duration"`
	Velocity int               `json:"velocity"`
	Channel  uint8             `json:"channel"`
}

func (n *Note) NotePitch() int                  { return n.Pitch }
func (n *Note) NoteStart() fraction.Fraction    { return n.Start }
func (n *Note) NoteDuration() fraction.Fraction { return n.Duration }

func (n *Note) End() (fraction.Fraction, error) {
	return n.Start.Add(n.Duration)
}

// IndexedNote pairs a note with the id its track filed it under.
type IndexedNote struct {
	ID NoteID `json:"id"`
	Note
}
