package model

import "github.com/jsphweid/rollindex/fraction"

type ViewportRequestBody struct {
	StartTicks float64 `json:"start_ticks"`
	EndTicks   float64 `json:"end_ticks"`
	MinPitch   int     `json:"min_pitch"`
	MaxPitch   int     `json:"max_pitch"`
}

type QueryResponse struct {
	NumNotes int           `json:"num_notes"`
	Notes    []IndexedNote `json:"notes"`
}

// Only the fields that are set are applied. Snap moves the resulting start
// to the server's grid.
type NotePatchBody struct {
	Start     *fraction.Fraction `json:"start,omitempty"`
	Snap      bool               `json:"snap,omitempty"`
	Duration  *fraction.Fraction `json:"duration,omitempty"`
	Transpose int                `json:"transpose,omitempty"`
	Velocity  *int               `json:"velocity,omitempty"`
}

type QuantizeRequestBody struct {
	Grid fraction.Fraction `json:"grid"`
	IDs  []NoteID          `json:"ids,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
