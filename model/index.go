package model

import "time"

// Statistics is a diagnostic snapshot of a note index. It is not meant for
// control flow.
type Statistics struct {
	TotalNotes     int       `json:"total_notes"`
	TimeBuckets    int       `json:"time_buckets"`
	PitchBuckets   int       `json:"pitch_buckets"`
	SpatialBuckets int       `json:"spatial_buckets"`
	IsDirty        bool      `json:"is_dirty"`
	LastRebuild    time.Time `json:"last_rebuild"`
}

type Document struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	SourcePath      string    `json:"source_path"`
	TicksPerQuarter int64     `json:"ticks_per_quarter"`
	NumNotes        int       `json:"num_notes"`
	CreatedAt       time.Time `json:"created_at"`
}
