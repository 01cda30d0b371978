package constants

import "os"

func GetIndexDir() string {
	path := os.Getenv("INDEX_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

func GetDBPath() string {
	path := os.Getenv("ROLLINDEX_DB")
	if path != "" {
		return path
	}
	return "rollindex.sqlite3"
}

// 20 quarter notes at 96 ticks per quarter
const TimeBucketSize = 1920

// one octave
const PitchBucketSize = 12

const DefaultTicksPerQuarter = 96

const (
	MinPitch    = 0
	MaxPitch    = 127
	MinVelocity = 1
	MaxVelocity = 127
)

// notes per gorm insert batch
const StoreBatchSize = 500
