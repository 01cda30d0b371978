// Package store keeps imported tracks in SQLite so they can be reopened
// without the source MIDI file.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jsphweid/rollindex/constants"
	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrDocumentNotFound = errors.New("document not found")

type Document struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	Name            string `gorm:"index:idx_document_name"`
	SourcePath      string
	TicksPerQuarter int64
	CreatedAt       time.Time
}

// NoteRow stores a note's fractions as separate numerator and denominator
// columns.
type NoteRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	DocumentID  string `gorm:"type:varchar(36);index:idx_note_document"`
	Seq         int
	Pitch       int
	Velocity    int
	Channel     uint8
	StartNum    int64
	StartDen    int64
	DurationNum int64
	DurationDen int64
}

func (NoteRow) TableName() string { return "notes" }

type Store struct {
	DB  *gorm.DB
	db  *sql.DB
	log *slog.Logger
}

type Option func(*Store)

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	// a single writer keeps sqlite from reporting busy under the server
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Document{}, &NoteRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	s := &Store{DB: db, db: sqlDB, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveDocument stores notes under a new document and returns its id.
func (s *Store) SaveDocument(name, sourcePath string, tpq int64, notes []model.Note) (string, error) {
	doc := Document{
		ID:              uuid.NewString(),
		Name:            name,
		SourcePath:      sourcePath,
		TicksPerQuarter: tpq,
	}
	rows := make([]NoteRow, len(notes))
	for i, n := range notes {
		rows[i] = NoteRow{
			DocumentID:  doc.ID,
			Seq:         i,
			Pitch:       n.Pitch,
			Velocity:    n.Velocity,
			Channel:     n.Channel,
			StartNum:    n.Start.Num(),
			StartDen:    n.Start.Den(),
			DurationNum: n.Duration.Num(),
			DurationDen: n.Duration.Den(),
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("creating document: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, constants.StoreBatchSize).Error; err != nil {
			return fmt.Errorf("batch insert notes: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.Debug("document saved", "id", doc.ID, "name", name, "notes", len(notes))
	return doc.ID, nil
}

func (s *Store) LoadDocument(id string) (model.Document, []model.Note, error) {
	var doc Document
	if err := s.DB.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Document{}, nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		return model.Document{}, nil, fmt.Errorf("querying document: %w", err)
	}

	var rows []NoteRow
	if err := s.DB.Where("document_id = ?", id).Order("seq").Find(&rows).Error; err != nil {
		return model.Document{}, nil, fmt.Errorf("querying notes: %w", err)
	}
	notes := make([]model.Note, len(rows))
	for i, r := range rows {
		start, err := fraction.New(r.StartNum, r.StartDen)
		if err != nil {
			return model.Document{}, nil, fmt.Errorf("note %d start: %w", r.Seq, err)
		}
		duration, err := fraction.New(r.DurationNum, r.DurationDen)
		if err != nil {
			return model.Document{}, nil, fmt.Errorf("note %d duration: %w", r.Seq, err)
		}
		notes[i] = model.Note{
			Pitch:    r.Pitch,
			Start:    start,
			Duration: duration,
			Velocity: r.Velocity,
			Channel:  r.Channel,
		}
	}
	return toModel(doc, len(notes)), notes, nil
}

// ListDocuments returns every document, oldest first, with its note count.
func (s *Store) ListDocuments() ([]model.Document, error) {
	var docs []Document
	if err := s.DB.Order("created_at, name").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	var counts []struct {
		DocumentID string
		N          int
	}
	err := s.DB.Model(&NoteRow{}).
		Select("document_id, count(*) as n").
		Group("document_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting notes: %w", err)
	}
	byDoc := make(map[string]int, len(counts))
	for _, c := range counts {
		byDoc[c.DocumentID] = c.N
	}

	res := make([]model.Document, len(docs))
	for i, d := range docs {
		res[i] = toModel(d, byDoc[d.ID])
	}
	return res, nil
}

func (s *Store) DeleteDocument(id string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&Document{})
		if res.Error != nil {
			return fmt.Errorf("deleting document: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		if err := tx.Where("document_id = ?", id).Delete(&NoteRow{}).Error; err != nil {
			return fmt.Errorf("deleting notes: %w", err)
		}
		return nil
	})
}

func toModel(d Document, numNotes int) model.Document {
	return model.Document{
		ID:              d.ID,
		Name:            d.Name,
		SourcePath:      d.SourcePath,
		TicksPerQuarter: d.TicksPerQuarter,
		NumNotes:        numNotes,
		CreatedAt:       d.CreatedAt,
	}
}
