// Package history keeps a local journal of pca runs in a bbolt file so an
// operator can see what was imported, exported or cleaned for an assessment.
package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketRuns = []byte("runs")

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Entry is one recorded run
type Entry struct {
	ID           string         `json:"id"`
	Command      string         `json:"command"`
	AssessmentID string         `json:"assessment_id,omitempty"`
	Server       string         `json:"server,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
	Result       string         `json:"result"`
	Error        string         `json:"error,omitempty"`
	Counts       map[string]int `json:"counts,omitempty"`
}

// ListFilter narrows List results
type ListFilter struct {
	AssessmentID string
	Command      string
	Limit        int
}

// Store is the run journal
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the journal at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already open database
func New(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e, assigning an ID and start time when missing.
// Keys sort by start time so cursors walk runs chronologically.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.Command == "" {
		return fmt.Errorf("command is required")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	if e.Result == "" {
		e.Result = ResultOK
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put(key(e), data)
	})
}

// List returns matching entries, newest first
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	var entries []*Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if filter.AssessmentID != "" && e.AssessmentID != filter.AssessmentID {
				continue
			}
			if filter.Command != "" && e.Command != filter.Command {
				continue
			}

			entries = append(entries, &e)
			if filter.Limit > 0 && len(entries) >= filter.Limit {
				break
			}
		}
		return nil
	})

	return entries, err
}

// Prune removes the entries of one assessment and returns how many went
func (s *Store) Prune(ctx context.Context, assessmentID string) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		var keys [][]byte

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if e.AssessmentID == assessmentID {
				keys = append(keys, append([]byte(nil), k...))
			}
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	return removed, err
}

func key(e *Entry) []byte {
	k := make([]byte, 8, 8+len(e.ID))
	binary.BigEndian.PutUint64(k, uint64(e.StartedAt.UnixNano()))
	return append(k, e.ID...)
}
