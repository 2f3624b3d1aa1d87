package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store implements a very basic data store for generated reports
// Every method takes the lock, writes go straight to disk:
type Store struct {
	path   string
	logger zerolog.Logger

	data *Data

	lock *sync.Mutex
}

// Data is the main store data structure
// When the store is initialized, it's loaded from disk -if a data file exists-:
type Data struct {
	Reports map[string]*Record `json:"reports"`
}

// Record describes a generated document:
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OPJ       string    `json:"opj,omitempty"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	// PhotoCount is the number of uploads, Embedded the ones that made it into the document:
	PhotoCount int  `json:"photo_count"`
	Embedded   int  `json:"embedded"`
	Cleaned    bool `json:"cleaned"`
}

var (
	ErrReportNotFound = errors.New("report not found")
)

// Init initializes the store and loads existing data into memory:
func (s *Store) Init() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	// If the data file exists, pick it up
	// otherwise create it:
	if _, err := os.Stat(s.path); err != nil {
		s.logger.Info().Msgf("Initializing store: %s", s.path)
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(s.path, []byte("{}"), 0o644); err != nil {
			return err
		}
	}
	rawData, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var storeData Data
	if err := json.Unmarshal(rawData, &storeData); err != nil {
		return err
	}
	if storeData.Reports == nil {
		storeData.Reports = make(map[string]*Record)
	}
	s.logger.Info().Msgf("Store initialized from %s - %d bytes", s.path, len(rawData))
	s.data = &storeData
	return nil
}

// AppendReport adds a record to the store.
// Memory only changes when the record reaches disk:
func (s *Store) AppendReport(r *Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	prev, existed := s.data.Reports[r.ID]
	s.data.Reports[r.ID] = r
	if err := s.save(); err != nil {
		if existed {
			s.data.Reports[r.ID] = prev
		} else {
			delete(s.data.Reports, r.ID)
		}
		return err
	}
	return nil
}

// RetrieveReport retrieves a record from the store:
func (s *Store) RetrieveReport(id string) (*Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if r, ok := s.data.Reports[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, ErrReportNotFound
}

// RetrieveReports retrieves every record, newest first:
func (s *Store) RetrieveReports() []*Record {
	s.lock.Lock()
	defer s.lock.Unlock()
	records := make([]*Record, 0, len(s.data.Reports))
	for _, r := range s.data.Reports {
		copied := *r
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}

// GetReportCount returns the number of reports in the store:
func (s *Store) GetReportCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.data.Reports)
}

// DeleteReport removes a record and its document:
func (s *Store) DeleteReport(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	r, ok := s.data.Reports[id]
	if !ok {
		return ErrReportNotFound
	}
	if err := os.Remove(r.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	delete(s.data.Reports, id)
	return s.save()
}

// save is an internal method for saving the current store data to disk.
// It writes to a temporary file first so a crash can't leave a truncated store:
func (s *Store) save() error {
	rawData, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, rawData, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// New creates a new store backed by the JSON file at path:
func New(path string, logger zerolog.Logger) *Store {
	s := &Store{
		lock:   &sync.Mutex{},
		path:   path,
		logger: logger,
	}
	return s
}
