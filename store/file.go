package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileStore keeps the whole collection as a JSON list in a single file.
// Each operation reloads the file, so nothing but the highest issued id is
// kept in memory between calls.
//
// That high-water mark lives only as long as the instance. A new FileStore
// over the same file starts from the largest id on disk, so if the record
// holding the largest id was deleted before a restart its id is issued
// again. Use BoltStore when ids must never repeat across restarts.
type FileStore[T any, P Record[T]] struct {
	path string
	log  logrus.FieldLogger

	// mu serializes every load/mutate/save cycle of this instance.
	mu sync.Mutex
	// lastID is the highest id issued by this instance. Not persisted.
	lastID int
}

func NewFileStore[T any, P Record[T]](path string, logger logrus.FieldLogger) *FileStore[T, P] {
	return &FileStore[T, P]{
		path: path,
		log:  logger.WithField("store", filepath.Base(path)),
	}
}

func (s *FileStore[T, P]) Path() string {
	return s.path
}

// Load returns the persisted collection. A missing, empty or unparseable
// file yields an empty collection.
func (s *FileStore[T, P]) Load() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the backing file with records.
func (s *FileStore[T, P]) Save(records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

func (s *FileStore[T, P]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Load(), nil
}

func (s *FileStore[T, P]) Get(ctx context.Context, id int) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	if i := indexOf[T, P](records, id); i >= 0 {
		return records[i], nil
	}
	return zero, ErrNotFound
}

func (s *FileStore[T, P]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	id := s.nextID(records)
	P(&rec).SetKey(id)
	records = append(records, rec)

	if err := s.save(records); err != nil {
		return zero, err
	}
	s.lastID = id
	return rec, nil
}

func (s *FileStore[T, P]) Update(ctx context.Context, id int, mutate func(*T) error) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	i := indexOf[T, P](records, id)
	if i < 0 {
		return zero, ErrNotFound
	}

	if err := mutate(&records[i]); err != nil {
		return zero, err
	}
	P(&records[i]).SetKey(id)

	if err := s.save(records); err != nil {
		return zero, err
	}
	return records[i], nil
}

func (s *FileStore[T, P]) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	i := indexOf[T, P](records, id)
	if i < 0 {
		return ErrNotFound
	}
	records = append(records[:i], records[i+1:]...)
	return s.save(records)
}

func (s *FileStore[T, P]) Close() error {
	return nil
}

func (s *FileStore[T, P]) load() []T {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("backing file unreadable, treating collection as empty")
		}
		return []T{}
	}
	if len(data) == 0 {
		return []T{}
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.WithError(err).Warn("backing file corrupt, treating collection as empty")
		return []T{}
	}
	if records == nil {
		records = []T{}
	}
	return records
}

func (s *FileStore[T, P]) save(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %q: %w", s.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %q: %w", s.path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("write %q: %w", s.path, err)
	}
	return nil
}

// nextID is one past the highest id either on disk or issued by this
// instance, so ids freed by a delete are not handed out again.
func (s *FileStore[T, P]) nextID(records []T) int {
	highest := s.lastID
	for i := range records {
		if id := P(&records[i]).Key(); id > highest {
			highest = id
		}
	}
	return highest + 1
}

func indexOf[T any, P Record[T]](records []T, id int) int {
	for i := range records {
		if P(&records[i]).Key() == id {
			return i
		}
	}
	return -1
}
