// internal/storage/file/file.go
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/storage"
)

const (
	datasetsFile = "datasets.json"
	curvesFile   = "bonding_curves.json"
)

// Store persists records as JSON documents under one data directory:
// datasets.json holds the dataset list, bonding_curves.json maps dataset
// titles to curve records. A single mutex serializes all access; the files
// are small and rewritten whole on every save.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

type datasetsDoc struct {
	Datasets []*storage.DatasetRecord `json:"datasets"`
}

type curvesDoc struct {
	Curves map[string]*storage.CurveRecord `json:"curves"`
}

// New creates a file-backed record store rooted at dir, creating the
// directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger.Named("records")}, nil
}

func (s *Store) SaveDataset(_ context.Context, record *storage.DatasetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc datasetsDoc
	if err := s.load(datasetsFile, &doc); err != nil {
		return err
	}

	replaced := false
	for i, existing := range doc.Datasets {
		if existing.Title == record.Title {
			doc.Datasets[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Datasets = append(doc.Datasets, record)
	}

	if err := s.write(datasetsFile, &doc); err != nil {
		return err
	}
	s.logger.Debug("Saved dataset record", zap.String("title", record.Title))
	return nil
}

func (s *Store) GetDataset(_ context.Context, title string) (*storage.DatasetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc datasetsDoc
	if err := s.load(datasetsFile, &doc); err != nil {
		return nil, err
	}
	for _, record := range doc.Datasets {
		if record.Title == title {
			return record, nil
		}
	}
	return nil, fmt.Errorf("dataset %q: %w", title, storage.ErrNotFound)
}

func (s *Store) ListDatasets(_ context.Context) ([]*storage.DatasetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc datasetsDoc
	if err := s.load(datasetsFile, &doc); err != nil {
		return nil, err
	}
	return doc.Datasets, nil
}

func (s *Store) SaveCurve(_ context.Context, title string, record *storage.CurveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := curvesDoc{Curves: map[string]*storage.CurveRecord{}}
	if err := s.load(curvesFile, &doc); err != nil {
		return err
	}
	if doc.Curves == nil {
		doc.Curves = map[string]*storage.CurveRecord{}
	}
	doc.Curves[title] = record

	if err := s.write(curvesFile, &doc); err != nil {
		return err
	}
	s.logger.Debug("Saved curve record",
		zap.String("title", title),
		zap.String("curve_object_id", record.Curve.CurveObjectID))
	return nil
}

func (s *Store) GetCurve(_ context.Context, title string) (*storage.CurveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc curvesDoc
	if err := s.load(curvesFile, &doc); err != nil {
		return nil, err
	}
	record, ok := doc.Curves[title]
	if !ok {
		return nil, fmt.Errorf("curve for dataset %q: %w", title, storage.ErrNotFound)
	}
	return record, nil
}

// load reads one JSON document; a missing file leaves the zero document.
func (s *Store) load(name string, dest any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// write rewrites one JSON document atomically via a temp file rename.
func (s *Store) write(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
