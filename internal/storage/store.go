package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/snapshot"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.jsonl"
)

var ErrNotFound = errors.New("storage: recording not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type Metadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Spec      grid.Spec          `json:"spec"`
	Frames    int                `json:"frames"`
	Seed      int64              `json:"seed,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Recording appends frames to a recording directory. Close writes the
// metadata; a recording without metadata is not listed.
type Recording struct {
	meta Metadata
	dir  string
	f    *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

// Create starts a new recording for spec.
func (s *Store) Create(name string, spec grid.Spec, seed int64) (*Recording, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	return &Recording{
		meta: Metadata{ID: id, Name: name, Timestamp: time.Now(), Spec: spec, Seed: seed},
		dir:  dir,
		f:    f,
		w:    w,
		enc:  json.NewEncoder(w),
	}, nil
}

func (r *Recording) ID() string { return r.meta.ID }

func (r *Recording) Append(snap *snapshot.Snapshot) error {
	if err := r.enc.Encode(snap); err != nil {
		return fmt.Errorf("frame %d: %w", r.meta.Frames, err)
	}
	r.meta.Frames++
	return nil
}

// Close flushes the frames and writes the metadata with the given metrics.
func (r *Recording) Close(metrics map[string]float64) error {
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return err
	}
	if err := r.f.Close(); err != nil {
		return err
	}
	r.meta.Metrics = metrics

	metaFile, err := os.Create(filepath.Join(r.dir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return enc.Encode(r.meta)
}

// Save writes a complete recording and returns its ID.
func (s *Store) Save(name string, spec grid.Spec, frames []*snapshot.Snapshot, metrics map[string]float64) (string, error) {
	rec, err := s.Create(name, spec, 0)
	if err != nil {
		return "", err
	}
	for _, f := range frames {
		if err := rec.Append(f); err != nil {
			rec.Close(nil)
			return "", err
		}
	}
	if err := rec.Close(metrics); err != nil {
		return "", err
	}
	return rec.ID(), nil
}

// List returns recordings oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	slices.SortFunc(runs, func(a, b Metadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

func (s *Store) Load(id string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFrames decodes every frame of a recording in order.
func (s *Store) LoadFrames(id string) ([]*snapshot.Snapshot, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, framesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer file.Close()

	var frames []*snapshot.Snapshot
	dec := json.NewDecoder(file)
	for dec.More() {
		var snap snapshot.Snapshot
		if err := dec.Decode(&snap); err != nil {
			return frames, fmt.Errorf("frame %d: %w", len(frames), err)
		}
		frames = append(frames, &snap)
	}
	return frames, nil
}
