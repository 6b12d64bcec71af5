package storage

import (
	"encoding/json"
	"os"

	"github.com/san-kum/gridviz/internal/snapshot"
)

type ExportData struct {
	Metadata Metadata             `json:"metadata"`
	Frames   []*snapshot.Snapshot `json:"frames"`
}

// ExportJSON writes a recording as a single JSON document.
func (s *Store) ExportJSON(id, path string) error {
	meta, err := s.Load(id)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(id)
	if err != nil {
		return err
	}
	data := ExportData{Metadata: *meta, Frames: frames}
	data.Metadata.Frames = len(frames)

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
