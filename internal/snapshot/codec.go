package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the snapshot document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ErrUnknownFormat is returned for unsupported file extensions or formats.
var ErrUnknownFormat = errors.New("snapshot: unknown format")

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Decode reads one snapshot document.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	var snap Snapshot
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return nil, fmt.Errorf("decode yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return &snap, nil
}

// Load reads a snapshot file, choosing the format by extension.
func Load(path string) (*Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

// Encode writes one snapshot document.
func Encode(w io.Writer, snap *Snapshot, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case YAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(snap)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// Save writes a snapshot file, choosing the format by extension.
func Save(path string, snap *Snapshot) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snap, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// UnmarshalJSON accepts either an array of {name, cells} layers or an object
// mapping layer name to cells. Object keys keep their document order.
func (l *Layers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		var layers []Layer
		if err := json.Unmarshal(data, &layers); err != nil {
			return err
		}
		*l = layers
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(data))
		if _, err := dec.Token(); err != nil {
			return err
		}
		var layers []Layer
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			name, ok := tok.(string)
			if !ok {
				return fmt.Errorf("snapshot: layer key %v is not a string", tok)
			}
			var cells []CellDatum
			if err := dec.Decode(&cells); err != nil {
				return fmt.Errorf("snapshot: layer %q: %w", name, err)
			}
			layers = append(layers, Layer{Name: name, Cells: cells})
		}
		*l = layers
		return nil
	}
	return fmt.Errorf("snapshot: cells must be an array or an object")
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML sequences and mappings.
func (l *Layers) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var layers []Layer
		if err := value.Decode(&layers); err != nil {
			return err
		}
		*l = layers
		return nil
	case yaml.MappingNode:
		layers := make([]Layer, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			name := value.Content[i].Value
			var cells []CellDatum
			if err := value.Content[i+1].Decode(&cells); err != nil {
				return fmt.Errorf("snapshot: layer %q: %w", name, err)
			}
			layers = append(layers, Layer{Name: name, Cells: cells})
		}
		*l = layers
		return nil
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
	}
	return fmt.Errorf("snapshot: cells must be a sequence or a mapping (line %d)", value.Line)
}
