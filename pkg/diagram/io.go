package diagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Data Serialization API
// =============================================================================

// MarshalData converts diagram data to indented JSON bytes.
func MarshalData(d *Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDataTo(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteData writes diagram data as JSON to an io.Writer.
func WriteData(d *Data, w io.Writer) error {
	return writeDataTo(d, w)
}

// WriteDataFile writes diagram data to a JSON file.
// The file is created with 0644 permissions.
func WriteDataFile(d *Data, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeDataTo(d, f)
}

// UnmarshalData decodes JSON bytes into diagram data.
func UnmarshalData(data []byte) (*Data, error) {
	return readDataFrom(bytes.NewReader(data))
}

// ReadData decodes JSON diagram data from an io.Reader.
func ReadData(r io.Reader) (*Data, error) {
	return readDataFrom(r)
}

// ReadDataFile reads a JSON file and returns the decoded diagram data.
func ReadDataFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readDataFrom(f)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeDataTo(d *Data, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readDataFrom(r io.Reader) (*Data, error) {
	var d Data
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	d.Options.Normalize()
	return &d, nil
}

// validate rejects duplicate node ids and drops edges whose endpoints are
// missing, so decoded data upholds the same invariants as built data.
func (d *Data) validate() error {
	ids := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n == nil || n.ID == "" {
			return fmt.Errorf("node %d: missing id", i)
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = true
	}

	edges := d.Edges[:0]
	for _, e := range d.Edges {
		if e != nil && ids[e.SourceNode] && ids[e.TargetNode] {
			edges = append(edges, e)
		}
	}
	d.Edges = edges
	return nil
}
