package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type snapshot struct {
	Records []Record `json:"records"`
}

// Marshal encodes the dataset as a JSON snapshot.
func Marshal(d *Dataset) ([]byte, error) {
	data, err := json.MarshalIndent(snapshot{Records: d.Records(Filter{})}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling dataset: %w", err)
	}
	return data, nil
}

// Save writes the dataset to disk as JSON.
func Save(path string, d *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for dataset: %w", err)
	}

	data, err := Marshal(d)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	return nil
}

// Decode reads a dataset from r. Inputs named *.json are read as a saved
// snapshot; anything else is decoded as laboratory CSV.
func Decode(name string, r io.Reader) (*Dataset, []string, error) {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		var snap snapshot
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return nil, nil, fmt.Errorf("unmarshaling dataset: %w", err)
		}
		return New(snap.Records), nil, nil
	}
	return DecodeCSV(r)
}

// Load reads a dataset file from disk.
func Load(path string) (*Dataset, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset: %w", err)
	}
	defer f.Close()
	return Decode(path, f)
}
