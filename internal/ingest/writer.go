package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/david/eventfeed/internal/models"
)

// EncodeDataset writes ds as 2-space indented UTF-8 JSON with HTML
// characters left unescaped.
func EncodeDataset(w io.Writer, ds models.Dataset) error {
	if ds.Items == nil {
		ds.Items = []models.Item{}
	}
	if ds.Meta.Sources == nil {
		ds.Meta.Sources = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}

// WriteDataset replaces the file at path atomically: the dataset is written
// to a temp file in the same directory and renamed over the target.
func WriteDataset(path string, ds models.Dataset) error {
	var buf bytes.Buffer
	if err := EncodeDataset(&buf, ds); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// ReadDataset loads a dataset previously written by WriteDataset.
func ReadDataset(path string) (models.Dataset, error) {
	var ds models.Dataset
	b, err := os.ReadFile(path)
	if err != nil {
		return ds, fmt.Errorf("read dataset: %w", err)
	}
	if err := json.Unmarshal(b, &ds); err != nil {
		return ds, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return ds, nil
}
