// Package snapshot persists the corpus snapshot: the vector index, the
// ordered chunk metadata list, and the raw-text map. The three resources are
// published together with a directory rename swap so concurrent readers
// never observe a partially written snapshot.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/covebank/teller/internal/models"
	"github.com/covebank/teller/internal/vector"
)

const (
	vectorsFile = "vectors.bin"
	metaFile    = "meta.json"
	rawFile     = "raw.json"
)

// ErrNoSnapshot is returned by Load when no snapshot exists at the path.
var ErrNoSnapshot = errors.New("snapshot: not found")

// Snapshot is the unit of persistence for the ingested corpus. Position i in
// the index corresponds exactly to Metas[i]; Raw maps chunk ID to full text.
type Snapshot struct {
	Index *vector.FlatIndex
	Metas []models.Chunk
	Raw   map[string]string
}

// Save writes the snapshot atomically to dir. All three resources are
// written into a fresh temporary directory which is then renamed over the
// canonical location, so a crash mid-write leaves the previous snapshot
// intact.
func Save(dir string, s *Snapshot) error {
	if s.Index.Size() != len(s.Metas) {
		return fmt.Errorf("snapshot: index size %d != metadata entries %d", s.Index.Size(), len(s.Metas))
	}
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("snapshot: create parent dir: %w", err)
	}
	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("snapshot: clear temp dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return fmt.Errorf("snapshot: create temp dir: %w", err)
	}
	if err := s.Index.Save(filepath.Join(tmp, vectorsFile)); err != nil {
		return fmt.Errorf("snapshot: write vectors: %w", err)
	}
	if err := writeJSON(filepath.Join(tmp, metaFile), s.Metas); err != nil {
		return fmt.Errorf("snapshot: write metadata: %w", err)
	}
	if err := writeJSON(filepath.Join(tmp, rawFile), s.Raw); err != nil {
		return fmt.Errorf("snapshot: write raw text: %w", err)
	}

	// Swap: move any existing snapshot aside, rename the temp dir into
	// place, then drop the old one.
	old := dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("snapshot: clear old dir: %w", err)
	}
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("snapshot: move old snapshot: %w", err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("snapshot: publish: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}

// Load reads a snapshot from dir and verifies its internal consistency:
// the vector count must equal the metadata count and every metadata entry
// must have its full text in the raw map. An inconsistent snapshot is a
// detected partial write and is reported as an error, never served.
//
// A crash between the two renames in Save leaves the canonical dir absent
// while dir+".old" still holds the previous snapshot; Load recovers it.
func Load(dir string) (*Snapshot, error) {
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot: stat metadata: %w", err)
		}
		old := dir + ".old"
		if _, oldErr := os.Stat(filepath.Join(old, metaFile)); oldErr != nil {
			return nil, ErrNoSnapshot
		}
		if err := os.Rename(old, dir); err != nil {
			return nil, fmt.Errorf("snapshot: recover previous snapshot: %w", err)
		}
	}
	ix, err := vector.Load(filepath.Join(dir, vectorsFile))
	if err != nil {
		return nil, fmt.Errorf("snapshot: load vectors: %w", err)
	}
	var metas []models.Chunk
	if err := readJSON(filepath.Join(dir, metaFile), &metas); err != nil {
		return nil, fmt.Errorf("snapshot: load metadata: %w", err)
	}
	raw := make(map[string]string)
	if err := readJSON(filepath.Join(dir, rawFile), &raw); err != nil {
		return nil, fmt.Errorf("snapshot: load raw text: %w", err)
	}
	if ix.Size() != len(metas) {
		return nil, fmt.Errorf("snapshot: corrupt: %d vectors but %d metadata entries", ix.Size(), len(metas))
	}
	for i := range metas {
		if _, ok := raw[metas[i].ID]; !ok {
			return nil, fmt.Errorf("snapshot: corrupt: chunk %s missing from raw-text map", metas[i].ID)
		}
	}
	return &Snapshot{Index: ix, Metas: metas, Raw: raw}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
