// Package checkpoint implements the crawl's resume codec: a small,
// versioned binary format that round-trips the crawler's frontier/dedup
// sets, written as a sibling of the config file.
package checkpoint

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// magic identifies a riftcrawl checkpoint file; formatVersion allows the
// encoding to evolve without breaking old files.
var magic = [4]byte{'R', 'F', 'C', 'K'}

const formatVersion byte = 1

// Snapshot is the frontier tuple checkpointed at shutdown.
type Snapshot struct {
	PlayersToAnalyze  []int64
	AnalyzedPlayers   []int64
	MatchesToDownload []int64
	DownloadedMatches []int64
}

// Write atomically writes snap to path: encode, compress, write to a
// temp file in the same directory, then rename, so a crash never leaves
// a half-written checkpoint where a resume would read it.
func Write(path string, snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint.tmp.*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

// Read loads a Snapshot previously written by Write. A missing file is
// reported via os.IsNotExist(err) so callers can treat "no prior
// checkpoint" as a normal startup path.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	return Decode(data)
}

// Encode renders snap as magic + version + gzip(gob(snap)).
func Encode(snap Snapshot) ([]byte, error) {
	var body bytes.Buffer
	gz := gzip.NewWriter(&body)
	if err := gob.NewEncoder(gz).Encode(snap); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}

	out := make([]byte, 0, len(magic)+1+body.Len())
	out = append(out, magic[:]...)
	out = append(out, formatVersion)
	out = append(out, body.Bytes()...)
	return out, nil
}

// Decode parses the format Encode produces.
func Decode(data []byte) (Snapshot, error) {
	if len(data) < len(magic)+1 {
		return Snapshot{}, fmt.Errorf("checkpoint: truncated file")
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return Snapshot{}, fmt.Errorf("checkpoint: bad magic header")
	}

	version := data[len(magic)]
	if version != formatVersion {
		return Snapshot{}, fmt.Errorf("checkpoint: unsupported format version %d", version)
	}

	gz, err := gzip.NewReader(bytes.NewReader(data[len(magic)+1:]))
	if err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: gzip reader: %w", err)
	}
	defer gz.Close()

	var snap Snapshot
	if err := gob.NewDecoder(gz).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: gob decode: %w", err)
	}
	return snap, nil
}
