// Package sink implements the tier-partitioned, size-capped,
// gzip-compressed append-only sink match records are written to: one
// file family per tier, rotated by record count.
package sink

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archiver is called with the path of a Store file immediately after it is
// closed (either by rotation or by Close). Implementations may upload it
// to cold storage; S3Archiver is the provided implementation.
//
// Archiver is best-effort from the Store's point of view: a non-nil error
// is surfaced to the caller of Write/Close but the local file is never
// removed by Store itself.
type Archiver interface {
	Archive(path string) error
}

// Store owns at most one open gzip writer at a time, rotating to a new
// file every MatchesPerFile records (0 = never rotate). Store is NOT safe
// for concurrent use; the caller serializes calls.
type Store struct {
	dir            string
	prefix         string
	tierName       string
	matchesPerFile int
	archiver       Archiver

	now func() time.Time

	file    *os.File
	gz      *gzip.Writer
	buf     *bufio.Writer
	count   int
	curPath string
}

// Config configures a single Store.
type Config struct {
	// Dir is the destination directory, already resolved (the __file__
	// prefix substitution happens in internal/config).
	Dir string

	// Prefix is the file-name prefix (the base_file_name config key).
	Prefix string

	// TierName is the tier this store's files are partitioned by, e.g. "gold".
	TierName string

	// MatchesPerFile is the rotation threshold; 0 means never rotate.
	MatchesPerFile int

	// Archiver optionally uploads each closed file. Nil disables archiving.
	Archiver Archiver
}

// NewStore creates a Store. The destination directory is created lazily on
// first write, not here, so constructing a Store has no side effects.
func NewStore(cfg Config) *Store {
	return &Store{
		dir:            cfg.Dir,
		prefix:         cfg.Prefix,
		tierName:       cfg.TierName,
		matchesPerFile: cfg.MatchesPerFile,
		archiver:       cfg.Archiver,
		now:            time.Now,
	}
}

// Write appends text as one line, rotating/opening files as needed.
// text must not itself contain a trailing newline; Store supplies line
// separators.
func (s *Store) Write(text string) error {
	if s.matchesPerFile > 0 && s.count >= s.matchesPerFile {
		if err := s.closeCurrent(); err != nil {
			return err
		}
	}

	if s.file == nil {
		if err := s.openNew(); err != nil {
			return err
		}
	} else if s.count > 0 {
		if _, err := s.buf.WriteString("\n"); err != nil {
			return fmt.Errorf("sink: write separator: %w", err)
		}
	}

	if _, err := s.buf.WriteString(text); err != nil {
		return fmt.Errorf("sink: write record: %w", err)
	}
	s.count++
	return nil
}

// Close flushes and closes the currently open file, if any, archiving it
// if an Archiver is configured. Close is idempotent.
func (s *Store) Close() error {
	return s.closeCurrent()
}

// CurrentPath returns the path of the currently open file, or "" if none
// is open.
func (s *Store) CurrentPath() string {
	return s.curPath
}

// Count returns the number of records written to the currently open file.
func (s *Store) Count() int {
	return s.count
}

func (s *Store) openNew() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("sink: create destination dir: %w", err)
	}

	path := filepath.Join(s.dir, fileName(s.prefix, s.tierName, s.now()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create file: %w", err)
	}

	s.file = f
	s.gz = gzip.NewWriter(f)
	s.buf = bufio.NewWriter(s.gz)
	s.count = 0
	s.curPath = path
	return nil
}

func (s *Store) closeCurrent() error {
	if s.file == nil {
		return nil
	}

	path := s.curPath
	var firstErr error
	if err := s.buf.Flush(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sink: flush: %w", err)
	}
	if err := s.gz.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sink: close gzip: %w", err)
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sink: close file: %w", err)
	}

	s.file = nil
	s.gz = nil
	s.buf = nil
	s.count = 0
	s.curPath = ""

	if firstErr != nil {
		return firstErr
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(path); err != nil {
			return fmt.Errorf("sink: archive %s: %w", path, err)
		}
	}
	return nil
}

// fileName builds <prefix>_<iso8601-with-colons-replaced-by-dashes>_<tier>_.json.gz.
func fileName(prefix, tierName string, t time.Time) string {
	ts := strings.ReplaceAll(t.Format(time.RFC3339Nano), ":", "-")
	p := prefix
	if p != "" {
		p += "_"
	}
	return fmt.Sprintf("%s%s_%s_.json.gz", p, ts, tierName)
}
