package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const recordExt = ".json"

// FileArchiver writes one JSON file per round and keeps at most retention files.
type FileArchiver struct {
	mu        sync.Mutex
	dir       string
	retention int
}

// NewFileArchiver creates dir if needed. A non-positive retention keeps everything.
func NewFileArchiver(dir string, retention int) (*FileArchiver, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrNoDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileArchiver{dir: dir, retention: retention}, nil
}

func (a *FileArchiver) Archive(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// The nanosecond prefix keeps lexical order equal to scoring order.
	name := fmt.Sprintf("%020d_session_%d_%s%s", r.ScoredAt.UnixNano(), r.Session, r.TaskID, recordExt)
	if err := os.WriteFile(filepath.Join(a.dir, name), body, 0o600); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return a.prune()
}

// prune removes the oldest records beyond retention. Caller holds mu.
func (a *FileArchiver) prune() error {
	if a.retention <= 0 {
		return nil
	}
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return fmt.Errorf("read archive dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), recordExt) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= a.retention {
		return nil
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-a.retention] {
		if err := os.Remove(filepath.Join(a.dir, n)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune %s: %w", n, err)
		}
	}
	return nil
}

// Close is a no-op.
func (a *FileArchiver) Close() error { return nil }
