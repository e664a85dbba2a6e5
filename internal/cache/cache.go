// Package cache persists per-source compilation state keyed by the
// modification times of every file in the dependency tree. A hit skips
// resolution and symbol collection entirely; any drifted mtime in the
// tree invalidates the whole entry.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jlaustill/cnextc/internal/preproc"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// DefaultDir is the hidden cache directory created next to the build.
const DefaultDir = ".cnextc-cache"

// FlatNode is one dependency node with child links by path instead of
// by pointer. Include graphs can be cyclic, so the nested form does
// not serialize; the flat list always does.
type FlatNode struct {
	AbsolutePath string           `json:"absolute_path"`
	IncludeName  string           `json:"include_name"`
	Language     symbols.Language `json:"language"`
	Children     []string         `json:"children,omitempty"`
}

// Entry is everything the pipeline needs to resume a source file
// without touching its dependency tree again.
type Entry struct {
	Source    string                     `json:"source"`
	Root      string                     `json:"root"`
	Nodes     []FlatNode                 `json:"nodes"`
	MTimes    map[string]int64           `json:"mtimes"` // abs path -> mtime unix nanos
	Symbols   []*symbols.Symbol          `json:"symbols"`
	Registers []*symbols.RegisterBinding `json:"registers,omitempty"`
	SavedAt   time.Time                  `json:"saved_at"`
}

// Store reads and writes entries under a single cache directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore opens (creating if needed) a cache directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) entryPath(source string) string {
	sum := sha256.Sum256([]byte(source))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".json")
}

// Load returns the cached entry for source when every recorded mtime
// still matches the filesystem. ok is false on miss or staleness.
func (s *Store) Load(source string) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.entryPath(source))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A corrupt entry is a miss, not a failure.
		return nil, false, nil
	}
	for path, mtime := range e.MTimes {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().UnixNano() != mtime {
			return nil, false, nil
		}
	}
	return &e, true, nil
}

// Save writes the entry atomically: a temp file in the same directory
// renamed over the destination, so readers never see a torn entry.
func (s *Store) Save(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.SavedAt = time.Now()
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	dst := s.entryPath(e.Source)
	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the cache directory.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cache directory: %w", err)
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, ent.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", ent.Name(), err)
		}
	}
	return nil
}

// Flatten converts a resolved dependency tree into the serializable
// node list plus the mtime map keyed by on-disk paths. Synthetic
// system-header nodes carry no mtime.
func Flatten(root *preproc.Node) ([]FlatNode, map[string]int64) {
	var nodes []FlatNode
	mtimes := map[string]int64{}
	seen := map[string]bool{}

	var walk func(n *preproc.Node)
	walk = func(n *preproc.Node) {
		if seen[n.AbsolutePath] {
			return
		}
		seen[n.AbsolutePath] = true
		fn := FlatNode{
			AbsolutePath: n.AbsolutePath,
			IncludeName:  n.IncludeName,
			Language:     n.Language,
		}
		for _, c := range n.Children {
			fn.Children = append(fn.Children, c.AbsolutePath)
		}
		nodes = append(nodes, fn)
		if !strings.HasPrefix(n.AbsolutePath, "<") {
			if info, err := os.Stat(n.AbsolutePath); err == nil {
				mtimes[n.AbsolutePath] = info.ModTime().UnixNano()
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return nodes, mtimes
}

// Rebuild reconstructs the linked node graph from a flat entry, for
// consumers that want the tree shape back (graph export, reporting).
func Rebuild(e *Entry) *preproc.Node {
	byPath := make(map[string]*preproc.Node, len(e.Nodes))
	for _, fn := range e.Nodes {
		byPath[fn.AbsolutePath] = &preproc.Node{
			AbsolutePath: fn.AbsolutePath,
			IncludeName:  fn.IncludeName,
			Language:     fn.Language,
		}
	}
	for _, fn := range e.Nodes {
		n := byPath[fn.AbsolutePath]
		for _, child := range fn.Children {
			if c, ok := byPath[child]; ok {
				n.Children = append(n.Children, c)
			}
		}
	}
	return byPath[e.Root]
}

// TableFromEntry rebuilds a symbol table from cached symbols.
func TableFromEntry(e *Entry) *symbols.Table {
	t := symbols.NewTable()
	for _, sym := range e.Symbols {
		if d := t.Insert(sym); d != nil {
			// conflicts were resolved before the entry was saved
			continue
		}
	}
	for _, reg := range e.Registers {
		_ = t.InsertRegister(reg, "")
	}
	return t
}
