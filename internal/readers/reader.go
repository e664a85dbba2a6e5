// Package readers defines the grammar-adapter interface the symbol
// collector drives: one Reader per foreign language, all feeding the same
// unified symbol table.
package readers

import (
	"fmt"
	"sync"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// File is a single foreign header handed to a Reader.
type File struct {
	Path    string
	Content []byte
}

// Reader extracts symbols from one foreign grammar. Parse failures are
// reported into the collector with file/line so sibling subtrees keep
// being processed; the run aborts only after the whole tree is walked.
type Reader interface {
	// Language returns the grammar this reader handles.
	Language() symbols.Language
	// Collect parses the file and inserts its symbols into the table.
	Collect(file File, table *symbols.Table, errs *diag.Collector)
}

// Registry stores the available readers keyed by language.
type Registry struct {
	mu      sync.RWMutex
	readers map[symbols.Language]Reader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[symbols.Language]Reader)}
}

// Register adds a reader. The last registration for a language wins.
func (r *Registry) Register(rd Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readers[rd.Language()] = rd
}

// For returns the reader for a language.
func (r *Registry) For(lang symbols.Language) (Reader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.readers[lang]
	if !ok {
		return nil, fmt.Errorf("no reader registered for language %q", lang)
	}
	return rd, nil
}
