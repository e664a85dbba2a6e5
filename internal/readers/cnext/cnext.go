// Package cnext registers the symbols a C-Next dependency exports so
// that files including it can resolve cross-file references. It reuses
// the full front end and generator; the emitted text is discarded
// here, only the table insertions matter.
package cnext

import (
	"github.com/jlaustill/cnextc/internal/codegen"
	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/readers"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// Reader collects symbols from included .cnx files.
type Reader struct{}

func (Reader) Language() symbols.Language { return symbols.LangCNext }

func (Reader) Collect(file readers.File, table *symbols.Table, errs *diag.Collector) {
	f := lang.Parse(file.Path, string(file.Content), errs)
	// Running the generator applies the same define-before-use and
	// flow rules to the dependency as to the root unit.
	codegen.New(table, errs).Generate(f)
}
