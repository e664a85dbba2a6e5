// Package source discovers the C-Next files a build covers.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the C-Next source extension.
const Ext = ".cnx"

// Discover expands a file-or-directory argument into the ordered list
// of source files to compile. A single file is returned as-is after an
// extension check; a directory is walked recursively with deterministic
// ordering.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(path, Ext) {
			return nil, fmt.Errorf("%s is not a %s file", path, Ext)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		return []string{abs}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// hidden directories (including the cache) are skipped
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(p, Ext) {
			abs, aerr := filepath.Abs(p)
			if aerr != nil {
				return aerr
			}
			files = append(files, abs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files under %s", Ext, path)
	}
	sort.Strings(files)
	return files, nil
}
