// Package preproc resolves each compilation unit's include directives into
// an acyclic dependency tree and classifies every file's grammar, so the
// symbol collector can walk leaves-first with full language knowledge.
package preproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// Node is one file in the dependency tree. A canonical absolute path
// appears in a tree at most once; re-inclusion is short-circuited by the
// resolver's visited set.
type Node struct {
	AbsolutePath string           `json:"absolute_path"`
	IncludeName  string           `json:"include_name"` // spelling inside the directive
	Language     symbols.Language `json:"language"`
	RawContent   []byte           `json:"-"`
	Children     []*Node          `json:"children,omitempty"`
}

// Resolver expands include directives into dependency trees.
type Resolver struct {
	searchPaths []string
	visited     map[string]*Node // canonical path → node, shared per Resolve call
}

// NewResolver returns a resolver with the configured angle-bracket/system
// search paths. Quoted includes additionally search the including file's
// directory first.
func NewResolver(searchPaths []string) *Resolver {
	return &Resolver{searchPaths: searchPaths}
}

// include is a parsed directive.
type include struct {
	name   string
	angled bool
	line   int
}

// Resolve builds the dependency tree rooted at path and the leaves-first
// processing order. A cycle is not an error: the visited set simply stops
// the descent.
func (r *Resolver) Resolve(path string) (*Node, []*Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("canonicalize %s: %w", path, err)
	}
	r.visited = make(map[string]*Node)

	root, err := r.resolveFile(abs, filepath.Base(path))
	if err != nil {
		return nil, nil, err
	}

	order := postOrder(root)
	return root, order, nil
}

func (r *Resolver) resolveFile(abs, includeName string) (*Node, error) {
	if n, ok := r.visited[abs]; ok {
		return n, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	node := &Node{
		AbsolutePath: abs,
		IncludeName:  includeName,
		Language:     DetectLanguage(abs, content),
		RawContent:   content,
	}
	// Mark before descending so self-referential cycles terminate.
	r.visited[abs] = node

	incs, malformed := scanIncludes(string(content))
	if len(malformed) > 0 {
		return nil, diag.New(diag.MalformedInclude,
			diag.Pos{File: abs, Line: malformed[0]},
			"malformed #include directive")
	}
	for _, inc := range incs {
		if IsSystemHeader(inc.name) {
			sysAbs := "<" + filepath.Base(inc.name) + ">"
			if sys, ok := r.visited[sysAbs]; ok {
				node.Children = append(node.Children, sys)
				continue
			}
			sys := &Node{
				AbsolutePath: sysAbs,
				IncludeName:  inc.name,
				Language:     symbols.LangSystem,
			}
			r.visited[sysAbs] = sys
			node.Children = append(node.Children, sys)
			continue
		}

		childAbs, tried, found := r.locate(inc, filepath.Dir(abs))
		if !found {
			return nil, diag.New(diag.UnresolvedInclude,
				diag.Pos{File: abs, Line: inc.line},
				"cannot resolve include %q; searched: %s",
				inc.name, strings.Join(tried, ", "))
		}

		child, err := r.resolveFile(childAbs, inc.name)
		if err != nil {
			return nil, err
		}
		// A path already present in this tree is linked, not re-descended.
		if !containsChild(node, child) {
			node.Children = append(node.Children, child)
		}
	}

	return node, nil
}

// locate applies the quoted-vs-angle search rules and returns the canonical
// path, the directories tried, and whether the file was found.
func (r *Resolver) locate(inc include, currentDir string) (string, []string, bool) {
	var dirs []string
	if !inc.angled {
		dirs = append(dirs, currentDir)
	}
	dirs = append(dirs, r.searchPaths...)

	tried := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		candidate := filepath.Join(dir, inc.name)
		tried = append(tried, dir)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err == nil {
				return abs, tried, true
			}
		}
	}
	return "", tried, false
}

func containsChild(parent *Node, child *Node) bool {
	for _, c := range parent.Children {
		if c.AbsolutePath == child.AbsolutePath {
			return true
		}
	}
	return false
}

// scanIncludes extracts include directives, also reporting the lines of
// directives that are neither the quoted nor the angled form. Directives
// inside block comments or after // are ignored.
func scanIncludes(src string) ([]include, []int) {
	var out []include
	var malformed []int
	inBlockComment := false
	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if inBlockComment {
			if idx := strings.Index(trimmed, "*/"); idx >= 0 {
				trimmed = strings.TrimSpace(trimmed[idx+2:])
				inBlockComment = false
			} else {
				continue
			}
		}
		if idx := strings.Index(trimmed, "/*"); idx >= 0 && !strings.Contains(trimmed[:idx], "//") {
			if !strings.Contains(trimmed[idx:], "*/") {
				inBlockComment = true
			}
			trimmed = strings.TrimSpace(trimmed[:idx])
		}
		if !strings.HasPrefix(trimmed, "#include") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#include"))
		switch {
		case strings.HasPrefix(rest, "\""):
			if end := strings.Index(rest[1:], "\""); end >= 0 {
				out = append(out, include{name: rest[1 : 1+end], line: i + 1})
			} else {
				malformed = append(malformed, i+1)
			}
		case strings.HasPrefix(rest, "<"):
			if end := strings.Index(rest, ">"); end > 0 {
				out = append(out, include{name: rest[1:end], angled: true, line: i + 1})
			} else {
				malformed = append(malformed, i+1)
			}
		default:
			malformed = append(malformed, i+1)
		}
	}
	return out, malformed
}

// postOrder returns the tree's nodes leaves-first, each node exactly once.
func postOrder(root *Node) []*Node {
	var order []*Node
	seen := make(map[string]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if seen[n.AbsolutePath] {
			return
		}
		seen[n.AbsolutePath] = true
		for _, c := range n.Children {
			walk(c)
		}
		order = append(order, n)
	}
	walk(root)
	return order
}
