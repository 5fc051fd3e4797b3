package linecount

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/valerioTomassi/linefile/internal/files"
)

// ignoreRule is one line of a .gitignore. Only the common subset is
// supported: comments, negation, directory-only rules, root anchoring and
// path.Match globs. There is no "**" support.
type ignoreRule struct {
	pattern  string
	negative bool
	anchored bool
	dirOnly  bool
	hasSlash bool
}

type gitIgnore struct {
	rules []ignoreRule
}

// findRepoRoot returns the closest ancestor of start holding a .git
// directory, or start itself.
func findRepoRoot(fsys billy.Basic, start string) string {
	for d := start; ; {
		if fi, err := fsys.Stat(filepath.Join(d, ".git")); err == nil && fi.IsDir() {
			return d
		}
		parent := filepath.Dir(d)
		if parent == d {
			return start
		}
		d = parent
	}
}

// loadGitIgnore reads base/.gitignore. A missing file yields nil rules and
// no error.
func loadGitIgnore(fsys billy.Basic, base string) (*gitIgnore, error) {
	var rules []ignoreRule
	err := files.Use(filepath.Join(base, ".gitignore"), func(f *files.LineFile) error {
		for line, err := range f.Lines() {
			if err != nil {
				return err
			}
			if r, ok := parseIgnoreRule(line); ok {
				rules = append(rules, r)
			}
		}
		return nil
	}, files.WithFilesystem(fsys))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gitIgnore{rules: rules}, nil
}

func parseIgnoreRule(line string) (ignoreRule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}

	var r ignoreRule
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		r.negative = true
		line = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(line, "/"); ok {
		r.dirOnly = true
		line = rest
	}
	if rest, ok := strings.CutPrefix(line, "/"); ok {
		r.anchored = true
		line = rest
	}
	if line == "" {
		return ignoreRule{}, false
	}
	r.pattern = line
	r.hasSlash = strings.Contains(line, "/")
	return r, true
}

// match reports whether rel (relative to the repository root) is ignored.
// Later rules override earlier ones.
func (g *gitIgnore) match(rel string, isDir bool) bool {
	if g == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	ignored := false
	for _, r := range g.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.matches(rel) {
			ignored = !r.negative
		}
	}
	return ignored
}

func (r ignoreRule) matches(rel string) bool {
	switch {
	case r.anchored:
		return globMatch(r.pattern, rel)
	case !r.hasSlash:
		return globMatch(r.pattern, path.Base(rel))
	}
	// unanchored with a slash: try every suffix that starts a segment
	for s := rel; ; {
		if globMatch(r.pattern, s) {
			return true
		}
		i := strings.IndexByte(s, '/')
		if i < 0 || i+1 == len(s) {
			return false
		}
		s = s[i+1:]
	}
}

func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return ok
}
