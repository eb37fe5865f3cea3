package sync

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/adbsink/adbsink/internal/utils"
)

// IgnoreFileName at the local root holds gitignore-style patterns applied
// to both sides of the sync.
const IgnoreFileName = ".adbsinkignore"

// builtinIgnores are our own artifacts; they must never be copied to a
// device nor deleted as orphans.
var builtinIgnores = []string{LockFileName, PolicyFileName, IgnoreFileName}

// IgnoreRules decides which entries a listing keeps. Directory rules
// prune whole subtrees before they are walked. The zero rule set still
// excludes the built-in artifact names.
type IgnoreRules struct {
	prefixes []string
	globs    []string
	matcher  *ignore.GitIgnore
	builtin  mapset.Set[string]
}

// CompileIgnoreRules validates and dedupes the policy's rules and, when
// localRoot names a directory with an ignore file, folds that in too.
func CompileIgnoreRules(prefixes, globs []string, localRoot string) (*IgnoreRules, error) {
	r := &IgnoreRules{builtin: mapset.NewThreadUnsafeSet(builtinIgnores...)}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p == "" || !seen.Add(p) {
			continue
		}
		r.prefixes = append(r.prefixes, p)
	}

	seen.Clear()
	for _, g := range globs {
		if g = strings.TrimSpace(g); g == "" || !seen.Add(g) {
			continue
		}
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid exclude pattern %q", g)
		}
		r.globs = append(r.globs, g)
	}

	if localRoot != "" {
		file := filepath.Join(localRoot, IgnoreFileName)
		if utils.FileExists(file) {
			m, err := ignore.CompileIgnoreFile(file)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", IgnoreFileName, err)
			}
			r.matcher = m
		}
	}
	return r, nil
}

// MatchDir reports whether the directory at rel is pruned, subtree and
// all. Name-prefix rules apply here only.
func (r *IgnoreRules) MatchDir(rel RelPath) bool {
	base := rel.Base()
	if r.builtin.ContainsOne(base) {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return r.matchPath(rel)
}

// MatchFile reports whether the file at rel is excluded.
func (r *IgnoreRules) MatchFile(rel RelPath) bool {
	if r.builtin.ContainsOne(rel.Base()) {
		return true
	}
	return r.matchPath(rel)
}

func (r *IgnoreRules) matchPath(rel RelPath) bool {
	s := string(rel)
	for _, g := range r.globs {
		if ok, _ := doublestar.Match(g, s); ok {
			return true
		}
	}
	return r.matcher != nil && r.matcher.MatchesPath(s)
}
