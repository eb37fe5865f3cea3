package sync

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Policy is the per-run configuration of the diff and reconcile phases.
type Policy struct {
	// PreserveTimes applies the source file's mtime after each copy.
	PreserveTimes bool

	// DeleteOrphans removes destination entries with no source counterpart.
	DeleteOrphans bool

	// DryRun plans and reports without touching the destination.
	DryRun bool

	// IgnorePrefixes prunes any directory whose name starts with one of
	// these strings, at any depth.
	IgnorePrefixes []string

	// ExcludeGlobs drops entries whose relative path matches one of these
	// doublestar patterns.
	ExcludeGlobs []string
}

// PolicyFileName is looked for at the local root; its settings sit below
// command-line flags and above built-in defaults.
const PolicyFileName = ".adbsink.yaml"

// RootPolicy is the on-disk per-directory policy. Pointers distinguish
// "not set" from an explicit false.
type RootPolicy struct {
	SetTimes    *bool    `yaml:"set_times"`
	DeleteIfDNE *bool    `yaml:"delete_if_dne"`
	IgnoreDirs  []string `yaml:"ignore_dirs"`
	Exclude     []string `yaml:"exclude"`
}

// LoadRootPolicy reads dir/.adbsink.yaml. A missing file is not an error
// and returns nil; an unknown key is, so typos do not silently change
// what gets deleted.
func LoadRootPolicy(dir string) (*RootPolicy, error) {
	f, err := os.Open(filepath.Join(dir, PolicyFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var rp RootPolicy
	if err := dec.Decode(&rp); err != nil {
		if errors.Is(err, io.EOF) {
			return &RootPolicy{}, nil
		}
		return nil, fmt.Errorf("parse %s: %w", PolicyFileName, err)
	}
	return &rp, nil
}

// ApplyTo folds the file's settings into a flag-derived policy. Booleans
// only fill in when the corresponding flag was left untouched; list
// settings always append.
func (rp *RootPolicy) ApplyTo(pol *Policy, setTimesFlagged, deleteFlagged bool) {
	if rp == nil {
		return
	}
	if rp.SetTimes != nil && !setTimesFlagged {
		pol.PreserveTimes = *rp.SetTimes
	}
	if rp.DeleteIfDNE != nil && !deleteFlagged {
		pol.DeleteOrphans = *rp.DeleteIfDNE
	}
	pol.IgnorePrefixes = append(pol.IgnorePrefixes, rp.IgnoreDirs...)
	pol.ExcludeGlobs = append(pol.ExcludeGlobs, rp.Exclude...)
}
