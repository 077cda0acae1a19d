package world

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"fixturelint/internal/logging"
)

// ErrNotExist is returned when a path given on the command line is missing.
var ErrNotExist = errors.New("file does not exist")

// ConftestName is the file pytest loads shared fixtures from.
const ConftestName = "conftest.py"

// ListFiles expands the given paths into the list of files to check.
// Regular files are always included. Directories are walked only when
// recursive is set, keeping Python files that match the test globs.
// The result is de-duplicated and sorted.
func ListFiles(paths []string, recursive bool, cfg ScannerConfig) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", p, ErrNotExist)
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}

		if !info.IsDir() {
			add(p)
			continue
		}
		if !recursive {
			logging.Get(logging.CategoryWorld).Warn("skipping directory %s (use --recursive)", p)
			continue
		}

		root := p
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			if rel == "." {
				return nil
			}
			if isIgnoredRel(rel, d.Name(), cfg.IgnorePatterns) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if filepath.Ext(path) == ".py" && matchesTestGlob(d.Name(), cfg.TestGlobs) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	logging.WorldDebug("ListFiles: %d paths expanded to %d files", len(paths), len(files))
	return files, nil
}

// FindRoot returns the nearest ancestor of dir (inclusive) containing one of
// the root markers. Without a marker the filesystem root is returned.
func FindRoot(dir string, markers []string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	current := abs
	for {
		for _, m := range markers {
			if _, err := os.Stat(filepath.Join(current, m)); err == nil {
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}

// ConftestChain returns the conftest.py files that apply to file, nearest
// first, searching from the file's directory up to root (inclusive).
// The file itself is never part of its own chain.
func ConftestChain(file, root string) []string {
	absFile, err := filepath.Abs(file)
	if err != nil {
		return nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil
	}

	var chain []string
	dir := filepath.Dir(absFile)
	for {
		candidate := filepath.Join(dir, ConftestName)
		if candidate != absFile {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				chain = append(chain, candidate)
			}
		}
		if dir == absRoot {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		// Stop once we leave the root's subtree.
		if rel, err := filepath.Rel(absRoot, parent); err != nil || rel == ".." || (len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)) {
			break
		}
		dir = parent
	}
	return chain
}
