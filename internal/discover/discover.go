// Package discover finds interface packages and generated artifacts on disk.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ManifestFile is the package manifest every package directory carries.
const ManifestFile = "package.xml"

// SchemaDirs are the package sub-directories that hold interface sources.
var SchemaDirs = []string{"msg", "srv", "action"}

var schemaExts = map[string]struct{}{
	".msg":    {},
	".srv":    {},
	".action": {},
	".idl":    {},
}

var skipDirs = map[string]struct{}{
	"__pycache__":  {},
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"build":        {},
	"install":      {},
	"log":          {},
}

// Directories containing one of these files are skipped with everything
// below them, as colcon does.
var ignoreMarkers = []string{"COLCON_IGNORE", "AMENT_IGNORE", "CATKIN_IGNORE"}

// PackageDir is a discovered package directory and its schema sources.
type PackageDir struct {
	Dir     string   // absolute
	Sources []string // absolute, sorted
}

// Packages finds every package under the given roots that owns at least one
// schema source. Results are deduplicated and sorted by directory.
func Packages(roots []string) ([]PackageDir, error) {
	found := make(map[string]PackageDir)
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		if err := walkPackages(abs, found); err != nil {
			return nil, err
		}
	}

	results := make([]PackageDir, 0, len(found))
	for _, p := range found {
		results = append(results, p)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Dir < results[j].Dir
	})
	return results, nil
}

func walkPackages(root string, found map[string]PackageDir) error {
	if _, err := os.Stat(root); err != nil {
		return nil // missing roots contribute nothing
	}
	gi := loadGitignore(root)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()
		if d.IsDir() {
			if path != root {
				if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				if gi != nil && gi.MatchesPath(relSlash(root, path)+"/") {
					return filepath.SkipDir
				}
			}
			if hasIgnoreMarker(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if name != ManifestFile {
			return nil
		}
		dir := filepath.Dir(path)
		if _, seen := found[dir]; seen {
			return nil
		}
		sources := SchemaSources(dir)
		if len(sources) == 0 {
			return nil
		}
		found[dir] = PackageDir{Dir: dir, Sources: sources}
		return nil
	})
}

// SchemaSources lists the recognized interface files directly inside the
// package's schema sub-directories.
func SchemaSources(dir string) []string {
	var sources []string
	for _, sub := range SchemaDirs {
		entries, err := os.ReadDir(filepath.Join(dir, sub))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := schemaExts[filepath.Ext(e.Name())]; ok {
				sources = append(sources, filepath.Join(dir, sub, e.Name()))
			}
		}
	}
	sort.Strings(sources)
	return sources
}

// Artifacts lists every JSON file under root, sorted by path. A missing
// root yields no files.
func Artifacts(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func hasIgnoreMarker(dir string) bool {
	for _, m := range ignoreMarkers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
