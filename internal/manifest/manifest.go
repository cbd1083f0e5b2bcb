// Package manifest reads the interface-relevant parts of package.xml files.
package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Pico-ROS/picoros-typegen/internal/discover"
	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

var (
	nameExpr = xpath.MustCompile("/package/name")
	depExpr  = xpath.MustCompile("/package/depend | /package/build_depend | /package/exec_depend | /package/build_export_depend")
)

// Build-tool dependencies that never carry interfaces.
var (
	excludedPrefixes = []string{"ament_", "rosidl_"}
	excludedNames    = map[string]struct{}{
		"cmake":          {},
		"python3-pytest": {},
	}
)

// defaultRuntime pulls in the interface packages every generated package
// depends on implicitly.
const defaultRuntime = "rosidl_default_runtime"

var runtimeImplied = []string{"action_msgs", "service_msgs", "unique_identifier_msgs"}

// Parse reads dir/package.xml. It never fails: a missing or malformed
// manifest yields the directory name, no dependencies and no interfaces.
func Parse(dir string) model.Manifest {
	m := model.Manifest{
		Name: filepath.Base(dir),
		Dir:  dir,
	}

	data, err := os.ReadFile(filepath.Join(dir, discover.ManifestFile))
	if err != nil {
		return m
	}
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return m
	}
	// A document without a <package> root is as good as a malformed one.
	if xmlquery.FindOne(doc, "/package") == nil {
		return m
	}

	if n := xmlquery.QuerySelector(doc, nameExpr); n != nil {
		if name := strings.TrimSpace(n.InnerText()); name != "" {
			m.Name = name
		}
	}

	deps := make(map[string]struct{})
	for _, n := range xmlquery.QuerySelectorAll(doc, depExpr) {
		dep := strings.TrimSpace(n.InnerText())
		if dep == "" {
			continue
		}
		if interfaceRelevant(dep) {
			deps[dep] = struct{}{}
		}
		if dep == defaultRuntime {
			for _, implied := range runtimeImplied {
				deps[implied] = struct{}{}
			}
		}
	}
	m.Dependencies = make([]string, 0, len(deps))
	for d := range deps {
		m.Dependencies = append(m.Dependencies, d)
	}
	sort.Strings(m.Dependencies)

	m.HasInterfaces = len(discover.SchemaSources(dir)) > 0
	return m
}

func interfaceRelevant(dep string) bool {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(dep, p) {
			return false
		}
	}
	_, excluded := excludedNames[dep]
	return !excluded
}

// Cache memoizes Parse by directory. Manifests are read-only for a run, so
// entries never go stale.
type Cache struct {
	entries *lru.Cache[string, model.Manifest]
}

// NewCache returns a cache holding at most size manifests.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, model.Manifest](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: c}, nil
}

// Load returns the manifest for dir, parsing it on first use.
func (c *Cache) Load(dir string) model.Manifest {
	if m, ok := c.entries.Get(dir); ok {
		return m
	}
	m := Parse(dir)
	c.entries.Add(dir, m)
	return m
}
