// Package headercheck parses a generated header with tree-sitter's C
// grammar and checks that it is usable by the serialization library.
package headercheck

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

//go:embed queries/macros.scm
var macroQuery []byte

// ListMacro is the macro every header must define.
const ListMacro = "MSG_LIST"

var (
	ErrSyntax  = errors.New("header does not parse as C")
	ErrNoGuard = errors.New("include guard missing")
	ErrNoList  = errors.New(ListMacro + " not defined")
)

var (
	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error
)

// compiledQuery returns the shared macro query. Queries are safe to share
// across goroutines; parsers are not.
func compiledQuery() (*sitter.Query, error) {
	queryOnce.Do(func() {
		q, err := sitter.NewQuery(macroQuery, c.GetLanguage())
		if err != nil {
			queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		query = q
	})
	return query, queryErr
}

// Report describes what a header defines.
type Report struct {
	Guard  string
	Macros []string // in source order
}

// Defines reports whether the header defines the named macro.
func (r *Report) Defines(name string) bool {
	for _, m := range r.Macros {
		if m == name {
			return true
		}
	}
	return false
}

// Check parses source and verifies the include guard and the type listing.
// The report is returned alongside any check failure except a parse error.
func Check(ctx context.Context, source []byte) (*Report, error) {
	q, err := compiledQuery()
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := firstError(root); n != nil {
			p := n.StartPoint()
			return nil, fmt.Errorf("%w: line %d column %d", ErrSyntax, p.Row+1, p.Column+1)
		}
		return nil, ErrSyntax
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	report := &Report{}
	var candidates []string
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, capture := range match.Captures {
			switch q.CaptureNameForId(capture.Index) {
			case "guard":
				if isIfndef(capture.Node.Parent()) {
					candidates = append(candidates, capture.Node.Content(source))
				}
			case "name":
				report.Macros = append(report.Macros, capture.Node.Content(source))
			}
		}
	}

	for _, g := range candidates {
		if report.Defines(g) {
			report.Guard = g
			break
		}
	}
	if report.Guard == "" {
		return report, ErrNoGuard
	}
	if !report.Defines(ListMacro) {
		return report, ErrNoList
	}
	return report, nil
}

func isIfndef(n *sitter.Node) bool {
	return n != nil && n.ChildCount() > 0 && n.Child(0).Type() == "#ifndef"
}

// firstError returns the first ERROR or missing node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if found := firstError(child); found != nil {
			return found
		}
	}
	return nil
}
