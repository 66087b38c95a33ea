// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var forbiddenHTTPSelectors = map[string]bool{
	"DefaultClient": true,
	"Get":           true,
	"Post":          true,
	"Head":          true,
	"PostForm":      true,
}

// Provider traffic must go through NewClient so timeouts, headers and
// tracing apply uniformly. Only this package may build an http.Client.
func TestOutboundClientsComeFromHTTPX(t *testing.T) {
	root := filepath.Clean(filepath.Join("..", "..", ".."))
	self, err := filepath.Abs(".")
	require.NoError(t, err)

	var violations []string
	fset := token.NewFileSet()

	for _, dir := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") || d.Name() == "testdata" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}

			file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
			if err != nil {
				return err
			}
			abs, _ := filepath.Abs(filepath.Dir(path))
			inHTTPX := abs == self

			ast.Inspect(file, func(n ast.Node) bool {
				switch node := n.(type) {
				case *ast.SelectorExpr:
					if isHTTPIdent(node.X) && forbiddenHTTPSelectors[node.Sel.Name] {
						violations = append(violations, fset.Position(node.Pos()).String()+" http."+node.Sel.Name)
					}
				case *ast.CompositeLit:
					if sel, ok := node.Type.(*ast.SelectorExpr); ok && !inHTTPX &&
						isHTTPIdent(sel.X) && sel.Sel.Name == "Client" {
						violations = append(violations, fset.Position(node.Pos()).String()+" http.Client{}")
					}
				}
				return true
			})
			return nil
		})
		require.NoError(t, err, "scan %s", dir)
	}

	slices.Sort(violations)
	require.Empty(t, violations, "outbound HTTP must use httpx.NewClient:\n%s", strings.Join(violations, "\n"))
}

func isHTTPIdent(x ast.Expr) bool {
	id, ok := x.(*ast.Ident)
	return ok && id.Name == "http"
}
