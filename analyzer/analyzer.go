// Package analyzer checks that every call site oofgen would instrument
// actually has been instrumented, so stale rewrites surface in CI instead
// of in production error reports.
package analyzer

import (
	"go/ast"
	"path/filepath"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/sirkon/oof/internal/chain"
	"github.com/sirkon/oof/internal/directive"
	"github.com/sirkon/oof/internal/instrument"
)

const doc = `oofcheck reports fallible call sites that opted into instrumentation but have not been rewritten`

// Analyzer is the entry point for the check.
var Analyzer = &analysis.Analyzer{
	Name:     "oofcheck",
	Doc:      doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	pector := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	pkgOpts, pkgFound := loadPkgConfig(pass)
	cmaps := commentMaps(pass)
	dec := chain.New(pass.Fset, pass.TypesInfo, pass.Pkg)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
	}

	pector.Preorder(nodeFilter, func(node ast.Node) {
		fn := node.(*ast.FuncDecl) // No need to assert check since we only get func decls.
		if fn.Body == nil {
			return
		}

		fnOpts, fnFound, err := directive.ParseComment(fn.Doc)
		if err != nil {
			pass.Reportf(fn.Pos(), "bad oof directive: %v", err)
			return
		}

		cmap := cmaps[pass.Fset.Position(fn.Pos()).Filename]
		walkCfg := directive.Merge(pkgOpts, fnOpts)
		for _, cand := range instrument.Candidates(pass.TypesInfo, cmap, fn.Body, walkCfg.Closures, walkCfg.Goroutines) {
			siteOpts, siteFound, err := directive.ParseComment(cand.Comments)
			if err != nil {
				pass.Reportf(cand.Anchor.Pos(), "bad oof directive: %v", err)
				continue
			}
			if !pkgFound && !fnFound && !siteFound {
				continue
			}

			cfg := directive.Merge(pkgOpts, fnOpts, siteOpts)
			if cfg.Skip {
				continue
			}

			if _, err := dec.Decompose(cand.Expr); err != nil {
				pass.Reportf(cand.Expr.Pos(), "chain cannot be described: %v", err)
				continue
			}

			pass.Reportf(cand.Expr.Pos(), "fallible call chain is not instrumented, run oofgen rewrite -w")
		}
	})

	return nil, nil
}

func loadPkgConfig(pass *analysis.Pass) (directive.Options, bool) {
	if len(pass.Files) == 0 {
		return directive.Options{}, false
	}

	dir := filepath.Dir(pass.Fset.Position(pass.Files[0].Pos()).Filename)
	opts, found, err := directive.LoadDir(dir)
	if err != nil {
		pass.Reportf(pass.Files[0].Pos(), "bad %s: %v", directive.ConfigFile, err)
		return directive.Options{}, false
	}
	return opts, found
}

func commentMaps(pass *analysis.Pass) map[string]ast.CommentMap {
	out := make(map[string]ast.CommentMap, len(pass.Files))
	for _, file := range pass.Files {
		name := pass.Fset.Position(file.Pos()).Filename
		out[name] = ast.NewCommentMap(pass.Fset, file, file.Comments)
	}
	return out
}
