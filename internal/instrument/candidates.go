package instrument

import (
	"go/ast"
	"go/types"
)

// Candidate is one statement the rewriter would instrument, exposed for
// diagnostic passes. Sites already carrying the wrap do not come back.
type Candidate struct {
	Expr     ast.Expr
	Anchor   ast.Stmt
	Comments *ast.CommentGroup
	Missing  bool
}

// Candidates lists the instrumentable statements of one function body.
func Candidates(info *types.Info, cmap ast.CommentMap, body *ast.BlockStmt, closures, goroutines bool) []Candidate {
	f := &siteFinder{info: info, cmap: cmap}
	f.walkBody(body, closures, goroutines)

	if len(f.sites) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(f.sites))
	for _, s := range f.sites {
		out = append(out, Candidate{
			Expr:     s.expr,
			Anchor:   s.anchor,
			Comments: s.comments,
			Missing:  s.missing,
		})
	}
	return out
}
