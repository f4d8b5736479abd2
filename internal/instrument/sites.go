package instrument

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"
)

// site is one statement shape the rewriter knows how to instrument.
type site struct {
	// expr is the fallible chain expression.
	expr ast.Expr

	// anchor is the statement the hoisted temporaries go in front of.
	anchor ast.Stmt

	// errExprs are the expressions to wrap, one per return statement on
	// the failure path.
	errExprs []ast.Expr

	// comments configure the site; taken from the anchor statement.
	comments *ast.CommentGroup

	// missing marks a comma-ok miss site.
	missing bool
}

// siteFinder walks one function body collecting instrumentable sites.
type siteFinder struct {
	info *types.Info
	cmap ast.CommentMap

	sites []site
}

var errorType = types.Universe.Lookup("error").Type()

func (f *siteFinder) walkBody(body *ast.BlockStmt, closures, goroutines bool) {
	if body == nil {
		return
	}

	stmts := body.List
	for i := 0; i < len(stmts); i++ {
		switch st := stmts[i].(type) {
		case *ast.AssignStmt:
			var next ast.Stmt
			if i+1 < len(stmts) {
				next = stmts[i+1]
			}
			f.assignSite(st, next)

		case *ast.IfStmt:
			f.ifInitSite(st)
			f.walkBody(st.Body, closures, goroutines)
			if alt, ok := st.Else.(*ast.BlockStmt); ok {
				f.walkBody(alt, closures, goroutines)
			}

		case *ast.ReturnStmt:
			f.returnSite(st)

		case *ast.BlockStmt:
			f.walkBody(st, closures, goroutines)

		case *ast.ForStmt:
			f.walkBody(st.Body, closures, goroutines)

		case *ast.RangeStmt:
			f.walkBody(st.Body, closures, goroutines)

		case *ast.SwitchStmt:
			for _, cl := range st.Body.List {
				if cc, ok := cl.(*ast.CaseClause); ok {
					f.walkBody(&ast.BlockStmt{List: cc.Body}, closures, goroutines)
				}
			}

		case *ast.GoStmt:
			if !goroutines {
				continue
			}
			if lit, ok := st.Call.Fun.(*ast.FuncLit); ok {
				f.walkBody(lit.Body, closures, goroutines)
			}

		case *ast.DeferStmt:
			// Deferred failure paths do not reach the surrounding return
			// statements; leave them alone.

		case *ast.ExprStmt:
			if !closures {
				continue
			}
			ast.Inspect(st, func(n ast.Node) bool {
				if lit, ok := n.(*ast.FuncLit); ok {
					f.walkBody(lit.Body, closures, goroutines)
					return false
				}
				return true
			})

		case *ast.DeclStmt:
			if !closures {
				continue
			}
			ast.Inspect(st, func(n ast.Node) bool {
				if lit, ok := n.(*ast.FuncLit); ok {
					f.walkBody(lit.Body, closures, goroutines)
					return false
				}
				return true
			})
		}
	}
}

// assignSite matches the two statement pair shapes:
//
//	v, err := chain()          v, ok := chain()
//	if err != nil {            if !ok {
//		return ..., err            return ..., someErr
//	}                          }
func (f *siteFinder) assignSite(assign *ast.AssignStmt, next ast.Stmt) {
	expr, ok := f.chainRHS(assign)
	if !ok {
		return
	}

	last := assign.Lhs[len(assign.Lhs)-1]
	ident, ok := last.(*ast.Ident)
	if !ok || ident.Name == "_" {
		return
	}

	cond, ok := next.(*ast.IfStmt)
	if !ok || cond.Init != nil {
		return
	}

	switch {
	case f.isErr(ident) && isNilCheck(cond.Cond, ident.Name):
		errExprs := f.failureReturns(cond.Body, ident.Name)
		if len(errExprs) == 0 {
			return
		}
		f.add(site{
			expr:     expr,
			anchor:   assign,
			errExprs: errExprs,
			comments: f.commentsOf(assign),
		})

	case f.isBool(ident) && isNotOK(cond.Cond, ident.Name):
		errExprs := f.missReturns(cond.Body)
		if len(errExprs) == 0 {
			return
		}
		f.add(site{
			expr:     expr,
			anchor:   assign,
			errExprs: errExprs,
			comments: f.commentsOf(assign),
			missing:  true,
		})
	}
}

// ifInitSite matches the compact form:
//
//	if err := chain(); err != nil {
//		return ..., err
//	}
func (f *siteFinder) ifInitSite(st *ast.IfStmt) {
	assign, ok := st.Init.(*ast.AssignStmt)
	if !ok {
		return
	}
	expr, ok := f.chainRHS(assign)
	if !ok {
		return
	}

	last := assign.Lhs[len(assign.Lhs)-1]
	ident, ok := last.(*ast.Ident)
	if !ok || !f.isErr(ident) || !isNilCheck(st.Cond, ident.Name) {
		return
	}

	errExprs := f.failureReturns(st.Body, ident.Name)
	if len(errExprs) == 0 {
		return
	}
	f.add(site{
		expr:     expr,
		anchor:   st,
		errExprs: errExprs,
		comments: f.commentsOf(st),
	})
}

// returnSite matches a chain returned directly in error position:
//
//	return chain()
func (f *siteFinder) returnSite(st *ast.ReturnStmt) {
	if len(st.Results) == 0 {
		return
	}
	last := st.Results[len(st.Results)-1]
	call, ok := callChain(last)
	if !ok || alreadyWrapped(last) {
		return
	}
	tv, ok := f.info.Types[call]
	if !ok || tv.Type == nil {
		return
	}

	// The call must produce exactly an error in its last (or only)
	// result and be spliced as the return's last expression.
	switch rt := tv.Type.(type) {
	case *types.Tuple:
		if len(st.Results) != 1 || rt.Len() == 0 {
			return
		}
		if !types.Identical(rt.At(rt.Len()-1).Type(), errorType) {
			return
		}
	default:
		if !types.Identical(rt, errorType) {
			return
		}
	}

	f.add(site{
		expr:     last,
		anchor:   st,
		errExprs: []ast.Expr{last},
		comments: f.commentsOf(st),
	})
}

func (f *siteFinder) add(s site) {
	f.sites = append(f.sites, s)
}

// chainRHS accepts a single call (or awaited call) right hand side.
func (f *siteFinder) chainRHS(assign *ast.AssignStmt) (ast.Expr, bool) {
	if len(assign.Rhs) != 1 || len(assign.Lhs) == 0 {
		return nil, false
	}
	return callChain(assign.Rhs[0])
}

func callChain(expr ast.Expr) (ast.Expr, bool) {
	probe := expr
	if u, ok := probe.(*ast.UnaryExpr); ok && u.Op == token.ARROW {
		probe = u.X
	}
	if _, ok := probe.(*ast.CallExpr); !ok {
		return nil, false
	}
	return expr, true
}

func (f *siteFinder) isErr(ident *ast.Ident) bool {
	t := f.info.TypeOf(ident)
	return t != nil && types.Identical(t, errorType)
}

func (f *siteFinder) isBool(ident *ast.Ident) bool {
	t := f.info.TypeOf(ident)
	if t == nil {
		return false
	}
	basic, ok := t.Underlying().(*types.Basic)
	return ok && basic.Kind() == types.Bool
}

// failureReturns collects, per return statement in the failure branch, the
// expression to wrap: the error identifier itself or the enclosing
// expression it feeds, fmt.Errorf("...: %w", err) style. Already rewritten
// expressions are left out so a second run changes nothing.
func (f *siteFinder) failureReturns(body *ast.BlockStmt, errName string) []ast.Expr {
	var out []ast.Expr
	ast.Inspect(body, func(n ast.Node) bool {
		ret, ok := n.(*ast.ReturnStmt)
		if !ok {
			return true
		}
		for _, res := range ret.Results {
			if !mentions(res, errName) || alreadyWrapped(res) {
				continue
			}
			out = append(out, res)
			break
		}
		return true
	})
	return out
}

// missReturns collects the error expressions returned on a comma-ok miss.
func (f *siteFinder) missReturns(body *ast.BlockStmt) []ast.Expr {
	var out []ast.Expr
	ast.Inspect(body, func(n ast.Node) bool {
		ret, ok := n.(*ast.ReturnStmt)
		if !ok {
			return true
		}
		if len(ret.Results) == 0 {
			return true
		}
		last := ret.Results[len(ret.Results)-1]
		if t := f.info.TypeOf(last); t == nil || !types.Identical(t, errorType) {
			return true
		}
		if isNil(last) || alreadyWrapped(last) {
			return true
		}
		out = append(out, last)
		return true
	})
	return out
}

func (f *siteFinder) commentsOf(st ast.Stmt) *ast.CommentGroup {
	groups := f.cmap[st]
	if len(groups) == 0 {
		return nil
	}
	merged := &ast.CommentGroup{}
	for _, g := range groups {
		merged.List = append(merged.List, g.List...)
	}
	return merged
}

func isNilCheck(cond ast.Expr, name string) bool {
	bin, ok := cond.(*ast.BinaryExpr)
	if !ok || bin.Op != token.NEQ {
		return false
	}
	x, ok := bin.X.(*ast.Ident)
	return ok && x.Name == name && isNil(bin.Y)
}

func isNotOK(cond ast.Expr, name string) bool {
	un, ok := cond.(*ast.UnaryExpr)
	if !ok || un.Op != token.NOT {
		return false
	}
	x, ok := un.X.(*ast.Ident)
	return ok && x.Name == name
}

func isNil(expr ast.Expr) bool {
	ident, ok := expr.(*ast.Ident)
	return ok && ident.Name == "nil"
}

func mentions(expr ast.Expr, name string) bool {
	var found bool
	ast.Inspect(expr, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Ident); ok && ident.Name == name {
			found = true
		}
		return !found
	})
	return found
}

// alreadyWrapped recognizes the rewriter's own output.
func alreadyWrapped(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && strings.HasSuffix(sel.Sel.Name, "AutoWrap") && pkg.Name != ""
}
