// Package chain decomposes one fallible call expression into the flat
// receiver-plus-steps form the runtime renders on failure.
package chain

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/types/typeutil"
)

// ReceiverKind discriminates how the leftmost operand of a chain is
// treated.
type ReceiverKind int

const (
	_ ReceiverKind = iota

	// KindIdent is a plain identifier or a field selection. It renders
	// by name and is never captured or re-evaluated.
	KindIdent

	// KindCall is an innermost plain call, open(path) in
	// open(path).Stat(). Its arguments are captured.
	KindCall

	// KindExpr is any other expression. It is hoisted whole into a
	// captured argument.
	KindExpr
)

// Chain is the decomposed form of one call expression.
type Chain struct {
	Receiver Receiver
	Steps    []Step

	// Meta lists chained builder calls stripped from the rendered form.
	// They run at runtime anyway; they just do not belong to the failure
	// description.
	Meta []string
}

// Receiver is the leftmost operand.
type Receiver struct {
	Kind  ReceiverKind
	Name  string
	Args  []Arg
	Await bool
}

// Step is one chained method call.
type Step struct {
	Name  string
	Args  []Arg
	Await bool
}

// Arg is one expression whose value the instrumented site captures. The
// index is unique across the whole chain, receiver included.
type Arg struct {
	Index int
	Expr  ast.Expr
	Text  string
	Type  types.Type

	// Hoist is set for computed expressions: they get evaluated into a
	// temporary ahead of the call so the captured value is the one the
	// call actually saw.
	Hoist bool
}

// Args returns every captured argument of the chain in encounter order,
// receiver's first.
func (c *Chain) Args() []Arg {
	var out []Arg
	out = append(out, c.Receiver.Args...)
	for i := range c.Steps {
		out = append(out, c.Steps[i].Args...)
	}
	return out
}

// runtimePath is where the builder lives; chained calls into it are meta
// steps, not business steps.
const runtimePath = "github.com/sirkon/oof"

// Decomposer turns call expressions into chains using the type information
// of their package.
type Decomposer struct {
	fset *token.FileSet
	info *types.Info
	pkg  *types.Package
}

// New creates a decomposer over one type-checked package.
func New(fset *token.FileSet, info *types.Info, pkg *types.Package) *Decomposer {
	return &Decomposer{fset: fset, info: info, pkg: pkg}
}

// Decompose flattens expr. It fails when expr is not a call chain at all;
// the caller is expected to pre-filter statements, so this signals a bug
// or an unsupported construct, not a user mistake.
func (d *Decomposer) Decompose(expr ast.Expr) (*Chain, error) {
	var c Chain

	// Unwrap a leading receive: the awaited form of a chain.
	chainAwait := false
	if u, ok := expr.(*ast.UnaryExpr); ok && u.Op == token.ARROW {
		chainAwait = true
		expr = u.X
	}

	// Peel calls outside in. Every call whose operator is a selection is
	// one step; the first one that is not ends the chain.
	var steps []Step
	cur := expr
	for {
		call, ok := cur.(*ast.CallExpr)
		if !ok {
			break
		}

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			// Innermost plain call: this is the receiver itself.
			c.Receiver = Receiver{
				Kind: KindCall,
				Name: d.text(call.Fun),
				Args: d.args(call),
			}
			reverse(steps)
			c.Steps = steps
			d.finish(&c, chainAwait)
			return &c, nil
		}

		if d.isMeta(call) {
			c.Meta = append(c.Meta, sel.Sel.Name)
			// A package-level helper, oof.WithTag(expr, t), carries the
			// chain in its first argument rather than in a receiver.
			if d.isPkgSelector(sel) {
				if len(call.Args) == 0 {
					return nil, fmt.Errorf("meta call %s has nothing to describe", sel.Sel.Name)
				}
				cur = call.Args[0]
				continue
			}
			cur = sel.X
			continue
		}

		steps = append(steps, Step{
			Name:  sel.Sel.Name,
			Args:  d.args(call),
			Await: d.callAwait(call),
		})
		cur = sel.X
	}

	if len(steps) == 0 && cur == expr {
		return nil, fmt.Errorf("expression %s is not a call chain", d.text(expr))
	}

	if isIdentChain(cur) {
		c.Receiver = Receiver{Kind: KindIdent, Name: d.text(cur)}
	} else {
		c.Receiver = Receiver{
			Kind: KindExpr,
			Args: []Arg{d.arg(cur)},
		}
	}
	reverse(steps)
	c.Steps = steps
	d.finish(&c, chainAwait)
	return &c, nil
}

// finish renumbers the captured arguments in encounter order and applies
// the chain-level await to its last segment.
func (d *Decomposer) finish(c *Chain, chainAwait bool) {
	idx := 0
	for i := range c.Receiver.Args {
		c.Receiver.Args[i].Index = idx
		idx++
	}
	for i := range c.Steps {
		for j := range c.Steps[i].Args {
			c.Steps[i].Args[j].Index = idx
			idx++
		}
	}

	if !chainAwait {
		return
	}
	if len(c.Steps) > 0 {
		c.Steps[len(c.Steps)-1].Await = true
		return
	}
	c.Receiver.Await = true
}

func (d *Decomposer) args(call *ast.CallExpr) []Arg {
	if len(call.Args) == 0 {
		return nil
	}
	out := make([]Arg, 0, len(call.Args))
	for _, a := range call.Args {
		out = append(out, d.arg(a))
	}
	return out
}

func (d *Decomposer) arg(expr ast.Expr) Arg {
	var typ types.Type
	if tv, ok := d.info.Types[expr]; ok {
		typ = tv.Type
	}
	return Arg{
		Expr:  expr,
		Text:  d.text(expr),
		Type:  typ,
		Hoist: !isIdentChain(expr) && !isLiteral(expr),
	}
}

// TypeLabel renders the type of an argument relative to the package under
// rewrite.
func (d *Decomposer) TypeLabel(a Arg) string {
	if a.Type == nil {
		return "?"
	}
	return types.TypeString(a.Type, types.RelativeTo(d.pkg))
}

// isPkgSelector reports whether the selection goes through a package name
// instead of a value.
func (d *Decomposer) isPkgSelector(sel *ast.SelectorExpr) bool {
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	_, ok = d.info.Uses[ident].(*types.PkgName)
	return ok
}

// isMeta recognizes chained calls into the error runtime itself.
func (d *Decomposer) isMeta(call *ast.CallExpr) bool {
	fn := typeutil.Callee(d.info, call)
	if fn == nil {
		return false
	}
	pkg := fn.Pkg()
	return pkg != nil && pkg.Path() == runtimePath
}

// callAwait reports whether a step is a blocking one: its first argument
// is a context.Context.
func (d *Decomposer) callAwait(call *ast.CallExpr) bool {
	if len(call.Args) == 0 {
		return false
	}
	tv, ok := d.info.Types[call.Args[0]]
	if !ok || tv.Type == nil {
		return false
	}
	named, ok := tv.Type.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Name() == "Context" && obj.Pkg() != nil && obj.Pkg().Path() == "context"
}

func (d *Decomposer) text(expr ast.Expr) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, d.fset, expr); err != nil {
		return "?"
	}
	return buf.String()
}

// isIdentChain accepts identifiers and dotted field selections, the shapes
// that are safe to re-evaluate in the failure description.
func isIdentChain(expr ast.Expr) bool {
	for {
		switch x := expr.(type) {
		case *ast.Ident:
			return true
		case *ast.SelectorExpr:
			expr = x.X
		default:
			return false
		}
	}
}

func isLiteral(expr ast.Expr) bool {
	_, ok := expr.(*ast.BasicLit)
	return ok
}

func reverse(steps []Step) {
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
}
