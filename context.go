package oof

import (
	"strconv"
	"strings"
)

// Context describes what was being attempted when an error was produced.
// There are exactly two implementations: Custom carries a hand-written
// message, Generated carries the decomposed call chain produced by the
// oofgen rewriter.
type Context interface {
	// headline renders the first line(s) of the error message, without
	// the location suffix.
	headline(sb *strings.Builder)

	// parameters returns the captured arguments of a generated chain in
	// the order they appear in the source. Nil for custom contexts.
	parameters() []Arg
}

// Custom is a plain message context, the kind Errorf and New create.
type Custom string

func (c Custom) headline(sb *strings.Builder) {
	sb.WriteString(string(c))
}

func (c Custom) parameters() []Arg { return nil }

// Generated is the decomposed call chain a rewritten site attaches to its
// error. The receiver is the leftmost operand, steps are the chained method
// calls in source order.
type Generated struct {
	recv    Receiver
	steps   []Method
	missing bool
}

// NewGenerated starts a chain description. Called by generated code only.
func NewGenerated(recv Receiver) *Generated {
	return &Generated{recv: recv}
}

// Step appends one chained method call. Called by generated code only.
func (g *Generated) Step(m Method) *Generated {
	g.steps = append(g.steps, m)
	return g
}

// Missing marks the chain as having failed a comma-ok check rather than
// returning a non-nil error. Called by generated code only.
func (g *Generated) Missing() *Generated {
	g.missing = true
	return g
}

// verdict is the suffix telling how the chain went wrong.
func (g *Generated) verdict() string {
	if g.missing {
		return "returned `false`"
	}
	return "failed"
}

// multiline reports whether the chain is long enough that each step gets
// its own line. Two steps or fewer stay on one line.
func (g *Generated) multiline() bool {
	return len(g.steps) > 2
}

func (g *Generated) headline(sb *strings.Builder) {
	if !g.multiline() {
		g.recv.render(sb)
		for i := range g.steps {
			sb.WriteByte('.')
			g.steps[i].render(sb)
		}
		sb.WriteByte(' ')
		sb.WriteString(g.verdict())
		return
	}

	g.recv.render(sb)
	for i := range g.steps {
		sb.WriteString("\n    .")
		g.steps[i].render(sb)
	}
	sb.WriteString("\n    ")
	sb.WriteString(g.verdict())
}

func (g *Generated) parameters() []Arg {
	var out []Arg
	out = append(out, g.recv.args()...)
	for i := range g.steps {
		out = append(out, g.steps[i].argv...)
	}
	return out
}

// receiverKind discriminates how the leftmost operand of a chain is shown.
type receiverKind int

const (
	recvIdent receiverKind = iota
	recvCall
	recvArg
)

// Receiver is the leftmost operand of a decomposed chain.
type Receiver struct {
	kind  receiverKind
	name  string
	argv  []Arg
	await bool
}

// NewIdent describes a receiver that is a plain identifier or a field
// selection. Its value is rendered from the identifier itself, never
// captured.
func NewIdent(await bool, name string) Receiver {
	return Receiver{kind: recvIdent, name: name, await: await}
}

// NewCallReceiver describes a receiver that is itself a call, such as the
// f(x) in f(x).Parse(). Its arguments are captured like any other step's.
func NewCallReceiver(await bool, name string, argv ...Arg) Receiver {
	return Receiver{kind: recvCall, name: name, argv: argv, await: await}
}

// NewArgReceiver describes a receiver that is an arbitrary hoisted
// expression. It renders as a positional placeholder backed by a captured
// argument.
func NewArgReceiver(await bool, arg Arg) Receiver {
	return Receiver{kind: recvArg, argv: []Arg{arg}, await: await}
}

func (r Receiver) args() []Arg {
	if r.kind == recvIdent {
		return nil
	}
	return r.argv
}

func (r Receiver) render(sb *strings.Builder) {
	switch r.kind {
	case recvIdent:
		sb.WriteString(r.name)
	case recvCall:
		sb.WriteString(r.name)
		renderArgList(sb, r.argv)
	case recvArg:
		r.argv[0].renderRef(sb)
	}
	if r.await {
		sb.WriteString(".await")
	}
}

// Method is one chained call in a decomposed chain.
type Method struct {
	name  string
	argv  []Arg
	await bool
}

// NewMethod describes one step of a chain. Called by generated code only.
func NewMethod(await bool, name string, argv ...Arg) Method {
	return Method{name: name, argv: argv, await: await}
}

func (m Method) render(sb *strings.Builder) {
	sb.WriteString(m.name)
	renderArgList(sb, m.argv)
	if m.await {
		sb.WriteString(".await")
	}
}

func renderArgList(sb *strings.Builder, argv []Arg) {
	sb.WriteByte('(')
	for i := range argv {
		if i > 0 {
			sb.WriteString(", ")
		}
		argv[i].renderRef(sb)
	}
	sb.WriteByte(')')
}

// Arg is one captured argument of a decomposed chain. The index is unique
// across the whole chain, receiver included, so the $n placeholders in the
// headline match the Parameters block one to one.
type Arg struct {
	index int
	typ   string
	debug DebugFn
}

// NewArg describes a captured argument. Called by generated code only. The
// type label comes from the rewriter's type information; debug may be nil
// when capture was skipped.
func NewArg(index int, typ string, debug DebugFn) Arg {
	return Arg{index: index, typ: typ, debug: debug}
}

func (a Arg) renderRef(sb *strings.Builder) {
	sb.WriteByte('$')
	sb.WriteString(strconv.Itoa(a.index))
}

// renderParam writes the Parameters block line for the argument, without
// the leading indent. An argument whose capture was skipped shows its type
// alone, with no value part.
func (a Arg) renderParam(sb *strings.Builder) {
	sb.WriteByte('$')
	sb.WriteString(strconv.Itoa(a.index))
	sb.WriteString(": ")
	sb.WriteString(a.typ)
	if a.debug == nil {
		return
	}
	sb.WriteString(" = ")
	v, ok := a.debug()
	if !ok {
		sb.WriteString("(unavailable)")
		return
	}
	sb.WriteString(v)
}
