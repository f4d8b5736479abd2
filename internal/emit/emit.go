// Package emit renders the code a rewritten call site gets: hoisted
// temporaries, the failure-path wrap expression and the chain description
// closure inside it.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirkon/oof/internal/capture"
	"github.com/sirkon/oof/internal/chain"
	"github.com/sirkon/oof/internal/directive"
)

// RuntimePkg is the selector generated code calls the runtime through.
const RuntimePkg = "oof"

// RuntimePath is the import path behind RuntimePkg.
const RuntimePath = "github.com/sirkon/oof"

// Site carries everything needed to render one rewritten call site.
type Site struct {
	Chain *chain.Chain
	Plans []capture.Plan
	Cfg   directive.Resolved

	// File, Line, Column locate the original expression; they go into
	// the wrap verbatim so the rendered error points at the source the
	// author wrote, not at what the rewrite produced.
	File   string
	Line   int
	Column int

	// Missing marks a comma-ok miss rather than a returned error.
	Missing bool
}

// Hoists renders the temporary assignments that must precede the original
// statement, one per line, in argument encounter order.
func (s *Site) Hoists() []string {
	var out []string
	for _, p := range s.Plans {
		if p.Temp == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s := %s", p.Temp, p.Arg.Text))
	}
	return out
}

// Wrap renders the expression replacing errExpr on the failure path.
func (s *Site) Wrap(errExpr string) string {
	var sb strings.Builder

	sb.WriteString(RuntimePkg)
	sb.WriteString(".AutoWrap(")
	sb.WriteString(s.decorated(errExpr))
	sb.WriteString(", ")
	sb.WriteString(RuntimePkg)
	fmt.Fprintf(&sb, ".At(%q, %d, %d)", s.File, s.Line, s.Column)
	sb.WriteString(", func() ")
	sb.WriteString(RuntimePkg)
	sb.WriteString(".Context {\n\treturn ")
	s.writeContext(&sb)
	sb.WriteString("\n})")

	return sb.String()
}

// decorated layers the configured tags and attachments over the raw error
// expression, in that order: tags, eager attachments, lazy attachments.
func (s *Site) decorated(errExpr string) string {
	out := errExpr
	wrapped := false
	deco := func(name, arg string) {
		if !wrapped {
			out = fmt.Sprintf("%s.%s(%s, %s)", RuntimePkg, name, out, arg)
			wrapped = true
			return
		}
		out = fmt.Sprintf("%s.%s(%s)", out, name, arg)
	}

	for _, tag := range s.Cfg.Tags {
		deco("WithTag", tag)
	}
	for _, att := range s.Cfg.Attach {
		deco("WithAttachment", att)
	}
	for _, att := range s.Cfg.AttachLazy {
		deco("WithAttachmentLazy", att)
	}

	return out
}

func (s *Site) writeContext(sb *strings.Builder) {
	sb.WriteString(RuntimePkg)
	sb.WriteString(".NewGenerated(")
	s.writeReceiver(sb)
	sb.WriteString(")")

	for _, st := range s.Chain.Steps {
		sb.WriteString(".\n\t\tStep(")
		sb.WriteString(RuntimePkg)
		fmt.Fprintf(sb, ".NewMethod(%t, %q", st.Await, st.Name)
		s.writeArgs(sb, st.Args)
		sb.WriteString("))")
	}

	if s.Missing {
		sb.WriteString(".\n\t\tMissing()")
	}
}

func (s *Site) writeReceiver(sb *strings.Builder) {
	r := s.Chain.Receiver
	switch r.Kind {
	case chain.KindIdent:
		fmt.Fprintf(sb, "%s.NewIdent(%t, %q)", RuntimePkg, r.Await, r.Name)
	case chain.KindCall:
		fmt.Fprintf(sb, "%s.NewCallReceiver(%t, %q", RuntimePkg, r.Await, r.Name)
		s.writeArgs(sb, r.Args)
		sb.WriteString(")")
	case chain.KindExpr:
		fmt.Fprintf(sb, "%s.NewArgReceiver(%t, ", RuntimePkg, r.Await)
		s.writeArg(sb, r.Args[0])
		sb.WriteString(")")
	}
}

func (s *Site) writeArgs(sb *strings.Builder, args []chain.Arg) {
	for _, a := range args {
		sb.WriteString(", ")
		s.writeArg(sb, a)
	}
}

func (s *Site) writeArg(sb *strings.Builder, a chain.Arg) {
	p := s.plan(a)

	fmt.Fprintf(sb, "%s.NewArg(%d, %s, ", RuntimePkg, a.Index, strconv.Quote(p.TypeLabel))
	switch p.Mode {
	case capture.ModeEager:
		fmt.Fprintf(sb, "%s.DebugEager(%s)", RuntimePkg, p.Ref())
	case capture.ModeDeferred:
		fmt.Fprintf(sb, "%s.DebugValue(%s)", RuntimePkg, p.Ref())
	case capture.ModeWith:
		fmt.Fprintf(sb, "%s.DebugWith(func() string { return %s(%s) })", RuntimePkg, p.With, p.Ref())
	default:
		fmt.Fprintf(sb, "%s.DebugSkip()", RuntimePkg)
	}
	sb.WriteString(")")
}

func (s *Site) plan(a chain.Arg) capture.Plan {
	for _, p := range s.Plans {
		if p.Arg.Index == a.Index {
			return p
		}
	}
	// Unplanned arguments only happen on a planner bug; degrade to the
	// safe treatment instead of panicking inside a rewrite.
	return capture.Plan{Arg: a, Mode: capture.ModeSkip, TypeLabel: "?"}
}
