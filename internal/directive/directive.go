// Package directive holds the instrumentation configuration model: what to
// rewrite, how to capture argument values and what to attach on failure.
//
// Configuration arrives on three levels, outermost to innermost:
//
//   - a package-level .oofgen.yaml next to the sources,
//   - an oof: comment on a function declaration,
//   - an oof: comment on the statement being rewritten.
//
// Scalar settings are taken from the innermost level that sets them, list
// settings accumulate across levels.
package directive

import (
	"encoding"
	"fmt"
	"strings"
)

// Policy controls how argument values are captured for display.
type Policy int

const (
	_ Policy = iota

	// PolicyBasic captures values of basic kinds (strings, numerics,
	// booleans) eagerly and leaves everything else as a type label.
	PolicyBasic

	// PolicyFull captures every argument, deferring the formatting of
	// non-basic values to display time.
	PolicyFull

	// PolicyOff captures type labels only.
	PolicyOff
)

func (p *Policy) String() string {
	v, err := p.MarshalText()
	if err != nil {
		return fmt.Sprintf("policy-invalid(%d)", *p)
	}

	return string(v)
}

var _ encoding.TextUnmarshaler = (*Policy)(nil)

func (p *Policy) UnmarshalText(b []byte) error {
	switch string(b) {
	case "basic":
		*p = PolicyBasic
		return nil
	case "full":
		*p = PolicyFull
		return nil
	case "off":
		*p = PolicyOff
		return nil
	default:
		return fmt.Errorf("unknown capture policy %q", b)
	}
}

func (p *Policy) MarshalText() ([]byte, error) {
	switch *p {
	case PolicyBasic:
		return []byte("basic"), nil
	case PolicyFull:
		return []byte("full"), nil
	case PolicyOff:
		return []byte("off"), nil
	default:
		return nil, fmt.Errorf("cannot marshal invalid Policy(%d)", *p)
	}
}

// Rewriter is one custom formatter binding: arguments whose source text
// matches Expr are rendered through the function named by With instead of
// the default formatter.
type Rewriter struct {
	Expr string
	With string
}

var _ encoding.TextUnmarshaler = (*Rewriter)(nil)

// UnmarshalText accepts the expr:func form used both in yaml lists and in
// comment directives.
func (r *Rewriter) UnmarshalText(b []byte) error {
	expr, with, ok := strings.Cut(string(b), ":")
	if !ok || expr == "" || with == "" {
		return fmt.Errorf("debug_with wants the expr:func form, got %q", b)
	}

	r.Expr = expr
	r.With = with
	return nil
}

func (r *Rewriter) MarshalText() ([]byte, error) {
	return []byte(r.Expr + ":" + r.With), nil
}

// Options is one level of configuration. Scalar fields are pointers so a
// level can stay silent about them.
type Options struct {
	// Skip turns instrumentation off for the scope.
	Skip *bool `yaml:"skip"`

	// Closures extends instrumentation into function literals.
	Closures *bool `yaml:"closures"`

	// Goroutines extends instrumentation into go statement bodies.
	Goroutines *bool `yaml:"goroutines"`

	// Debug selects the capture policy.
	Debug *Policy `yaml:"debug"`

	// Tags are classification keys applied on failure, named as
	// expressions resolvable in the instrumented file.
	Tags []string `yaml:"tags"`

	// Attach lists expressions attached eagerly on failure.
	Attach []string `yaml:"attach"`

	// AttachLazy lists expressions attached lazily on failure.
	AttachLazy []string `yaml:"attach_lazy"`

	// DebugSkip lists argument expressions whose values must not be
	// captured.
	DebugSkip []string `yaml:"debug_skip"`

	// DebugWith lists custom formatter bindings. A binding beats a
	// DebugSkip entry matching the same expression.
	DebugWith []Rewriter `yaml:"debug_with"`
}

// Resolved is the effective configuration of one call site after merging
// all levels.
type Resolved struct {
	Skip       bool
	Closures   bool
	Goroutines bool
	Debug      Policy
	Tags       []string
	Attach     []string
	AttachLazy []string
	DebugSkip  []string
	DebugWith  []Rewriter
}

// Merge folds levels given outermost first into the effective
// configuration. Unset scalars default to: no skip, no closures, no
// goroutines, basic capture.
func Merge(levels ...Options) Resolved {
	r := Resolved{Debug: PolicyBasic}

	for _, lv := range levels {
		if lv.Skip != nil {
			r.Skip = *lv.Skip
		}
		if lv.Closures != nil {
			r.Closures = *lv.Closures
		}
		if lv.Goroutines != nil {
			r.Goroutines = *lv.Goroutines
		}
		if lv.Debug != nil {
			r.Debug = *lv.Debug
		}

		r.Tags = append(r.Tags, lv.Tags...)
		r.Attach = append(r.Attach, lv.Attach...)
		r.AttachLazy = append(r.AttachLazy, lv.AttachLazy...)
		r.DebugSkip = append(r.DebugSkip, lv.DebugSkip...)
		r.DebugWith = append(r.DebugWith, lv.DebugWith...)
	}

	return r
}

// Formatter resolves the capture treatment of one argument expression:
// a custom formatter name if bound, or skip=true if the expression is
// listed in DebugSkip. A formatter binding wins over a skip entry.
func (r Resolved) Formatter(expr string) (with string, skip bool) {
	for _, rw := range r.DebugWith {
		if rw.Expr == expr {
			return rw.With, false
		}
	}
	for _, s := range r.DebugSkip {
		if s == expr {
			return "", true
		}
	}

	return "", false
}
