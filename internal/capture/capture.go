// Package capture decides, per captured argument, how its value reaches
// the failure rendering: snapshotted at the call site, deferred to display
// time, routed through a custom formatter, or withheld.
package capture

import (
	"fmt"
	"go/types"

	"github.com/sirkon/oof/internal/chain"
	"github.com/sirkon/oof/internal/directive"
)

// Mode is the capture treatment of one argument.
type Mode int

const (
	_ Mode = iota

	// ModeEager snapshots the rendered value at the call site.
	ModeEager

	// ModeDeferred keeps the value and renders it only on display.
	ModeDeferred

	// ModeWith routes the value through a named formatter function.
	ModeWith

	// ModeSkip leaves only the type label.
	ModeSkip
)

func (m Mode) String() string {
	switch m {
	case ModeEager:
		return "eager"
	case ModeDeferred:
		return "deferred"
	case ModeWith:
		return "with"
	case ModeSkip:
		return "skip"
	default:
		return fmt.Sprintf("mode-invalid(%d)", int(m))
	}
}

// Plan is the complete capture decision for one argument.
type Plan struct {
	Arg       chain.Arg
	Mode      Mode
	With      string
	TypeLabel string

	// Temp is the name of the hoisted temporary, empty when the argument
	// is referenced in place.
	Temp string
}

// Ref is how generated code refers to the argument value: the temporary if
// one was introduced, the original expression otherwise.
func (p Plan) Ref() string {
	if p.Temp != "" {
		return p.Temp
	}
	return p.Arg.Text
}

// Planner assigns capture plans within one function body, keeping the
// temporary counter so hoisted names never collide.
type Planner struct {
	dec *chain.Decomposer
	seq int
}

// NewPlanner creates a planner for one function body.
func NewPlanner(dec *chain.Decomposer) *Planner {
	return &Planner{dec: dec}
}

// Build plans every captured argument of ch under cfg, in encounter order.
func (p *Planner) Build(ch *chain.Chain, cfg directive.Resolved) []Plan {
	args := ch.Args()
	if len(args) == 0 {
		return nil
	}

	out := make([]Plan, 0, len(args))
	for _, a := range args {
		pl := Plan{
			Arg:       a,
			TypeLabel: p.dec.TypeLabel(a),
			Mode:      p.mode(a, cfg),
		}

		if with, skip := cfg.Formatter(a.Text); with != "" {
			pl.Mode = ModeWith
			pl.With = with
		} else if skip {
			pl.Mode = ModeSkip
		}

		if a.Hoist && pl.Mode != ModeSkip {
			pl.Temp = fmt.Sprintf("__oof_v%d", p.seq)
			p.seq++
		}

		out = append(out, pl)
	}

	return out
}

func (p *Planner) mode(a chain.Arg, cfg directive.Resolved) Mode {
	switch cfg.Debug {
	case directive.PolicyOff:
		return ModeSkip
	case directive.PolicyFull:
		if cheap(a.Type) {
			return ModeEager
		}
		return ModeDeferred
	default:
		if cheap(a.Type) {
			return ModeEager
		}
		return ModeSkip
	}
}

// cheap reports whether snapshotting the value at the call site costs
// nothing worth thinking about: basic kinds and their aliases.
func cheap(t types.Type) bool {
	if t == nil {
		return false
	}
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	return basic.Info()&(types.IsBoolean|types.IsNumeric|types.IsString) != 0
}
