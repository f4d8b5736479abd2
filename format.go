package oof

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format implements fmt.Formatter. %s and %v render the one-line form,
// %+v adds parameters, attachments and the causal chain, %q quotes the
// one-line form.
func (o *Oof) Format(st fmt.State, verb rune) {
	switch verb {
	case 'v':
		if st.Flag('+') {
			io.WriteString(st, o.detail())
			return
		}
		io.WriteString(st, o.Error())
	case 's':
		io.WriteString(st, o.Error())
	case 'q':
		io.WriteString(st, strconv.Quote(o.Error()))
	}
}

func (o *Oof) detail() string {
	var sb strings.Builder
	o.writeSelf(&sb)

	chain := collectChain(o.source)
	if len(chain) == 0 {
		return sb.String()
	}

	sb.WriteString("\n\nCaused by:")
	if len(chain) == 1 {
		writeEntry(&sb, "    ", causeText(chain[0]))
		return sb.String()
	}
	for i, c := range chain {
		writeNumbered(&sb, i, causeText(c))
	}
	return sb.String()
}

// writeSelf renders the headline, location, parameters and attachments of
// this error alone, without its causes.
func (o *Oof) writeSelf(sb *strings.Builder) {
	o.writeHeadline(sb)
	sb.WriteString(" at ")
	sb.WriteString(o.loc.String())

	if o.context != nil {
		if params := o.context.parameters(); len(params) > 0 {
			sb.WriteString("\n\nParameters:")
			for _, a := range params {
				sb.WriteString("\n    ")
				a.renderParam(sb)
			}
		}
	}

	if len(o.attached) > 0 {
		sb.WriteString("\n\nAttachments:")
		for i := range o.attached {
			writeNumbered(sb, i, o.attached[i].render())
		}
	}
}

// causeText renders one cause of the chain, detail blocks included but
// without a nested "Caused by": the flattened chain already lists what
// would go there.
func causeText(err error) string {
	switch x := err.(type) {
	case *Oof:
		var sb strings.Builder
		x.writeSelf(&sb)
		return sb.String()
	case *Builder:
		var sb strings.Builder
		x.Build().writeSelf(&sb)
		return sb.String()
	default:
		return err.Error()
	}
}

// writeEntry writes text on a fresh line under prefix, indenting
// continuation lines to match.
func writeEntry(sb *strings.Builder, prefix, text string) {
	sb.WriteByte('\n')
	sb.WriteString(prefix)
	sb.WriteString(strings.ReplaceAll(text, "\n", "\n"+prefix))
}

// writeNumbered writes one numbered block entry, continuation lines
// indented past the number.
func writeNumbered(sb *strings.Builder, n int, text string) {
	label := strconv.Itoa(n) + ": "
	sb.WriteString("\n    ")
	sb.WriteString(label)
	cont := "\n    " + strings.Repeat(" ", len(label))
	sb.WriteString(strings.ReplaceAll(text, "\n", cont))
}
