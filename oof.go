package oof

import (
	"errors"
	"strings"
)

// Oof is the aggregate error. It holds what was being attempted (the
// context), where (the location), why it went wrong (the source, possibly
// nil), how to react (the tags) and anything else worth knowing (the
// attachments).
//
// Oof values are effectively immutable: the fluent methods copy before
// changing anything, so an error handed to another goroutine stays what
// it was.
type Oof struct {
	context  Context
	source   error
	loc      Location
	tags     tagSet
	attached []attachment
}

// attachment is one extra piece of display context. Lazy attachments keep
// the closure and render on demand; eager ones store the rendered text.
type attachment struct {
	text string
	lazy func() string
}

func (a attachment) render() (out string) {
	if a.lazy == nil {
		return a.text
	}
	defer func() {
		if recover() != nil {
			out = "(unavailable)"
		}
	}()
	return a.lazy()
}

// fallbackMessage is what renders when an error somehow ends up with no
// context at all.
const fallbackMessage = "Error encountered"

func (o *Oof) clone() *Oof {
	c := *o
	c.tags = o.tags.clone()
	c.attached = append([]attachment(nil), o.attached...)
	return &c
}

// Tag returns a copy of the error carrying t.
func (o *Oof) Tag(t *Tag) *Oof {
	c := o.clone()
	c.tags = c.tags.add(t)
	return c
}

// Untag returns a copy of the error without t. Useful when re-wrapping an
// error whose classification no longer applies at this layer.
func (o *Oof) Untag(t *Tag) *Oof {
	c := o.clone()
	c.tags.remove(t)
	return c
}

// Attach returns a copy of the error carrying v rendered immediately.
func (o *Oof) Attach(v any) *Oof {
	c := o.clone()
	c.attached = append(c.attached, attachment{text: renderValue(v)})
	return c
}

// AttachLazy returns a copy of the error carrying f, which is called only
// if the error is actually displayed.
func (o *Oof) AttachLazy(f func() string) *Oof {
	c := o.clone()
	c.attached = append(c.attached, attachment{lazy: f})
	return c
}

// Tagged reports whether this error itself carries t. Causes are not
// consulted; see TaggedNested for that.
func (o *Oof) Tagged(t *Tag) bool {
	return o.tags.contains(t)
}

// TaggedNested reports whether this error or any cause below it carries t.
// Causes that are not Oof errors cannot carry tags and are skipped, but
// traversal continues through them.
func (o *Oof) TaggedNested(t *Tag) bool {
	for err := error(o); err != nil; err = errors.Unwrap(err) {
		if x, ok := err.(*Oof); ok && x.tags.contains(t) {
			return true
		}
	}
	return false
}

// TaggedNestedRev is TaggedNested checking the deepest cause first and this
// error last. The answer is the same; the difference matters only to
// callers short-circuiting on the first match by hand via Causes.
func (o *Oof) TaggedNestedRev(t *Tag) bool {
	var hit bool
	for err := error(o); err != nil; err = errors.Unwrap(err) {
		if x, ok := err.(*Oof); ok && x.tags.contains(t) {
			hit = true
		}
	}
	return hit
}

// Tags returns the error's own tags, sorted by name.
func (o *Oof) Tags() []*Tag {
	return o.tags.list()
}

// Attachments renders and returns the error's attachments in the order
// they were added.
func (o *Oof) Attachments() []string {
	if len(o.attached) == 0 {
		return nil
	}
	out := make([]string, len(o.attached))
	for i := range o.attached {
		out[i] = o.attached[i].render()
	}
	return out
}

// Location returns where the error was constructed.
func (o *Oof) Location() Location {
	return o.loc
}

// Unwrap returns the source, nil when this error is a root.
func (o *Oof) Unwrap() error {
	return o.source
}

// Message renders the context headline without the location suffix or any
// of the detail blocks.
func (o *Oof) Message() string {
	var sb strings.Builder
	o.writeHeadline(&sb)
	return sb.String()
}

func (o *Oof) writeHeadline(sb *strings.Builder) {
	if o.context == nil {
		sb.WriteString(fallbackMessage)
		return
	}
	o.context.headline(sb)
}

// Error renders the headline and the location. Detail blocks (parameters,
// attachments, causes) render under the %+v verb only.
func (o *Oof) Error() string {
	var sb strings.Builder
	o.writeHeadline(&sb)
	sb.WriteString(" at ")
	sb.WriteString(o.loc.String())
	return sb.String()
}

// Tagged reports whether the first aggregate in err's chain itself carries
// t. An open builder counts as an aggregate, so the check agrees with
// TaggedNested and AllTags on errors that were never built.
func Tagged(err error, t *Tag) bool {
	if b, ok := err.(*Builder); ok {
		return b.tags.contains(t)
	}
	var o *Oof
	if !errors.As(err, &o) {
		return false
	}
	return o.Tagged(t)
}

// TaggedNested reports whether any Oof in err's chain carries t.
func TaggedNested(err error, t *Tag) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if o, ok := err.(*Oof); ok && o.tags.contains(t) {
			return true
		}
		if b, ok := err.(*Builder); ok && b.tags.contains(t) {
			return true
		}
	}
	return false
}

// AllTags returns the tags of every aggregate in err's chain, outermost
// layer first, duplicates removed. Transport adapters use it to pick the
// first classification they know how to map.
func AllTags(err error) []*Tag {
	var out []*Tag
	seen := make(tagSet)
	for ; err != nil; err = errors.Unwrap(err) {
		var layer []*Tag
		switch x := err.(type) {
		case *Oof:
			layer = x.tags.list()
		case *Builder:
			layer = x.tags.list()
		}
		for _, t := range layer {
			if seen.contains(t) {
				continue
			}
			seen = seen.add(t)
			out = append(out, t)
		}
	}
	return out
}

// TaggedNestedRev is TaggedNested walking deepest-first. The answer is the
// same either way; use it when the tag is expected near the root of the
// chain and the chain is deep.
func TaggedNestedRev(err error, t *Tag) bool {
	var chain []error
	for ; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		switch x := chain[i].(type) {
		case *Oof:
			if x.tags.contains(t) {
				return true
			}
		case *Builder:
			if x.tags.contains(t) {
				return true
			}
		}
	}
	return false
}
