package oof

import "fmt"

// Builder is an error under construction. The fluent constructors (Wrap,
// New, Errorf, WithTag and friends) all return builders, and a builder is
// itself an error, so it can be returned up the stack as is.
//
// A builder returned as a plain error stays open: the first instrumented
// call site it crosses completes it by attaching the generated context of
// that site. A context set explicitly (New, Errorf, WithMessage) is never
// displaced by a generated one.
type Builder struct {
	context  Context
	source   error
	loc      Location
	located  bool
	tags     tagSet
	attached []attachment
}

// Wrap starts a builder around a source error. The location is captured
// here, not where the builder is eventually completed.
func Wrap(err error) *Builder {
	return &Builder{source: err, loc: Caller(1), located: true}
}

// New starts a builder with a fixed message and no source.
func New(msg string) *Builder {
	return &Builder{context: Custom(msg), loc: Caller(1), located: true}
}

// Errorf starts a builder with a formatted message and no source.
func Errorf(format string, args ...any) *Builder {
	return &Builder{context: Custom(fmt.Sprintf(format, args...)), loc: Caller(1), located: true}
}

// WithTag wraps err into a builder carrying t.
func WithTag(err error, t *Tag) *Builder {
	return asBuilder(err).WithTag(t)
}

// WithTagIf wraps err into a builder carrying t only when cond holds.
func WithTagIf(err error, cond bool, t *Tag) *Builder {
	b := asBuilder(err)
	if cond {
		b = b.WithTag(t)
	}
	return b
}

// WithAttachment wraps err into a builder carrying v, rendered immediately.
func WithAttachment(err error, v any) *Builder {
	return asBuilder(err).WithAttachment(v)
}

// WithAttachmentLazy wraps err into a builder carrying f, rendered only if
// the error is displayed.
func WithAttachmentLazy(err error, f func() string) *Builder {
	return asBuilder(err).WithAttachmentLazy(f)
}

// asBuilder reuses an open builder rather than nesting builders around
// builders. Every other error becomes the source of a fresh one.
func asBuilder(err error) *Builder {
	if b, ok := err.(*Builder); ok {
		return b
	}
	return &Builder{source: err, loc: Caller(2), located: true}
}

// WithSource sets the source. The first source wins; wrapping already
// records the innermost failure and later calls must not rewrite history.
func (b *Builder) WithSource(err error) *Builder {
	if b.source == nil {
		b.source = err
	}
	return b
}

// WithMessage sets a custom context, displacing any previous one.
func (b *Builder) WithMessage(msg string) *Builder {
	b.context = Custom(msg)
	return b
}

// WithGenerated attaches a generated context unless a context is already
// present. One failure gets one description; the innermost site wins.
func (b *Builder) WithGenerated(gen func() Context) *Builder {
	if b.context == nil {
		b.context = gen()
	}
	return b
}

// WithTag adds t to the builder.
func (b *Builder) WithTag(t *Tag) *Builder {
	b.tags = b.tags.add(t)
	return b
}

// WithTagIf adds t to the builder when cond holds.
func (b *Builder) WithTagIf(cond bool, t *Tag) *Builder {
	if cond {
		b.tags = b.tags.add(t)
	}
	return b
}

// WithAttachment adds v, rendered immediately.
func (b *Builder) WithAttachment(v any) *Builder {
	b.attached = append(b.attached, attachment{text: renderValue(v)})
	return b
}

// WithAttachmentLazy adds f, rendered only if the error is displayed.
func (b *Builder) WithAttachmentLazy(f func() string) *Builder {
	b.attached = append(b.attached, attachment{lazy: f})
	return b
}

// WithLocation pins the location. Only the first location sticks, whether
// it came from here or from a constructor.
func (b *Builder) WithLocation(loc Location) *Builder {
	if !b.located {
		b.loc = loc
		b.located = true
	}
	return b
}

// Build finalizes the builder into an immutable Oof. The builder must not
// be used afterwards.
func (b *Builder) Build() *Oof {
	return &Oof{
		context:  b.context,
		source:   b.source,
		loc:      b.loc,
		tags:     b.tags,
		attached: b.attached,
	}
}

// Error renders the builder as if it had been built.
func (b *Builder) Error() string {
	return b.Build().Error()
}

// Format renders the builder as if it had been built.
func (b *Builder) Format(st fmt.State, verb rune) {
	b.Build().Format(st, verb)
}

// Unwrap returns the source, nil when the builder is a root.
func (b *Builder) Unwrap() error {
	return b.source
}

// AutoWrap is the single entry point of generated code. It completes an
// open builder in flight, or wraps any other error as the source of a
// fresh one, attaching the site's generated context and location either
// way. A nil err stays nil so the helper composes with plain returns.
func AutoWrap(err error, loc Location, gen func() Context) error {
	if err == nil {
		return nil
	}
	b, ok := err.(*Builder)
	if !ok {
		b = &Builder{source: err}
	}
	b.WithLocation(loc)
	b.WithGenerated(gen)
	return b.Build()
}
