package oof

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithGeneratedDoesNotDisplaceContext(t *testing.T) {
	b := New("explicit message")
	b.WithGenerated(func() Context {
		t.Fatal("generated context must not be built when a context is set")
		return nil
	})
	require.Equal(t, "explicit message", b.Build().Message())
}

func TestWithGeneratedSetsWhenUnset(t *testing.T) {
	b := Wrap(errors.New("boom"))
	b.WithGenerated(func() Context {
		return NewGenerated(NewIdent(false, "conn")).Step(NewMethod(false, "Close"))
	})
	require.Equal(t, "conn.Close() failed", b.Build().Message())
}

func TestWithSourceFirstWins(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	b := New("outer").WithSource(first).WithSource(second)
	require.Same(t, first, b.Unwrap())
}

func TestBuilderIsAnError(t *testing.T) {
	var err error = New("from a builder")
	require.Contains(t, err.Error(), "from a builder at ")

	root := errors.New("root")
	err = Wrap(root)
	require.True(t, errors.Is(err, root))
}

func TestMetaHelpersReuseOpenBuilder(t *testing.T) {
	retryable := NewTag("retryable")
	slow := NewTag("slow")

	inner := Wrap(errors.New("boom"))
	outer := WithTag(WithTag(inner, retryable), slow)

	require.Same(t, inner, outer, "stacked helpers must not nest builders")
	built := outer.Build()
	require.True(t, built.Tagged(retryable))
	require.True(t, built.Tagged(slow))
}

func TestWithTagIf(t *testing.T) {
	cond := NewTag("cond")

	require.False(t, WithTagIf(errors.New("a"), false, cond).Build().Tagged(cond))
	require.True(t, WithTagIf(errors.New("b"), true, cond).Build().Tagged(cond))
}

func TestAutoWrapNilStaysNil(t *testing.T) {
	err := AutoWrap(nil, Caller(0), func() Context {
		t.Fatal("context must not be built for a nil error")
		return nil
	})
	require.NoError(t, err)
}

func TestAutoWrapForeignError(t *testing.T) {
	root := errors.New("permission denied")
	loc := At("svc/user.go", 42, 9)

	err := AutoWrap(root, loc, func() Context {
		return NewGenerated(NewIdent(false, "store")).Step(NewMethod(false, "Load"))
	})

	var o *Oof
	require.True(t, errors.As(err, &o))
	require.Equal(t, "store.Load() failed at svc/user.go:42:9", o.Error())
	require.Same(t, root, o.Unwrap())
}

func TestAutoWrapCompletesOpenBuilder(t *testing.T) {
	retryable := NewTag("retryable")

	// An open builder returned from a deeper frame keeps its own location
	// and tags; the instrumented site contributes only the chain context.
	open := Wrap(errors.New("reset by peer")).WithTag(retryable)
	innerLoc := open.loc

	err := AutoWrap(open, At("svc/user.go", 55, 9), func() Context {
		return NewGenerated(NewIdent(false, "conn")).Step(NewMethod(false, "Send"))
	})

	var o *Oof
	require.True(t, errors.As(err, &o))
	require.True(t, o.Tagged(retryable))
	require.Equal(t, innerLoc, o.Location())
	require.Equal(t, "conn.Send() failed", o.Message())
}

func TestAutoWrapDoesNotDoubleWrap(t *testing.T) {
	open := New("already described")
	err := AutoWrap(open, Caller(0), func() Context {
		return NewGenerated(NewIdent(false, "x")).Step(NewMethod(false, "Y"))
	})

	var o *Oof
	require.True(t, errors.As(err, &o))
	require.Equal(t, "already described", o.Message())
	require.Nil(t, o.Unwrap())
}
