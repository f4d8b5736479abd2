package oof

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorSingleLine(t *testing.T) {
	err := Errorf("config %q is not usable", "app.yaml").Build()
	require.True(t, strings.HasPrefix(err.Error(), `config "app.yaml" is not usable at `))
	require.Contains(t, err.Error(), "oof_test.go:")
}

func TestFallbackMessage(t *testing.T) {
	err := (&Builder{}).Build()
	require.True(t, strings.HasPrefix(err.Error(), "Error encountered at "))
	require.NotEmpty(t, err.Error())
}

func TestFluentCopiesDoNotAlias(t *testing.T) {
	retryable := NewTag("retryable")
	base := New("upstream unavailable").Build()

	tagged := base.Tag(retryable)
	require.True(t, tagged.Tagged(retryable))
	require.False(t, base.Tagged(retryable), "tagging a copy must not touch the original")

	attached := tagged.Attach("shard-7")
	require.Len(t, attached.Attachments(), 1)
	require.Empty(t, tagged.Attachments())

	untagged := tagged.Untag(retryable)
	require.False(t, untagged.Tagged(retryable))
	require.True(t, tagged.Tagged(retryable))
}

func TestTagIdentityNotName(t *testing.T) {
	a := NewTag("timeout")
	b := NewTag("timeout")

	err := New("deadline exceeded").WithTag(a).Build()
	require.True(t, err.Tagged(a))
	require.False(t, err.Tagged(b), "tags with equal names are still distinct keys")
}

func TestTaggedNestedDepthThree(t *testing.T) {
	inner := NewTag("inner")

	c3 := New("disk failure").WithTag(inner).Build()
	c2 := Wrap(c3).WithMessage("segment flush").Build()
	c1 := Wrap(c2).WithMessage("commit").Build()

	require.False(t, c1.Tagged(inner))
	require.True(t, c1.TaggedNested(inner))
	require.True(t, c1.TaggedNestedRev(inner))
	require.True(t, TaggedNested(c1, inner))
	require.True(t, TaggedNestedRev(c1, inner))

	other := NewTag("other")
	require.False(t, c1.TaggedNested(other))
}

func TestTaggedSeesOpenBuilder(t *testing.T) {
	retryable := NewTag("retryable")

	open := WithTag(errors.New("boom"), retryable)
	require.True(t, Tagged(open, retryable))
	require.True(t, TaggedNested(open, retryable))
	require.Equal(t, []*Tag{retryable}, AllTags(open))

	require.True(t, Tagged(open.Build(), retryable))
	require.False(t, Tagged(open, NewTag("retryable")))
}

func TestTaggedNestedSkipsForeignCauses(t *testing.T) {
	marker := NewTag("marker")

	root := New("root").WithTag(marker).Build()
	foreign := fmt.Errorf("plain layer: %w", root)
	top := Wrap(foreign).WithMessage("top").Build()

	require.True(t, top.TaggedNested(marker))
}

func TestAttachmentsLazyEvaluatedOnRender(t *testing.T) {
	var calls int
	err := New("broken").WithAttachmentLazy(func() string {
		calls++
		return "expensive detail"
	}).Build()

	require.Equal(t, 0, calls, "lazy attachment must not run until displayed")
	detail := fmt.Sprintf("%+v", err)
	require.Equal(t, 1, calls)
	require.Contains(t, detail, "expensive detail")
}

func TestAttachmentPanicRendersUnavailable(t *testing.T) {
	err := New("broken").WithAttachmentLazy(func() string {
		panic("boom")
	}).Build()
	require.Equal(t, []string{"(unavailable)"}, err.Attachments())
}

func TestDetailBlocks(t *testing.T) {
	root := errors.New("connection refused")
	err := Wrap(root).
		WithMessage("dial backend").
		WithAttachment("10.0.0.7:5432").
		WithAttachment(3).
		Build()

	detail := fmt.Sprintf("%+v", err)
	require.Contains(t, detail, "dial backend at ")
	require.Contains(t, detail, "Attachments:")
	require.Contains(t, detail, `0: "10.0.0.7:5432"`)
	require.Contains(t, detail, "1: 3")
	require.Contains(t, detail, "Caused by:")
	require.Contains(t, detail, "connection refused")

	short := fmt.Sprintf("%v", err)
	require.NotContains(t, short, "Caused by:")
}

func TestDetailNumbersMultipleCauses(t *testing.T) {
	c3 := errors.New("root cause")
	c2 := Wrap(c3).WithMessage("middle").Build()
	c1 := Wrap(c2).WithMessage("top").Build()

	detail := fmt.Sprintf("%+v", c1)
	require.Contains(t, detail, "0: middle at ")
	require.Contains(t, detail, "1: root cause")
}

func TestGeneratedChainScenario(t *testing.T) {
	// The instrumented shape of parsing then doubling: the parse step fails
	// on non-numeric input and only that step is blamed.
	parseAndDouble := func(s string) (uint64, error) {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, AutoWrap(err, Caller(0), func() Context {
				return NewGenerated(NewArgReceiver(false, NewArg(0, "string", DebugEager(s)))).
					Step(NewMethod(false, "ParseUint"))
			})
		}
		return n * 2, nil
	}

	_, err := parseAndDouble("abc")
	require.Error(t, err)

	var o *Oof
	require.True(t, errors.As(err, &o))
	require.Contains(t, o.Error(), "$0.ParseUint() failed at ")

	detail := fmt.Sprintf("%+v", o)
	require.Contains(t, detail, "Parameters:")
	require.Contains(t, detail, `$0: string = "abc"`)
	require.Contains(t, detail, "Caused by:")
	require.Contains(t, detail, "invalid syntax")

	// strconv's NumError itself unwraps to ErrSyntax, so the chain below the
	// aggregate starts with the parse failure.
	causes := collectChain(o.Unwrap())
	require.NotEmpty(t, causes)
	require.Contains(t, causes[0].Error(), "invalid syntax")
}

func TestGeneratedChainScenarioOverflow(t *testing.T) {
	// Out-of-range input dies inside the parse step; the doubling after it
	// never runs and never shows up in the blame.
	parseAndDouble := func(s string) (uint64, error) {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, AutoWrap(err, Caller(0), func() Context {
				return NewGenerated(NewArgReceiver(false, NewArg(0, "string", DebugEager(s)))).
					Step(NewMethod(false, "ParseUint"))
			})
		}
		return n * 2, nil
	}

	const over = "99999999999999999999"
	_, err := parseAndDouble(over)
	require.Error(t, err)

	var o *Oof
	require.True(t, errors.As(err, &o))
	require.Contains(t, o.Error(), "$0.ParseUint() failed at ")

	detail := fmt.Sprintf("%+v", o)
	require.Contains(t, detail, `$0: string = "`+over+`"`)
	require.Contains(t, detail, "value out of range")
	require.NotContains(t, detail, "Double", "the step after the failure must not be blamed")
	require.True(t, errors.Is(err, strconv.ErrRange))
}

func TestUnwrapReachesRoot(t *testing.T) {
	root := errors.New("root")
	err := Wrap(root).WithMessage("wrapped").Build()
	require.True(t, errors.Is(err, root))
}
