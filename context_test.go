package oof

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func renderHeadline(c Context) string {
	var sb strings.Builder
	c.headline(&sb)
	return sb.String()
}

func TestGeneratedHeadlineInline(t *testing.T) {
	cases := []struct {
		name string
		ctx  Context
		want string
	}{
		{
			name: "ident receiver single step",
			ctx: NewGenerated(NewIdent(false, "s")).
				Step(NewMethod(false, "Parse")),
			want: "s.Parse() failed",
		},
		{
			name: "call receiver with captured args",
			ctx: NewGenerated(NewCallReceiver(false, "open", NewArg(0, "string", DebugEager("a.txt")))).
				Step(NewMethod(false, "Stat")),
			want: "open($0).Stat() failed",
		},
		{
			name: "hoisted receiver",
			ctx: NewGenerated(NewArgReceiver(false, NewArg(0, "int", DebugEager(7)))).
				Step(NewMethod(false, "Validate", NewArg(1, "bool", DebugEager(true)))),
			want: "$0.Validate($1) failed",
		},
		{
			name: "awaited step",
			ctx: NewGenerated(NewIdent(false, "job")).
				Step(NewMethod(true, "Wait")),
			want: "job.Wait().await failed",
		},
		{
			name: "absence verdict",
			ctx: NewGenerated(NewIdent(false, "cache")).
				Step(NewMethod(false, "Get", NewArg(0, "string", DebugEager("k")))).
				Missing(),
			want: "cache.Get($0) returned `false`",
		},
		{
			name: "no steps at all",
			ctx:  NewGenerated(NewCallReceiver(false, "readAll", NewArg(0, "io.Reader", DebugSkip()))),
			want: "readAll($0) failed",
		},
		{
			name: "two steps stay inline",
			ctx: NewGenerated(NewIdent(false, "db")).
				Step(NewMethod(false, "Begin")).
				Step(NewMethod(false, "Exec", NewArg(0, "string", DebugSkip()))),
			want: "db.Begin().Exec($0) failed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, renderHeadline(tc.ctx))
		})
	}
}

func TestGeneratedHeadlineMultiline(t *testing.T) {
	ctx := NewGenerated(NewIdent(false, "client")).
		Step(NewMethod(false, "Connect", NewArg(0, "string", DebugEager("db:5432")))).
		Step(NewMethod(false, "Begin")).
		Step(NewMethod(false, "Exec", NewArg(1, "string", DebugSkip())))

	want := strings.Join([]string{
		"client",
		"    .Connect($0)",
		"    .Begin()",
		"    .Exec($1)",
		"    failed",
	}, "\n")
	require.Equal(t, want, renderHeadline(ctx))
}

func TestParametersEncounterOrder(t *testing.T) {
	ctx := NewGenerated(NewCallReceiver(false, "req", NewArg(0, "string", DebugEager("GET")))).
		Step(NewMethod(false, "Do", NewArg(1, "int", DebugEager(3)), NewArg(2, "bool", DebugEager(false))))

	params := ctx.parameters()
	require.Len(t, params, 3)
	for i, a := range params {
		require.Equal(t, i, a.index, "aggregate indices must increase in encounter order")
	}
}

func TestParameterRendering(t *testing.T) {
	renderParam := func(a Arg) string {
		var sb strings.Builder
		a.renderParam(&sb)
		return sb.String()
	}

	require.Equal(t, `$0: string = "abc"`, renderParam(NewArg(0, "string", DebugEager("abc"))))
	require.Equal(t, "$1: *bytes.Buffer", renderParam(NewArg(1, "*bytes.Buffer", DebugSkip())),
		"skipped captures carry no value part")

	failing := NewArg(2, "T", DebugWith(func() string { panic("nope") }))
	require.Equal(t, "$2: T = (unavailable)", renderParam(failing))

	custom := NewArg(3, "Creds", DebugWith(func() string { return "<redacted>" }))
	require.Equal(t, "$3: Creds = <redacted>", renderParam(custom))
}

func TestDebugEagerSnapshotsValue(t *testing.T) {
	v := "before"
	fn := DebugEager(v)
	v = "after"

	got, ok := fn()
	require.True(t, ok)
	require.Equal(t, `"before"`, got)
}

func TestDebugValueDefers(t *testing.T) {
	buf := &strings.Builder{}
	fn := DebugValue(buf)
	buf.WriteString("late")

	got, ok := fn()
	require.True(t, ok)
	require.Contains(t, got, "late")
}

func TestRenderValuePanicSafety(t *testing.T) {
	require.Equal(t, "(unavailable)", renderValue(panicky{}))
}

type panicky struct{}

func (panicky) String() string { panic("unprintable") }

func TestCustomContext(t *testing.T) {
	err := New("just a message").Build()
	require.Equal(t, "just a message", err.Message())
	require.NotContains(t, fmt.Sprintf("%+v", err), "Parameters:")
}
