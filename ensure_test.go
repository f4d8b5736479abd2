package oof

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsure(t *testing.T) {
	require.NoError(t, Ensure(true, "unused %d", 1))

	err := Ensure(false, "quota exceeded: %d > %d", 11, 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded: 11 > 10 at ")
	require.Contains(t, err.Error(), "ensure_test.go:")
}

func TestEnsureEqual(t *testing.T) {
	require.NoError(t, EnsureEqual(42, 42))

	err := EnsureEqual("want", "got")
	require.Error(t, err)
	require.Contains(t, err.Error(), "values are not equal at ")

	detail := fmt.Sprintf("%+v", err)
	require.Contains(t, detail, `left: "want"`)
	require.Contains(t, detail, `right: "got"`)
}

func TestEnsureEqualLazyFormatting(t *testing.T) {
	err := EnsureEqual(1, 2)

	b, ok := err.(*Builder)
	require.True(t, ok)
	require.Len(t, b.attached, 2)
	for _, a := range b.attached {
		require.NotNil(t, a.lazy, "comparison operands must be formatted lazily")
	}
}
