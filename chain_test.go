package oof

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCausesForwardAndReverse(t *testing.T) {
	c3 := errors.New("c3")
	c2 := Wrap(c3).WithMessage("c2").Build()
	c1 := Wrap(c2).WithMessage("c1").Build()
	top := Wrap(c1).WithMessage("top").Build()

	var forward []string
	for err := range Causes(top) {
		forward = append(forward, headlineOf(err))
	}
	require.Equal(t, []string{"c1", "c2", "c3"}, forward)

	var reverse []string
	for err := range CausesRev(top) {
		reverse = append(reverse, headlineOf(err))
	}
	require.Equal(t, []string{"c3", "c2", "c1"}, reverse)

	require.Len(t, reverse, len(forward))
}

func TestCausesBreakStopsEarly(t *testing.T) {
	c2 := errors.New("c2")
	c1 := Wrap(c2).WithMessage("c1").Build()
	top := Wrap(c1).WithMessage("top").Build()

	var seen int
	for range Causes(top) {
		seen++
		break
	}
	require.Equal(t, 1, seen)
}

func TestCausesOfNil(t *testing.T) {
	for range Causes(nil) {
		t.Fatal("nil error has no causes")
	}
	for range CausesRev(nil) {
		t.Fatal("nil error has no causes")
	}
}

func headlineOf(err error) string {
	if o, ok := err.(*Oof); ok {
		return o.Message()
	}
	return err.Error()
}
