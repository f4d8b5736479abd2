package oof

import (
	"errors"
	"iter"
)

// Causes iterates the causal chain of err starting at its immediate cause
// and ending at the root cause, one Unwrap at a time. Err itself is not
// yielded. The walk is lazy: breaking out of the loop unwraps nothing
// further.
func Causes(err error) iter.Seq[error] {
	return func(yield func(error) bool) {
		for err = errors.Unwrap(err); err != nil; err = errors.Unwrap(err) {
			if !yield(err) {
				return
			}
		}
	}
}

// CausesRev iterates the causal chain of err from the root cause up to the
// immediate cause. The whole chain is unwrapped up front; reversal cannot
// be lazy.
func CausesRev(err error) iter.Seq[error] {
	return func(yield func(error) bool) {
		chain := collectChain(errors.Unwrap(err))
		for i := len(chain) - 1; i >= 0; i-- {
			if !yield(chain[i]) {
				return
			}
		}
	}
}

func collectChain(err error) []error {
	var chain []error
	for ; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err)
	}
	return chain
}
