package oof

import (
	"fmt"
	"strconv"
)

// DebugFn produces the debug rendering of one captured argument. The second
// result reports whether a rendering is available at all; rendering an
// argument never panics and never re-evaluates the source expression.
type DebugFn func() (string, bool)

// DebugEager renders v immediately and returns a function replaying the
// result. Generated code uses it for cheaply copyable values (strings,
// numerics, booleans), where capturing at the call site costs nothing.
func DebugEager(v any) DebugFn {
	s := renderValue(v)
	return func() (string, bool) { return s, true }
}

// DebugValue defers rendering of v until the value is actually displayed.
// Generated code uses it for non-copyable values under the full capture
// policy.
func DebugValue(v any) DebugFn {
	return func() (string, bool) { return renderValue(v), true }
}

// DebugWith defers to a custom formatter bound at the call site. Generated
// code uses it for debug_with overrides.
func DebugWith(f func() string) DebugFn {
	return func() (s string, ok bool) {
		defer func() {
			if recover() != nil {
				s, ok = "", false
			}
		}()
		return f(), true
	}
}

// DebugSkip marks an argument whose value is deliberately not captured.
// Only the type label remains available.
func DebugSkip() DebugFn {
	return nil
}

// renderValue formats a captured value for display. Strings are quoted so
// that empty and whitespace-only inputs stay visible; everything else goes
// through fmt. A panicking String/Error method degrades to "(unavailable)"
// instead of taking the process down with it.
func renderValue(v any) (out string) {
	defer func() {
		if recover() != nil {
			out = "(unavailable)"
		}
	}()

	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case []byte:
		return strconv.Quote(string(x))
	case error:
		return strconv.Quote(x.Error())
	case fmt.Stringer:
		return strconv.Quote(x.String())
	default:
		return fmt.Sprintf("%v", v)
	}
}
