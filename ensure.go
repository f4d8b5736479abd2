package oof

import "fmt"

// Ensure returns nil when cond holds and a located error with the given
// message otherwise. The message is formatted only on the failure path.
func Ensure(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return &Builder{
		context: Custom(fmt.Sprintf(format, args...)),
		loc:     Caller(1),
		located: true,
	}
}

// EnsureEqual returns nil when left equals right and an error carrying
// both values as lazy attachments otherwise. The values are formatted only
// if the error is actually displayed.
func EnsureEqual[T comparable](left, right T) error {
	if left == right {
		return nil
	}
	b := &Builder{
		context: Custom("values are not equal"),
		loc:     Caller(1),
		located: true,
	}
	b.WithAttachmentLazy(func() string { return "left: " + renderValue(left) })
	b.WithAttachmentLazy(func() string { return "right: " + renderValue(right) })
	return b
}
