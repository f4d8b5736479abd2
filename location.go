package oof

import (
	"fmt"
	"runtime"
)

// Location is the place an error was constructed. It is captured exactly
// once, when the builder is created, and never adjusted afterwards.
//
// Column is zero when the location comes from runtime.Caller, which does not
// track columns; generated code may provide the exact column it knows from
// the rewritten source.
type Location struct {
	File   string
	Line   int
	Column int
}

// Caller captures the location skip frames above the caller of Caller.
func Caller(skip int) Location {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Location{File: "unknown"}
	}
	return Location{File: file, Line: line}
}

// At builds a Location from explicit coordinates. Used by generated code.
func At(file string, line, column int) Location {
	return Location{File: file, Line: line, Column: column}
}

func (l Location) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}
