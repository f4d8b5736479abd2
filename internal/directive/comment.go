package directive

import (
	"fmt"
	"go/ast"
	"strconv"
	"strings"
)

// Marker opens a directive comment. The full form is
//
//	//oof:key key=value ...
//
// with boolean keys standing alone and list keys repeatable.
const Marker = "//oof:"

// ParseComment extracts one configuration level from a comment group.
// The second result tells whether any directive line was present at all;
// non-directive comment lines are ignored.
func ParseComment(cg *ast.CommentGroup) (Options, bool, error) {
	var opts Options
	var found bool

	if cg == nil {
		return opts, false, nil
	}

	for _, c := range cg.List {
		rest, ok := strings.CutPrefix(c.Text, Marker)
		if !ok {
			continue
		}
		found = true

		for _, tok := range strings.Fields(rest) {
			if err := applyToken(&opts, tok); err != nil {
				return opts, true, err
			}
		}
	}

	return opts, found, nil
}

func applyToken(opts *Options, tok string) error {
	key, value, assigned := strings.Cut(tok, "=")

	switch key {
	case "skip", "closures", "goroutines":
		v := true
		if assigned {
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("directive %s wants a boolean, got %q", key, value)
			}
			v = parsed
		}
		switch key {
		case "skip":
			opts.Skip = &v
		case "closures":
			opts.Closures = &v
		case "goroutines":
			opts.Goroutines = &v
		}

	case "debug":
		if !assigned {
			return fmt.Errorf("directive debug wants a value: basic, full or off")
		}
		var p Policy
		if err := p.UnmarshalText([]byte(value)); err != nil {
			return err
		}
		opts.Debug = &p

	case "tag":
		if !assigned || value == "" {
			return fmt.Errorf("directive tag wants an expression")
		}
		opts.Tags = append(opts.Tags, value)

	case "attach":
		if !assigned || value == "" {
			return fmt.Errorf("directive attach wants an expression")
		}
		opts.Attach = append(opts.Attach, value)

	case "attach_lazy":
		if !assigned || value == "" {
			return fmt.Errorf("directive attach_lazy wants an expression")
		}
		opts.AttachLazy = append(opts.AttachLazy, value)

	case "debug_skip":
		if !assigned || value == "" {
			return fmt.Errorf("directive debug_skip wants an expression")
		}
		opts.DebugSkip = append(opts.DebugSkip, value)

	case "debug_with":
		var rw Rewriter
		if err := rw.UnmarshalText([]byte(value)); err != nil {
			return err
		}
		opts.DebugWith = append(opts.DebugWith, rw)

	default:
		return fmt.Errorf("unknown directive %q", key)
	}

	return nil
}
