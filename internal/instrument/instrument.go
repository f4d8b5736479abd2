// Package instrument drives the source rewrite: it loads packages, finds
// the statement shapes worth instrumenting, resolves their configuration
// and splices the failure-path wrapping into the files.
package instrument

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/packages"

	"github.com/sirkon/oof/internal/capture"
	"github.com/sirkon/oof/internal/chain"
	"github.com/sirkon/oof/internal/directive"
	"github.com/sirkon/oof/internal/emit"
)

// Options configures one rewrite run.
type Options struct {
	// Patterns are package patterns in the go/packages sense.
	Patterns []string

	// Dir is the working directory of the load; empty means the current
	// one.
	Dir string

	// Write rewrites files in place. Without it the rewritten content is
	// only reported back to the caller.
	Write bool
}

// SiteReport describes one instrumented call site.
type SiteReport struct {
	Pos   string
	Chain string
}

// FileResult is the outcome for one source file.
type FileResult struct {
	Path      string
	Original  []byte
	Rewritten []byte
	Sites     []SiteReport
}

// Changed reports whether the rewrite touched the file.
func (r *FileResult) Changed() bool {
	return !bytes.Equal(r.Original, r.Rewritten)
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedSyntax

// Run loads the requested packages and rewrites every file with enabled
// instrumentation. Results come back for every processed file, changed or
// not, sorted by path.
func Run(opts Options) ([]FileResult, error) {
	cfg := &packages.Config{
		Mode: loadMode,
		Dir:  opts.Dir,
		Fset: token.NewFileSet(),
	}

	pkgs, err := packages.Load(cfg, opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var loadErrs []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
	})
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("load packages: %s", strings.Join(loadErrs, "; "))
	}

	var results []FileResult
	for _, pkg := range pkgs {
		if pkg.PkgPath == emit.RuntimePath {
			// The runtime never instruments itself.
			continue
		}

		rs, err := rewritePackage(pkg)
		if err != nil {
			return nil, err
		}
		results = append(results, rs...)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	if opts.Write {
		for _, r := range results {
			if !r.Changed() {
				continue
			}
			if err := os.WriteFile(r.Path, r.Rewritten, 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", r.Path, err)
			}
		}
	}

	return results, nil
}

func rewritePackage(pkg *packages.Package) ([]FileResult, error) {
	var pkgOpts directive.Options
	var pkgFound bool

	if len(pkg.CompiledGoFiles) > 0 {
		var err error
		pkgOpts, pkgFound, err = directive.LoadDir(filepath.Dir(pkg.CompiledGoFiles[0]))
		if err != nil {
			return nil, err
		}
	}

	var results []FileResult
	for _, file := range pkg.Syntax {
		r, err := rewriteFile(pkg, file, pkgOpts, pkgFound)
		if err != nil {
			return nil, err
		}
		if r != nil {
			results = append(results, *r)
		}
	}

	return results, nil
}

// edit is one byte-range replacement over the original source.
type edit struct {
	start, end int
	text       string
}

func rewriteFile(pkg *packages.Package, file *ast.File, pkgOpts directive.Options, pkgFound bool) (*FileResult, error) {
	fset := pkg.Fset
	path := fset.Position(file.Pos()).Filename
	if strings.HasSuffix(path, "_test.go") {
		return nil, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	offset := func(pos token.Pos) int {
		return fset.Position(pos).Offset
	}

	cmap := ast.NewCommentMap(fset, file, file.Comments)
	dec := chain.New(fset, pkg.TypesInfo, pkg.Types)

	var edits []edit
	var reports []SiteReport

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}

		fnOpts, fnFound, err := directive.ParseComment(fn.Doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, fn.Name.Name, err)
		}

		walkCfg := directive.Merge(pkgOpts, fnOpts)
		finder := &siteFinder{info: pkg.TypesInfo, cmap: cmap}
		finder.walkBody(fn.Body, walkCfg.Closures, walkCfg.Goroutines)

		planner := capture.NewPlanner(dec)
		for _, st := range finder.sites {
			siteOpts, siteFound, err := directive.ParseComment(st.comments)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fset.Position(st.anchor.Pos()), err)
			}

			// Instrumentation is opt-in: some level must speak up.
			if !pkgFound && !fnFound && !siteFound {
				continue
			}
			cfg := directive.Merge(pkgOpts, fnOpts, siteOpts)
			if cfg.Skip {
				continue
			}

			ch, err := dec.Decompose(st.expr)
			if err != nil {
				// Not a shape we can describe; leave the site as is.
				continue
			}

			pos := fset.Position(st.expr.Pos())
			es := &emit.Site{
				Chain:   ch,
				Plans:   planner.Build(ch, cfg),
				Cfg:     cfg,
				File:    filepath.Base(path),
				Line:    pos.Line,
				Column:  pos.Column,
				Missing: st.missing,
			}

			if hoists := es.Hoists(); len(hoists) > 0 {
				edits = append(edits, edit{
					start: offset(st.anchor.Pos()),
					end:   offset(st.anchor.Pos()),
					text:  strings.Join(hoists, "\n") + "\n",
				})
			}

			// Hoisted arguments get their temporaries spliced in. An
			// argument sitting inside a wrapped expression, the direct
			// return shape, is spliced into the wrap text instead so the
			// edits never overlap.
			for _, p := range es.Plans {
				if p.Temp == "" || inside(p.Arg.Expr, st.errExprs, offset) {
					continue
				}
				edits = append(edits, edit{
					start: offset(p.Arg.Expr.Pos()),
					end:   offset(p.Arg.Expr.End()),
					text:  p.Temp,
				})
			}
			for _, errExpr := range st.errExprs {
				edits = append(edits, edit{
					start: offset(errExpr.Pos()),
					end:   offset(errExpr.End()),
					text:  es.Wrap(splicedText(src, errExpr, es.Plans, offset)),
				})
			}

			reports = append(reports, SiteReport{
				Pos:   pos.String(),
				Chain: describeChain(ch),
			})
		}
	}

	result := &FileResult{
		Path:      path,
		Original:  src,
		Rewritten: src,
		Sites:     reports,
	}
	if len(edits) == 0 {
		return result, nil
	}

	rewritten, err := applyEdits(src, edits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rewritten, err = ensureImport(rewritten, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	result.Rewritten = rewritten
	return result, nil
}

// inside reports whether expr's byte range is covered by one of the hosts.
func inside(expr ast.Expr, hosts []ast.Expr, offset func(token.Pos) int) bool {
	s, e := offset(expr.Pos()), offset(expr.End())
	for _, h := range hosts {
		if s >= offset(h.Pos()) && e <= offset(h.End()) {
			return true
		}
	}
	return false
}

// splicedText renders host's source text with hoisted argument
// subexpressions replaced by their temporaries.
func splicedText(src []byte, host ast.Expr, plans []capture.Plan, offset func(token.Pos) int) string {
	start, end := offset(host.Pos()), offset(host.End())

	var local []edit
	for _, p := range plans {
		if p.Temp == "" {
			continue
		}
		as, ae := offset(p.Arg.Expr.Pos()), offset(p.Arg.Expr.End())
		if as >= start && ae <= end {
			local = append(local, edit{start: as - start, end: ae - start, text: p.Temp})
		}
	}

	text := string(src[start:end])
	if len(local) == 0 {
		return text
	}

	sort.Slice(local, func(i, j int) bool { return local[i].start > local[j].start })
	for _, e := range local {
		text = text[:e.start] + e.text + text[e.end:]
	}
	return text
}

func applyEdits(src []byte, edits []edit) ([]byte, error) {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start > edits[j].start })

	out := append([]byte(nil), src...)
	prev := len(out) + 1
	for _, e := range edits {
		if e.end > prev {
			return nil, fmt.Errorf("conflicting rewrite edits at offset %d", e.start)
		}
		prev = e.start

		var buf bytes.Buffer
		buf.Write(out[:e.start])
		buf.WriteString(e.text)
		buf.Write(out[e.end:])
		out = buf.Bytes()
	}

	return format.Source(out)
}

// ensureImport adds the runtime import to a rewritten file that lacks it.
func ensureImport(src []byte, path string) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("reparse rewritten source: %w", err)
	}

	if !astutil.AddImport(fset, file, emit.RuntimePath) {
		return src, nil
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("render rewritten source: %w", err)
	}
	return buf.Bytes(), nil
}

func describeChain(ch *chain.Chain) string {
	var sb strings.Builder
	switch ch.Receiver.Kind {
	case chain.KindIdent:
		sb.WriteString(ch.Receiver.Name)
	case chain.KindCall:
		sb.WriteString(ch.Receiver.Name)
		sb.WriteString("(...)")
	default:
		sb.WriteString("$0")
	}
	for _, st := range ch.Steps {
		sb.WriteByte('.')
		sb.WriteString(st.Name)
		sb.WriteString("()")
	}
	return sb.String()
}
