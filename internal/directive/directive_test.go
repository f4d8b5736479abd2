package directive

import (
	"go/ast"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func commentGroup(lines ...string) *ast.CommentGroup {
	cg := &ast.CommentGroup{}
	for _, l := range lines {
		cg.List = append(cg.List, &ast.Comment{Text: l})
	}
	return cg
}

func TestParseComment(t *testing.T) {
	opts, found, err := ParseComment(commentGroup(
		"// regular documentation line",
		"//oof:tag=errclass.Retryable debug=full",
		"//oof:debug_skip=password debug_with=creds:redactCreds",
	))
	require.NoError(t, err)
	require.True(t, found)

	require.Nil(t, opts.Skip)
	require.NotNil(t, opts.Debug)
	require.Equal(t, PolicyFull, *opts.Debug)
	require.Equal(t, []string{"errclass.Retryable"}, opts.Tags)
	require.Equal(t, []string{"password"}, opts.DebugSkip)
	require.Equal(t, []Rewriter{{Expr: "creds", With: "redactCreds"}}, opts.DebugWith)
}

func TestParseCommentBooleans(t *testing.T) {
	opts, found, err := ParseComment(commentGroup("//oof:skip closures=false goroutines"))
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, *opts.Skip)
	require.False(t, *opts.Closures)
	require.True(t, *opts.Goroutines)
}

func TestParseCommentErrors(t *testing.T) {
	for _, line := range []string{
		"//oof:nonsense",
		"//oof:debug=verbose",
		"//oof:tag",
		"//oof:debug_with=missingcolon",
		"//oof:skip=maybe",
	} {
		_, found, err := ParseComment(commentGroup(line))
		require.True(t, found, line)
		require.Error(t, err, line)
	}
}

func TestParseCommentAbsent(t *testing.T) {
	_, found, err := ParseComment(commentGroup("// nothing to see"))
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = ParseComment(nil)
	require.NoError(t, err)
	require.False(t, found)
}

func TestMergeScalarInnermostWins(t *testing.T) {
	yes, no := true, false
	full := PolicyFull

	pkg := Options{Skip: &yes, Debug: &full, Tags: []string{"a"}}
	fn := Options{Skip: &no, Tags: []string{"b"}}
	site := Options{Tags: []string{"c"}}

	r := Merge(pkg, fn, site)
	require.False(t, r.Skip, "function level overrides package level")
	require.Equal(t, PolicyFull, r.Debug, "unset inner levels keep outer scalars")
	require.Equal(t, []string{"a", "b", "c"}, r.Tags, "lists accumulate outermost first")
}

func TestMergeDefaults(t *testing.T) {
	r := Merge()
	require.False(t, r.Skip)
	require.False(t, r.Closures)
	require.False(t, r.Goroutines)
	require.Equal(t, PolicyBasic, r.Debug)
}

func TestFormatterPrecedence(t *testing.T) {
	r := Resolved{
		DebugSkip: []string{"creds", "token"},
		DebugWith: []Rewriter{{Expr: "creds", With: "redactCreds"}},
	}

	with, skip := r.Formatter("creds")
	require.Equal(t, "redactCreds", with, "a formatter binding beats a skip entry")
	require.False(t, skip)

	with, skip = r.Formatter("token")
	require.Empty(t, with)
	require.True(t, skip)

	with, skip = r.Formatter("other")
	require.Empty(t, with)
	require.False(t, skip)
}

func TestYAMLConfig(t *testing.T) {
	const raw = `
debug: full
closures: true
tags:
  - errclass.Persistent
debug_with:
  - secret:redactSecret
`
	var opts Options
	require.NoError(t, yaml.Unmarshal([]byte(raw), &opts))
	require.Equal(t, PolicyFull, *opts.Debug)
	require.True(t, *opts.Closures)
	require.Equal(t, []string{"errclass.Persistent"}, opts.Tags)
	require.Equal(t, []Rewriter{{Expr: "secret", With: "redactSecret"}}, opts.DebugWith)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	opts, found, err := LoadDir(dir)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("debug: off\n"), 0o644))
	opts, found, err = LoadDir(dir)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, PolicyOff, *opts.Debug)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(":\tbroken"), 0o644))
	_, _, err = LoadDir(dir)
	require.Error(t, err)
}
