// Command oofgen rewrites fallible call sites so their failures come back
// as structured errors describing the exact chain that failed.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/sirkon/oof/internal/instrument"
)

const version = "0.3.1"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oofgen:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "oofgen",
		Short:         "failure chain instrumentation for Go sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(rewriteCmd(), listCmd(), versionCmd())
	return root
}

func rewriteCmd() *cobra.Command {
	var (
		write    bool
		showDiff bool
		dir      string
	)

	cmd := &cobra.Command{
		Use:   "rewrite [packages]",
		Short: "instrument the opted-in call sites of the given packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"./..."}
			}

			results, err := instrument.Run(instrument.Options{
				Patterns: args,
				Dir:      dir,
				Write:    write,
			})
			if err != nil {
				return err
			}

			changed := 0
			for _, r := range results {
				if !r.Changed() {
					continue
				}
				changed++

				switch {
				case showDiff:
					if err := printDiff(cmd, &r); err != nil {
						return err
					}
				case write:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d site(s) instrumented\n", r.Path, len(r.Sites))
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s would change, %d site(s); use -w to write\n", r.Path, len(r.Sites))
				}
			}

			if changed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to instrument")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write rewritten files in place")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print unified diffs instead of writing")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to resolve package patterns from")

	return cmd
}

func listCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list [packages]",
		Short: "list the call sites the rewrite would instrument",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"./..."}
			}

			results, err := instrument.Run(instrument.Options{
				Patterns: args,
				Dir:      dir,
			})
			if err != nil {
				return err
			}

			total := 0
			for _, r := range results {
				for _, s := range r.Sites {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Pos, s.Chain)
					total++
				}
			}
			if total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no instrumentable sites found")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to resolve package patterns from")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the oofgen version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "oofgen", version)
		},
	}
}

func printDiff(cmd *cobra.Command, r *instrument.FileResult) error {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(r.Original)),
		B:        difflib.SplitLines(string(r.Rewritten)),
		FromFile: r.Path,
		ToFile:   r.Path + " (instrumented)",
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diff %s: %w", r.Path, err)
	}

	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	head := color.New(color.Bold)

	out := cmd.OutOrStdout()
	for _, line := range difflib.SplitLines(text) {
		switch {
		case len(line) > 2 && (line[:3] == "+++" || line[:3] == "---"):
			head.Fprint(out, line)
		case len(line) > 0 && line[0] == '+':
			add.Fprint(out, line)
		case len(line) > 0 && line[0] == '-':
			del.Fprint(out, line)
		default:
			fmt.Fprint(out, line)
		}
	}
	return nil
}
