// Command oofcheck runs the instrumentation completeness check as a
// standalone vet-style tool.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/sirkon/oof/analyzer"
)

func main() {
	singlechecker.Main(analyzer.Analyzer)
}
