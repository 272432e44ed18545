// Command dah repeatedly inspects a git working copy and applies the
// single next operation (stage, commit, rename/switch, rebase, push)
// until the repository reaches a terminal state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cobwebtools/dah/internal/dahengine"
	"github.com/cobwebtools/dah/internal/gitfacade"
	"github.com/cobwebtools/dah/internal/logging"
)

var log = logging.New("dah")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dah", flag.ContinueOnError)
	step := fs.Bool("step", false, "apply a single action and stop")
	limit := fs.Int("limit", 50, "reflog scan limit for the rebase-skip optimization")
	cooperative := fs.Bool("cooperative", false, "always rebase before pushing and never force-push")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dah:", err)
		return 1
	}

	facade, err := gitfacade.Open(wd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dah:", err)
		return 1
	}

	protected := dahengine.ProtectedSet(facade.DefaultBranch(), facade.ProtectedPatterns())
	if err := dahengine.ValidateProtectedPatterns(protected); err != nil {
		fmt.Fprintln(os.Stderr, "dah:", err)
		return 1
	}

	opts := dahengine.Options{
		Protected:    protected,
		BranchPrefix: facade.BranchPrefix(),
		ReflogLimit:  *limit,
		Cooperative:  *cooperative,
	}

	outcomes, err := dahengine.Run(context.Background(), facade, opts, *step)
	for _, o := range outcomes {
		log.Infof("%s%s", o.Action, detailSuffix(o.Detail))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "dah:", err)
		return 1
	}
	return 0
}

func detailSuffix(detail string) string {
	if detail == "" {
		return ""
	}
	return ": " + detail
}
