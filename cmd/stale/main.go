// Command stale lists or deletes local branches filtered by prefix and
// by the age of their tip commit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cobwebtools/dah/internal/gitfacade"
	"github.com/cobwebtools/dah/internal/logging"
	"github.com/cobwebtools/dah/internal/period"
	"github.com/cobwebtools/dah/internal/staleselect"
)

var log = logging.New("stale")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("stale", flag.ContinueOnError)
	del := fs.Bool("delete", false, "delete each selected local branch")
	push := fs.Bool("push", false, "with --delete, delete matching remote branches instead of local ones")
	since := fs.String("since", "", "only select branches whose tip is older than this period")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	prefixes := fs.Args()

	var sincePeriod *period.Period
	if *since != "" {
		p, err := period.Parse(*since)
		if err != nil {
			fmt.Fprintln(os.Stderr, "stale:", err)
			return 1
		}
		sincePeriod = &p
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stale:", err)
		return 1
	}
	facade, err := gitfacade.Open(wd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stale:", err)
		return 1
	}

	candidates, err := staleselect.Select(facade, prefixes, sincePeriod, time.Now().UTC())
	if err != nil {
		fmt.Fprintln(os.Stderr, "stale:", err)
		return 1
	}

	if !*del {
		for _, c := range candidates {
			fmt.Println(c.ShortName)
		}
		return 0
	}

	ctx := context.Background()
	var result staleselect.DeleteResult
	if *push {
		result = staleselect.DeletePushedUpstreams(ctx, facade, candidates)
	} else {
		result = staleselect.DeleteLocal(ctx, facade, candidates)
	}

	for _, name := range result.Deleted {
		fmt.Println(name)
	}
	for _, f := range result.Failures {
		log.Errorf("%s: %v", f.ShortName, f.Err)
	}
	if !result.OK() {
		return 1
	}
	return 0
}
