// Command whose resolves CODEOWNERS ownership for a set of pathspecs.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cobwebtools/dah/internal/gitfacade"
	"github.com/cobwebtools/dah/internal/whosedriver"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("whose", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pathspecs := fs.Args()
	if len(pathspecs) == 0 {
		pathspecs = []string{""}
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "whose:", err)
		return 1
	}
	facade, err := gitfacade.Open(wd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "whose:", err)
		return 1
	}

	results, err := whosedriver.Resolve(facade, pathspecs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "whose:", err)
		return 1
	}

	for _, r := range results {
		fmt.Printf("%s\t%s\n", r.Path, strings.Join(r.Owners, " "))
	}
	return 0
}
