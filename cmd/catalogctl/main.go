// Command catalogctl inspects a catalog fixture offline: the attribute
// dictionary, display groups, facet menu, typo suggestions and a scripted
// wizard run. It also seeds a database and mints owner tokens for local use.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
