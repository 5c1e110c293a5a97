// Command nestctl drives nestable registries from the command line: it
// replays the gallery walkthrough, serves the query API, and builds signed
// checkpoints and snapshot archives.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
