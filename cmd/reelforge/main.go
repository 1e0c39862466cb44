// Command reelforge is the CLI entry point: it resolves a catalog entry or
// accepts a direct M3U8 URL, downloads the stream, and assembles it into a
// playable media file.
package main

import (
	"fmt"
	"os"

	"github.com/reelforge/reelforge/cmd/reelforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
