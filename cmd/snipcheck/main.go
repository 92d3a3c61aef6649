// Command snipcheck runs lesson snippets and verifies their output.
package main

import (
	"context"
	"os"

	"github.com/roach88/snipcheck/internal/cli"
)

func main() {
	os.Exit(cli.Main(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
