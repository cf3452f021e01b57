package main

import (
	"context"
	"os"

	"github.com/opal-lang/nodeio/cli"
)

func main() {
	os.Exit(cli.Main(context.Background(), os.Args[1:]))
}
