package main

import (
	"os"

	"github.com/oolong-lang/oolong/pkg/cli"
)

func main() {
	os.Exit(cli.Entry(os.Args[1:]))
}
