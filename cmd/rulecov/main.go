package main

import (
	"os"

	"github.com/rulecov/rulecov/internal/cli"
)

func main() {
	code := cli.Run(os.Args, os.Stdout, os.Stderr, cli.BuildService(os.Stdout, os.Stderr))
	os.Exit(code)
}
