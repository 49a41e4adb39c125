package main

import (
	"os"

	"github.com/danmuck/layer23/internal/app/builtin"
	"github.com/danmuck/layer23/internal/host"
)

func main() {
	os.Exit(host.Main(os.Args, os.Stdout, os.Stderr, builtin.Catalog(), host.Options{}))
}
