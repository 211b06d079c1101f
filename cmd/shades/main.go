package main

import (
	"os"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := newRootCmd()
	root.Version = version + " (" + commit + ")"
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
