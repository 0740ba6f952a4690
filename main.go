package main

import (
	"os"

	"github.com/korima-app/korima/cmd"
)

// Set with -ldflags "-X main.version=..." at release time.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	os.Exit(cmd.Execute())
}
