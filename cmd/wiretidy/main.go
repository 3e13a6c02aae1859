package main

import (
	"fmt"
	"os"

	"github.com/wiretidy/wiretidy/internal/cli"
	"github.com/wiretidy/wiretidy/pkg/buildinfo"
)

func main() {
	cli.SetVersion(buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
