package main

import (
	"github.com/cowwoc/buildforge/pkg/cli"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

func main() {
	cmd, err := cli.NewRootCommand()
	if err != nil {
		console.Fatalf("%s", err)
	}

	if err = cmd.Execute(); err != nil {
		console.Fatalf("%s", err)
	}
}
