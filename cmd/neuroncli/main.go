package main

import (
	"github.com/robotalks/neuron.go/pkg/cli/sh"
	env "github.com/robotalks/neuron.go/pkg/env/client"

	_ "github.com/robotalks/neuron.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
