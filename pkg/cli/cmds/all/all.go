// Package all registers every command set in the shell.
package all

import (
	_ "github.com/robotalks/neuron.go/pkg/cli/cmds/wireless"
)
