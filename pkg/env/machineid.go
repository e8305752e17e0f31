// Package env holds what the daemon and the client share to locate a
// board.
package env

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves the unique ID identifying the machine. It's the
// default node ID, so boards on one broker stay apart.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		panic(err)
	}
	return id
}
