package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/golang/glog"

	env "github.com/robotalks/neuron.go/pkg/env/daemon"
	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/upgrade"
)

// exitBootloader tells the wrapper script to start flashing.
const exitBootloader = 3

var version = "v0.0.0"

func init() {
	env.SetVersion(version)
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.NewConfig().MustNewEnv()
	defer e.Close()
	glog.Infof("neurond %s: %s", version, e.Summary())

	runner := fx.NewRunner().HandleSignals()
	err := fx.Supervise(runner.Context, func(ctx context.Context) error {
		n, err := e.NewNode()
		if err != nil {
			return err
		}
		err = n.Run(ctx)
		if errors.Is(err, upgrade.ErrBootloader) {
			return upgrade.ErrBootloader
		}
		return err
	})
	switch {
	case errors.Is(err, upgrade.ErrBootloader):
		glog.Info("leaving for the bootloader")
		glog.Flush()
		os.Exit(exitBootloader)
	case err != nil && !errors.Is(err, context.Canceled):
		glog.Exitln(err)
	}
}
