// Package wireless exposes the wireless subsystem commands in the shell.
package wireless

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/neuron.go/pkg/cli/sh"
	"github.com/robotalks/neuron.go/pkg/msgs"
	"github.com/robotalks/neuron.go/pkg/telemetry"
)

var (
	// BatteryCmd shows both sides.
	BatteryCmd = ishell.Cmd{
		Name:    "battery",
		Aliases: []string{"bat"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			for _, side := range []string{"left", "right"} {
				level, err := s.Conn.Do("wireless.battery." + side + ".level")
				if err != nil {
					c.Err(err)
					return
				}
				status, err := s.Conn.Do("wireless.battery." + side + ".status")
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("%-5s %s%% status %s\n", side, first(level), first(status))
			}
		}),
	}

	// SavingModeCmd reads or writes the battery saving mode.
	SavingModeCmd = ishell.Cmd{
		Name:    "battery.saving",
		Aliases: []string{"bs"},
		Help:    "[MODE]",
		Func:    sh.FocusFunc("wireless.battery.savingMode"),
	}

	// RFPowerCmd reads or writes the RF transmit power.
	RFPowerCmd = ishell.Cmd{
		Name:    "rf.power",
		Aliases: []string{"rp"},
		Help:    "[0(low)|1(medium)|2(high)]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) > 0 {
				if _, err := strconv.ParseUint(c.Args[0], 0, 8); err != nil {
					c.Err(fmt.Errorf("Invalid POWER: %v", err))
					return
				}
			}
			sh.DoCommand(c, "wireless.rf.power", c.Args...)
		}),
	}

	// RFSyncCmd restarts RF pairing.
	RFSyncCmd = ishell.Cmd{
		Name: "rf.sync",
		Help: "",
		Func: sh.FocusFunc("wireless.rf.syncPairing"),
	}

	// BleDevicesCmd lists the channels.
	BleDevicesCmd = ishell.Cmd{
		Name:    "ble.devices",
		Aliases: []string{"bd"},
		Help:    "",
		Func:    sh.FocusFunc("wireless.bluetooth.devicesMap"),
	}

	// BleNameCmd reads or writes the advertised name.
	BleNameCmd = ishell.Cmd{
		Name:    "ble.name",
		Aliases: []string{"bn"},
		Help:    "[NAME]",
		Func:    sh.FocusFunc("wireless.bluetooth.deviceName"),
	}

	// BleChannelCmd shows the current channel.
	BleChannelCmd = ishell.Cmd{
		Name: "ble.channel",
		Help: "",
		Func: sh.FocusFunc("wireless.bluetooth.channel"),
	}

	// BleForceCmd reads or writes the force BLE flag.
	BleForceCmd = ishell.Cmd{
		Name: "ble.force",
		Help: "[0|1]",
		Func: sh.FocusFunc("wireless.bluetooth.forceBle"),
	}

	// EnergyCmd shows the energy modes.
	EnergyCmd = ishell.Cmd{
		Name:    "energy",
		Aliases: []string{"en"},
		Help:    "[MODE]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				sh.DoCommand(c, "wireless.energy.modes")
			}
			sh.DoCommand(c, "wireless.energy.currentMode", c.Args...)
		}),
	}

	// UpgradeSideCmd resets a side into its bootloader.
	UpgradeSideCmd = ishell.Cmd{
		Name: "upgrade.side",
		Help: "begin|finish left|right",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("STEP and SIDE required"))
				return
			}
			switch c.Args[0] {
			case "begin", "finish":
			default:
				c.Err(fmt.Errorf("Invalid STEP: %q", c.Args[0]))
				return
			}
			if lines, err := sh.DoCommand(c, "upgrade.keyscanner.isConnected", c.Args[1]); err != nil || first(lines) != "1" {
				c.Err(fmt.Errorf("%s side not connected", c.Args[1]))
				return
			}
			sh.DoCommand(c, "upgrade.keyscanner."+c.Args[0], c.Args[1])
		}),
	}

	// UpgradeNeuronCmd reboots the board into its bootloader.
	UpgradeNeuronCmd = ishell.Cmd{
		Name: "upgrade.neuron",
		Help: "",
		Func: sh.FocusFunc("upgrade.neuron"),
	}

	// WatchCmd prints telemetry from the broker.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			count := 1
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val <= 0 {
					c.Err(fmt.Errorf("Invalid COUNT: %q", c.Args[0]))
					return
				}
				count = val
			}
			q, err := s.Config.ConnectQueue(5 * time.Second)
			if err != nil {
				c.Err(err)
				return
			}
			defer q.Close()
			statusCh := make(chan *msgs.Status, count)
			sub := telemetry.Watch(q, s.Config.NodeID, func(st *msgs.Status) {
				select {
				case statusCh <- st:
				default:
				}
			})
			defer sub.Close()
			for ; count > 0; count-- {
				st := <-statusCh
				if s.OutputJSON {
					out, err := json.Marshal(&st.PbNeuronStatus)
					if err != nil {
						c.Err(err)
						return
					}
					c.Println(string(out))
					continue
				}
				c.Println(FormatStatus(st))
			}
		},
	}
)

func first(lines []string) string {
	if len(lines) == 0 {
		return "-"
	}
	return lines[0]
}

// FormatStatus prints a Status into friendly string for display.
func FormatStatus(st *msgs.Status) string {
	side := func(s *msgs.PbSideStatus) string {
		if s == nil || !s.Connected {
			return "-"
		}
		return fmt.Sprintf("%d%%/%d", s.BatteryLevel, s.BatteryStatus)
	}
	ble := "-"
	if b := st.Ble; b != nil {
		ble = fmt.Sprintf("ch%d paired=%05b adv=%v conn=%v", b.Channel, b.PairedChannels, b.Advertising, b.Connected)
	}
	return fmt.Sprintf("%s %s left=%s right=%s saving=%d rf=%d ble[%s]",
		time.Unix(0, st.Timestamp*int64(time.Millisecond)).Format(time.RFC3339),
		st.NodeId, side(st.Left), side(st.Right), st.SavingMode, st.RfPower, ble)
}

func init() {
	sh.AddCmds(
		&BatteryCmd,
		&SavingModeCmd,
		&RFPowerCmd,
		&RFSyncCmd,
		&BleDevicesCmd,
		&BleNameCmd,
		&BleChannelCmd,
		&BleForceCmd,
		&EnergyCmd,
		&UpgradeSideCmd,
		&UpgradeNeuronCmd,
		&WatchCmd,
	)
}
