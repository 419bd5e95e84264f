// Command gamalta is a one-shot CLI for the light: it connects, runs a single
// operation, and disconnects. The long-running daemon lives in gamaltad.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yummydirtx/open-gamalta/internal/ble"
	"github.com/yummydirtx/open-gamalta/internal/device"
	"github.com/yummydirtx/open-gamalta/internal/protocol"
	"github.com/yummydirtx/open-gamalta/internal/scene"
)

const usage = `usage: gamalta [flags] <command> [args]

commands:
  scan                        list nearby lights
  state                       print the current device state
  on | off                    switch the light on or off
  color <r> <g> <b>           set a manual RGB color
  brightness <percent>        set the master brightness
  mode <id|name>              switch mode (manual, sunsync, coralreef, fishblue, waterweed)
  lightning                   trigger a lightning preview flash
  name <name>                 set the device display name

flags:
`

func main() {
	address := flag.String("address", "", "device address (scans by name when empty)")
	nameFilter := flag.String("name", "Gamalta", "device name filter used while scanning")
	timeout := flag.Duration("timeout", 10*time.Second, "scan/connect timeout")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := log.WarnLevel
	if *verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, logger, *address, *nameFilter, *timeout, flag.Args()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger, address, nameFilter string, timeout time.Duration, args []string) error {
	transport := ble.NewBluetoothTransport(logger)

	command := args[0]
	if command == "scan" {
		devices, err := transport.Scan(ctx, timeout)
		if err != nil {
			return err
		}
		for _, d := range ble.FilterByName(devices, nameFilter) {
			fmt.Printf("%s  %s  (rssi %d)\n", d.Address, d.Name, d.RSSI)
		}
		return nil
	}

	if address == "" {
		found, err := ble.FindDevice(ctx, transport, nameFilter, timeout)
		if err != nil {
			return err
		}
		address = found.Address
		logger.Info("Found device", "name", found.Name, "address", address)
	}

	registry := scene.NewRegistry(logger)
	registry.Seed(scene.Builtins()...)

	session := device.NewSession(logger, transport, registry, device.DefaultOptions())
	if err := session.Connect(ctx, address); err != nil {
		return err
	}
	defer session.Disconnect()

	switch command {
	case "state":
		state, err := session.QueryState(ctx)
		if err != nil {
			return err
		}
		printState(state)
		return nil

	case "on":
		return session.SetPower(true)

	case "off":
		return session.SetPower(false)

	case "color":
		if len(args) != 4 {
			return fmt.Errorf("color needs <r> <g> <b>")
		}
		r, g, b, err := parseRGB(args[1:4])
		if err != nil {
			return err
		}
		color, err := protocol.RGB(r, g, b)
		if err != nil {
			return err
		}
		return session.SetColor(color)

	case "brightness":
		if len(args) != 2 {
			return fmt.Errorf("brightness needs <percent>")
		}
		percent, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("parsing percent: %w", err)
		}
		return session.SetBrightness(percent)

	case "mode":
		if len(args) != 2 {
			return fmt.Errorf("mode needs <id|name>")
		}
		mode, err := parseMode(args[1])
		if err != nil {
			return err
		}
		return session.SetMode(ctx, mode)

	case "lightning":
		return session.PreviewLightning()

	case "name":
		if len(args) != 2 {
			return fmt.Errorf("name needs <name>")
		}
		return session.SetName(args[1])
	}

	return fmt.Errorf("unknown command %q", command)
}

func parseRGB(args []string) (r, g, b int, err error) {
	values := make([]int, 3)
	for i, a := range args {
		values[i], err = strconv.Atoi(a)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("parsing channel value %q: %w", a, err)
		}
	}
	return values[0], values[1], values[2], nil
}

func parseMode(arg string) (protocol.Mode, error) {
	named := map[string]protocol.Mode{
		"manual":    protocol.ModeManual,
		"sunsync":   protocol.ModeSunSync,
		"coralreef": protocol.ModeCoralReef,
		"fishblue":  protocol.ModeFishBlue,
		"waterweed": protocol.ModeWaterweed,
	}
	if mode, ok := named[arg]; ok {
		return mode, nil
	}
	value, err := strconv.Atoi(arg)
	if err != nil || !protocol.Mode(value).Valid() {
		return 0, fmt.Errorf("unknown mode %q", arg)
	}
	return protocol.Mode(value), nil
}

func printState(state protocol.DeviceState) {
	power := "off"
	if state.Power {
		power = "on"
	}
	fmt.Printf("power:      %s\n", power)
	fmt.Printf("mode:       %s\n", state.Mode)
	fmt.Printf("brightness: %d%%\n", state.Brightness)
	fmt.Printf("color:      r=%d g=%d b=%d coolWhite=%d warmWhite=%d\n",
		state.Color.R, state.Color.G, state.Color.B, state.Color.CoolWhite, state.Color.WarmWhite)
}
