// Command bandctl runs one-shot operations against a band: discovery,
// status queries, and pushing settings. It shares the daemon's config file
// and data store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bandmate/bandmate/internal/band"
	bandcrypto "github.com/bandmate/bandmate/internal/band/crypto"
	"github.com/bandmate/bandmate/internal/band/protocol"
	"github.com/bandmate/bandmate/internal/bluez"
	"github.com/bandmate/bandmate/internal/config"
	"github.com/bandmate/bandmate/internal/store"
)

const usage = `usage: bandctl [-config path] [-device mac] <command> [args]

commands:
  discover                     scan for bands
  status                       battery, clock, firmware, and today's activity
  set-time                     sync the band clock to this machine
  set-goal <steps> [on|off]    set the daily step goal and its notification
  set-lock <pin> [on|off]      set the screen-lock PIN (digits 1-4)
  alert <title> [message]      show a message on the band
  set-key <hex>                store the 32-hex-char auth key for this band
`

func main() {
	configPath := flag.String("config", "", "path to config file")
	device := flag.String("device", "", "band MAC address (overrides config)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *device != "" {
		cfg.Device = *device
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := args[0], args[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := run(ctx, cfg, command, args); err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	session, err := bluez.NewSession(cfg.Adapter)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}

	// Commands that never talk to the band.
	switch command {
	case "discover":
		return discover(ctx, session, st, cfg.DiscoveryWindow.Duration)
	case "set-key":
		if cfg.Device == "" {
			return fmt.Errorf("no device configured; pass -device")
		}
		return setKey(st, st.Band(cfg.Device), args)
	}

	// Only the authenticated writes hard-require a stored key; the rest
	// still authenticate opportunistically when one is present.
	needAuth := command == "set-time" || command == "set-goal"
	client, conf, err := connect(ctx, session, st, cfg, needAuth)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	switch command {
	case "status":
		return status(ctx, client)
	case "set-time":
		return client.SetBandTime(ctx, time.Now())
	case "set-goal":
		return setGoal(ctx, client, st, conf, args)
	case "set-lock":
		return setLock(ctx, client, st, conf, args)
	case "alert":
		return alert(ctx, client, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command")
	}
}

// connect locates the band, initializes the client, and authenticates when
// a key is stored. Commands that only read tolerate a missing key.
func connect(ctx context.Context, session *bluez.Session, st *store.Store, cfg *config.Config, needAuth bool) (*band.Client, *store.BandConf, error) {
	if cfg.Device == "" {
		return nil, nil, fmt.Errorf("no device configured; pass -device or run discover")
	}
	devices, err := session.Devices()
	if err != nil {
		return nil, nil, err
	}
	for _, dev := range devices {
		if !strings.EqualFold(dev.Address, cfg.Device) {
			continue
		}
		client := band.NewClient(session.Device(dev.Path), dev.Address)
		if err := client.Initialize(ctx); err != nil {
			return nil, nil, err
		}
		conf := st.Band(dev.Address)
		if conf.AuthKey == "" {
			if needAuth {
				return nil, nil, fmt.Errorf("no auth key stored for %s; run set-key first", dev.Address)
			}
			return client, conf, nil
		}
		key, err := bandcrypto.DecodeKey(conf.AuthKey)
		if err != nil {
			return nil, nil, fmt.Errorf("stored auth key: %w", err)
		}
		if err := client.Authenticate(ctx, key); err != nil {
			return nil, nil, err
		}
		return client, conf, nil
	}
	return nil, nil, fmt.Errorf("device %s not known to the adapter; run discover", cfg.Device)
}

func discover(ctx context.Context, session *bluez.Session, st *store.Store, window time.Duration) error {
	fmt.Printf("Scanning for %s...\n", window)
	found, err := band.Discover(ctx, session, window)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("No bands found.")
		return nil
	}
	for _, address := range found {
		fmt.Printf("  %s  %s\n", address, st.Alias(address))
	}
	return nil
}

func status(ctx context.Context, client *band.Client) error {
	battery, err := client.Battery(ctx)
	if err != nil {
		return err
	}
	charging := "no"
	if battery.Charging {
		charging = "yes"
	}
	fmt.Printf("Battery:    %d%% (charging: %s, last charge %s)\n",
		battery.Level, charging, battery.LastCharge.Format("2006-01-02 15:04"))

	clock, err := client.BandTime(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Band time:  %s\n", clock.Format("2006-01-02 15:04:05"))

	firmware, err := client.FirmwareRevision(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Firmware:   %s\n", firmware)

	if !client.Authenticated() {
		fmt.Println("Activity:   (requires auth key)")
		return nil
	}
	activity, err := client.CurrentActivity(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Activity:   %d steps, %dm (%s), %d kcal\n",
		activity.Steps, activity.Meters,
		protocol.MetersToImperial(activity.Meters), activity.Calories)
	return nil
}

func setGoal(ctx context.Context, client *band.Client, st *store.Store, conf *store.BandConf, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: set-goal <steps> [on|off]")
	}
	steps, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return fmt.Errorf("steps: %w", err)
	}
	goal := band.ActivityGoal{Steps: uint16(steps), Notifications: true}
	if len(args) > 1 {
		goal.Notifications, err = parseToggle(args[1])
		if err != nil {
			return err
		}
	}
	if err := client.SetActivityGoal(ctx, goal); err != nil {
		return err
	}
	conf.ActivityGoal = &goal
	return st.Save()
}

func setLock(ctx context.Context, client *band.Client, st *store.Store, conf *store.BandConf, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: set-lock <pin> [on|off]")
	}
	lock := band.Lock{PIN: args[0], Enabled: true}
	if len(args) > 1 {
		var err error
		lock.Enabled, err = parseToggle(args[1])
		if err != nil {
			return err
		}
	}
	if err := client.SetBandLock(ctx, lock); err != nil {
		return err
	}
	conf.BandLock = &lock
	return st.Save()
}

func alert(ctx context.Context, client *band.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: alert <title> [message]")
	}
	a := protocol.Alert{Type: protocol.AlertMessage, Title: args[0]}
	if len(args) > 1 {
		a.Message = strings.Join(args[1:], " ")
	}
	return client.SendAlert(ctx, a)
}

func setKey(st *store.Store, conf *store.BandConf, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: set-key <hex>")
	}
	if _, err := bandcrypto.DecodeKey(args[0]); err != nil {
		return err
	}
	conf.AuthKey = args[0]
	return st.Save()
}

func parseToggle(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		return config.Load(defaultPath)
	}
	return config.Default(), nil
}
