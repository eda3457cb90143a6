package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bandmate/bandmate/internal/band"
	bandcrypto "github.com/bandmate/bandmate/internal/band/crypto"
	"github.com/bandmate/bandmate/internal/band/protocol"
	"github.com/bandmate/bandmate/internal/bluez"
	"github.com/bandmate/bandmate/internal/config"
	"github.com/bandmate/bandmate/internal/mpris"
	"github.com/bandmate/bandmate/internal/notify"
	"github.com/bandmate/bandmate/internal/store"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/bandmate/config.yaml)")
	device := flag.String("device", "", "band MAC address (overrides config; empty discovers)")
	authKey := flag.String("auth-key", "", "32-hex-char auth key, saved to the store for this band")
	flag.Parse()

	// Load configuration
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

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))
	printBanner(cfg)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	session, err := bluez.NewSession(cfg.Adapter)
	if err != nil {
		log.Fatalf("bluetooth: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path, address, err := findBand(ctx, session, cfg)
	if err != nil {
		log.Fatalf("Failed to locate band: %v", err)
	}
	slog.Info("[bandmate] band located", "address", address, "alias", st.Alias(address))

	conf := st.Band(address)
	if *authKey != "" {
		conf.AuthKey = *authKey
		if err := st.Save(); err != nil {
			log.Fatalf("store: %v", err)
		}
	}

	client := band.NewClient(session.Device(path), address)
	if err := setup(ctx, client, conf); err != nil {
		log.Fatalf("Failed to set up band: %v", err)
	}

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	buttons, stopButtons, err := client.StreamButtonEvents(ctx)
	if err != nil {
		log.Fatalf("Failed to watch band buttons: %v", err)
	}
	defer stopButtons()

	var notifications <-chan notify.Notification
	if cfg.Notifications.Enabled {
		notifications, err = notify.Stream(ctx)
		if err != nil {
			log.Printf("WARN: notification forwarding unavailable: %v", err)
		}
	}

	var player *mpris.Controller
	var media <-chan *protocol.MediaInfo
	if cfg.Media.Enabled {
		player, err = mpris.NewController()
		if err != nil {
			log.Printf("WARN: media bridging unavailable: %v", err)
		} else {
			media, err = player.Changes(ctx)
			if err != nil {
				log.Printf("WARN: media change watching unavailable: %v", err)
			}
		}
	}

	log.Printf("Ready! Bridging band %s. Ctrl+C to quit.", st.Alias(address))

	// Main event loop
	for {
		select {
		case ev, ok := <-buttons:
			if !ok {
				log.Println("Band button stream ended")
				disconnect(client)
				return
			}
			handleButton(ctx, ev, client, player, cfg.Media.VolumeStep)

		case n, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			slog.Debug("[bandmate] forwarding notification", "app", n.App)
			alert := protocol.Alert{
				Type:    protocol.AlertMessage,
				Title:   n.Summary,
				Message: n.Body,
			}
			if err := client.SendAlert(ctx, alert); err != nil {
				log.Printf("ERROR: failed to forward notification: %v", err)
			}

		case info, ok := <-media:
			if !ok {
				media = nil
				continue
			}
			if err := client.SetMediaInfo(ctx, info); err != nil {
				log.Printf("ERROR: failed to push media info: %v", err)
			}

		case sig := <-sigCh:
			log.Printf("Received %s, shutting down...", sig)
			disconnect(client)
			log.Println("Goodbye!")
			return
		}
	}
}

// setup connects, authenticates when a key is stored, and pushes the clock
// plus any stored goal and lock settings.
func setup(ctx context.Context, client *band.Client, conf *store.BandConf) error {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := client.Initialize(initCtx); err != nil {
		return err
	}

	if conf.AuthKey == "" {
		log.Println("No auth key stored; running unauthenticated (read-only operations)")
		return nil
	}
	key, err := bandcrypto.DecodeKey(conf.AuthKey)
	if err != nil {
		return fmt.Errorf("stored auth key: %w", err)
	}
	if err := client.Authenticate(initCtx, key); err != nil {
		return err
	}
	log.Println("Authenticated")

	if err := client.SetBandTime(initCtx, time.Now()); err != nil {
		log.Printf("WARN: failed to sync clock: %v", err)
	}
	if conf.ActivityGoal != nil {
		if err := client.SetActivityGoal(initCtx, *conf.ActivityGoal); err != nil {
			log.Printf("WARN: failed to apply activity goal: %v", err)
		}
	}
	if conf.BandLock != nil {
		if err := client.SetBandLock(initCtx, *conf.BandLock); err != nil {
			log.Printf("WARN: failed to apply band lock: %v", err)
		}
	}
	return nil
}

// handleButton maps a band button press onto the media player.
func handleButton(ctx context.Context, ev protocol.MusicEvent, client *band.Client, player *mpris.Controller, volumeStep float64) {
	slog.Debug("[bandmate] band button", "event", ev.String())
	if player == nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	switch ev {
	case protocol.MusicOpen:
		// The band just opened its media screen; send it the current state.
		var info *protocol.MediaInfo
		if info, err = player.Snapshot(opCtx); err == nil {
			err = client.SetMediaInfo(opCtx, info)
		}
	case protocol.MusicClose:
		// Nothing to do; the band dismissed its media screen.
	case protocol.MusicPlayPause:
		err = player.PlayPause(opCtx)
	case protocol.MusicNext:
		err = player.Next(opCtx)
	case protocol.MusicPrevious:
		err = player.Previous(opCtx)
	case protocol.MusicVolumeUp:
		err = player.AdjustVolume(opCtx, volumeStep)
	case protocol.MusicVolumeDown:
		err = player.AdjustVolume(opCtx, -volumeStep)
	}
	if err != nil {
		log.Printf("ERROR: media control %s failed: %v", ev, err)
	}
}

// findBand resolves the band's bus path: an exact MAC match among known
// devices when configured, otherwise a discovery scan picking the first band
// seen.
func findBand(ctx context.Context, session *bluez.Session, cfg *config.Config) (dbus.ObjectPath, string, error) {
	if cfg.Device != "" {
		devices, err := session.Devices()
		if err != nil {
			return "", "", err
		}
		for _, dev := range devices {
			if strings.EqualFold(dev.Address, cfg.Device) {
				return dev.Path, dev.Address, nil
			}
		}
	}

	log.Printf("Scanning for bands (%s)...", cfg.DiscoveryWindow)
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	found, err := band.Discover(scanCtx, session, cfg.DiscoveryWindow.Duration)
	if err != nil {
		return "", "", err
	}
	for path, address := range found {
		if cfg.Device == "" || strings.EqualFold(address, cfg.Device) {
			return path, address, nil
		}
	}
	if cfg.Device != "" {
		return "", "", fmt.Errorf("device %s not found", cfg.Device)
	}
	return "", "", fmt.Errorf("no band found")
}

func disconnect(client *band.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Printf("WARN: disconnect: %v", err)
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	device := cfg.Device
	if device == "" {
		device = "(discover)"
	}
	fmt.Println("=== bandmate ===")
	fmt.Printf("  Adapter: %s\n", cfg.Adapter)
	fmt.Printf("  Device:  %s\n", device)
	fmt.Printf("  Data:    %s\n", cfg.DataDir)
	fmt.Printf("  Media:   %t\n", cfg.Media.Enabled)
	fmt.Printf("  Notify:  %t\n", cfg.Notifications.Enabled)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("================")
}
