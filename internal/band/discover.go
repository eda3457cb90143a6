package band

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bandmate/bandmate/internal/bluez"
)

// Discover scans for bands for the given window and returns path -> address
// for everything seen. Devices already known to the daemon are included.
// The daemon's discovery filter is advisory, so advertised services are
// checked here as well.
func Discover(ctx context.Context, session *bluez.Session, window time.Duration) (map[dbus.ObjectPath]string, error) {
	found := make(map[dbus.ObjectPath]string)

	devices, err := session.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.HasService(ServiceBand0) {
			found[dev.Path] = dev.Address
		}
	}

	eventCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := session.DeviceEvents(eventCtx)
	if err != nil {
		return nil, err
	}

	filter := bluez.DiscoveryFilter{
		UUIDs:     []string{ServiceBand0.String()},
		Transport: "le",
	}
	if err := session.SetDiscoveryFilter(ctx, filter); err != nil {
		return nil, err
	}
	if err := session.StartDiscovery(ctx); err != nil {
		return nil, err
	}
	// Stop with a fresh context so a cancelled scan still cleans up.
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = session.StopDiscovery(stopCtx)
	}()

	timer := time.NewTimer(window)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return found, ctx.Err()
		case <-timer.C:
			return found, nil
		case ev, ok := <-events:
			if !ok {
				return found, nil
			}
			switch ev.Kind {
			case bluez.DeviceAdded:
				if ev.Device.HasService(ServiceBand0) {
					found[ev.Path] = ev.Device.Address
				}
			case bluez.DeviceRemoved:
				delete(found, ev.Path)
			}
		}
	}
}
