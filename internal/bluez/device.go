package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// DeviceHandle is a live handle to one device's org.bluez.Device1 object.
type DeviceHandle struct {
	session *Session
	path    dbus.ObjectPath
}

// Device returns a handle for the device at the given bus path.
func (s *Session) Device(path dbus.ObjectPath) *DeviceHandle {
	return &DeviceHandle{session: s, path: path}
}

// Path returns the device's bus path.
func (d *DeviceHandle) Path() dbus.ObjectPath {
	return d.path
}

func (d *DeviceHandle) object() dbus.BusObject {
	return d.session.conn.Object(bluezBus, d.path)
}

// Connect asks the daemon to establish the connection.
func (d *DeviceHandle) Connect(ctx context.Context) error {
	if err := d.object().CallWithContext(ctx, deviceIface+".Connect", 0).Err; err != nil {
		return fmt.Errorf("bluez: connect %s: %w", d.path, err)
	}
	return nil
}

// Disconnect asks the daemon to tear the connection down.
func (d *DeviceHandle) Disconnect(ctx context.Context) error {
	if err := d.object().CallWithContext(ctx, deviceIface+".Disconnect", 0).Err; err != nil {
		return fmt.Errorf("bluez: disconnect %s: %w", d.path, err)
	}
	return nil
}

func (d *DeviceHandle) boolProperty(name string) (bool, error) {
	variant, err := d.object().GetProperty(deviceIface + "." + name)
	if err != nil {
		return false, fmt.Errorf("bluez: get %s of %s: %w", name, d.path, err)
	}
	value, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("bluez: %s of %s is not a bool", name, d.path)
	}
	return value, nil
}

// Connected reads the device's current connection state.
func (d *DeviceHandle) Connected(ctx context.Context) (bool, error) {
	return d.boolProperty("Connected")
}

// ServicesResolved reads whether the device's GATT tree is fully discovered.
func (d *DeviceHandle) ServicesResolved(ctx context.Context) (bool, error) {
	return d.boolProperty("ServicesResolved")
}

// WaitServicesResolved blocks until the daemon reports the device's GATT
// tree as fully discovered. The property stream is subscribed before the
// current value is polled so the transition cannot be missed.
func (d *DeviceHandle) WaitServicesResolved(ctx context.Context) error {
	// Scope the subscription to this call so it is torn down on return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := d.session.PropertyEvents(ctx, d.path)
	if err != nil {
		return err
	}

	resolved, err := d.ServicesResolved(ctx)
	if err != nil {
		return err
	}
	if resolved {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("bluez: property stream for %s closed", d.path)
			}
			if ev.Kind == PropServicesResolved && ev.Flag {
				return nil
			}
		}
	}
}

// Characteristics resolves the device's service/characteristic map.
func (d *DeviceHandle) Characteristics(ctx context.Context) (map[uuid.UUID]map[uuid.UUID]Characteristic, error) {
	return d.session.ResolveCharacteristics(d.path)
}

// PropertyEvents streams this device's property changes.
func (d *DeviceHandle) PropertyEvents(ctx context.Context) (<-chan PropertyEvent, error) {
	return d.session.PropertyEvents(ctx, d.path)
}
