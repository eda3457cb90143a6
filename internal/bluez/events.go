package bluez

import (
	"context"
	"fmt"
	"slices"

	"github.com/godbus/dbus/v5"
)

// DeviceEventKind tags a device add/remove event.
type DeviceEventKind int

const (
	DeviceAdded DeviceEventKind = iota
	DeviceRemoved
)

// DeviceEvent is one entry of the device event stream. Device is populated
// for adds only.
type DeviceEvent struct {
	Kind   DeviceEventKind
	Path   dbus.ObjectPath
	Device Device
}

// DeviceEvents merges the daemon's InterfacesAdded and InterfacesRemoved
// signals into one stream of device-level events, in signal arrival order
// with no coalescing. The stream ends when ctx is cancelled; it is not
// restartable.
func (s *Session) DeviceEvents(ctx context.Context) (<-chan DeviceEvent, error) {
	added := []dbus.MatchOption{
		dbus.WithMatchObjectPath("/"),
		dbus.WithMatchInterface(objectManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	}
	removed := []dbus.MatchOption{
		dbus.WithMatchObjectPath("/"),
		dbus.WithMatchInterface(objectManagerIface),
		dbus.WithMatchMember("InterfacesRemoved"),
	}
	if err := s.conn.AddMatchSignal(added...); err != nil {
		return nil, fmt.Errorf("bluez: match interfaces-added: %w", err)
	}
	if err := s.conn.AddMatchSignal(removed...); err != nil {
		return nil, fmt.Errorf("bluez: match interfaces-removed: %w", err)
	}

	signals := make(chan *dbus.Signal, 32)
	s.conn.Signal(signals)

	out := make(chan DeviceEvent, 32)
	go func() {
		defer close(out)
		defer func() {
			s.conn.RemoveSignal(signals)
			_ = s.conn.RemoveMatchSignal(added...)
			_ = s.conn.RemoveMatchSignal(removed...)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				ev, ok := deviceEventFromSignal(s.adapterPath, sig)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// deviceEventFromSignal classifies an object-manager signal. Adds must carry
// the device interface among the added interfaces; removes must list it
// among the removed names. Everything else is a sub-object change we ignore.
func deviceEventFromSignal(adapterPath dbus.ObjectPath, sig *dbus.Signal) (DeviceEvent, bool) {
	if len(sig.Body) < 2 {
		return DeviceEvent{}, false
	}
	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok || !deviceAtPath(adapterPath, path) {
		return DeviceEvent{}, false
	}

	switch sig.Name {
	case interfacesAddedSignal:
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return DeviceEvent{}, false
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			return DeviceEvent{}, false
		}
		dev, ok := deviceFromProps(path, props)
		if !ok {
			return DeviceEvent{}, false
		}
		return DeviceEvent{Kind: DeviceAdded, Path: path, Device: dev}, true

	case interfacesRemovedSignal:
		names, ok := sig.Body[1].([]string)
		if !ok || !slices.Contains(names, deviceIface) {
			return DeviceEvent{}, false
		}
		return DeviceEvent{Kind: DeviceRemoved, Path: path}, true
	}
	return DeviceEvent{}, false
}

// PropertyKind tags a device property change.
type PropertyKind int

const (
	PropRSSI PropertyKind = iota
	PropConnected
	PropServicesResolved
)

// PropertyEvent is one tagged property change for a device. RSSI is set for
// PropRSSI; Flag carries the boolean for the other kinds.
type PropertyEvent struct {
	Path dbus.ObjectPath
	Kind PropertyKind
	RSSI int16
	Flag bool
}

// PropertyEvents streams signal-strength, connection, and services-resolved
// changes for one device path until ctx is cancelled.
func (s *Session) PropertyEvents(ctx context.Context, path dbus.ObjectPath) (<-chan PropertyEvent, error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, deviceIface),
	}
	if err := s.conn.AddMatchSignal(opts...); err != nil {
		return nil, fmt.Errorf("bluez: match properties-changed: %w", err)
	}

	signals := make(chan *dbus.Signal, 32)
	s.conn.Signal(signals)

	out := make(chan PropertyEvent, 32)
	go func() {
		defer close(out)
		defer func() {
			s.conn.RemoveSignal(signals)
			_ = s.conn.RemoveMatchSignal(opts...)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				for _, ev := range propertyEventsFromSignal(path, sig) {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func propertyEventsFromSignal(path dbus.ObjectPath, sig *dbus.Signal) []PropertyEvent {
	if sig.Name != propertiesChangedSignal || sig.Path != path || len(sig.Body) < 2 {
		return nil
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return nil
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil
	}

	var events []PropertyEvent
	if rssi, ok := changed["RSSI"].Value().(int16); ok {
		events = append(events, PropertyEvent{Path: path, Kind: PropRSSI, RSSI: rssi})
	}
	if connected, ok := changed["Connected"].Value().(bool); ok {
		events = append(events, PropertyEvent{Path: path, Kind: PropConnected, Flag: connected})
	}
	if resolved, ok := changed["ServicesResolved"].Value().(bool); ok {
		events = append(events, PropertyEvent{Path: path, Kind: PropServicesResolved, Flag: resolved})
	}
	return events
}
