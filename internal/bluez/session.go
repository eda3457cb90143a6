// Package bluez wraps the BlueZ daemon's D-Bus object-manager interface into
// device-level operations: enumeration, add/remove and property-change event
// streams, GATT service/characteristic resolution, and raw characteristic
// read/write/notify handles.
package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const (
	bluezBus         = "org.bluez"
	adapterIface     = "org.bluez.Adapter1"
	deviceIface      = "org.bluez.Device1"
	gattServiceIface = "org.bluez.GattService1"
	gattCharIface    = "org.bluez.GattCharacteristic1"

	objectManagerIface      = "org.freedesktop.DBus.ObjectManager"
	propertiesIface         = "org.freedesktop.DBus.Properties"
	interfacesAddedSignal   = objectManagerIface + ".InterfacesAdded"
	interfacesRemovedSignal = objectManagerIface + ".InterfacesRemoved"
	propertiesChangedSignal = propertiesIface + ".PropertiesChanged"
)

// managedObjects is the shape GetManagedObjects stores into:
// object path -> interface name -> property name -> value.
type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Session is a long-lived handle to the BlueZ daemon on the system bus for
// one local adapter. Construct it once at startup and pass it to whatever
// needs it; its query methods are independent, replayable reads.
type Session struct {
	conn        *dbus.Conn
	adapterPath dbus.ObjectPath
}

// NewSession connects to the system bus and binds to the named adapter
// (e.g. "hci0").
func NewSession(adapter string) (*Session, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect to system bus: %w", err)
	}
	return &Session{
		conn:        conn,
		adapterPath: dbus.ObjectPath("/org/bluez/" + adapter),
	}, nil
}

// AdapterPath returns the bus path of the local adapter.
func (s *Session) AdapterPath() dbus.ObjectPath {
	return s.adapterPath
}

func (s *Session) managedObjects() (managedObjects, error) {
	var objs managedObjects
	err := s.conn.Object(bluezBus, "/").
		Call(objectManagerIface+".GetManagedObjects", 0).
		Store(&objs)
	if err != nil {
		return nil, fmt.Errorf("bluez: get managed objects: %w", err)
	}
	return objs, nil
}

// Device is one discovered remote device, identified by its bus path.
type Device struct {
	Path      dbus.ObjectPath
	Address   string
	Services  map[uuid.UUID]struct{}
	Connected bool
	RSSI      *int16
}

// HasService reports whether the device advertised the given service UUID.
func (d Device) HasService(id uuid.UUID) bool {
	_, ok := d.Services[id]
	return ok
}

// Devices walks the daemon's full managed-object tree once and returns every
// object that is a device: exactly one path segment below the adapter and
// carrying the device interface. Entries without the device interface are
// sub-objects or foreign services and are skipped, not errored.
func (s *Session) Devices() ([]Device, error) {
	objs, err := s.managedObjects()
	if err != nil {
		return nil, err
	}

	var devices []Device
	for path, ifaces := range objs {
		if !deviceAtPath(s.adapterPath, path) {
			continue
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		dev, ok := deviceFromProps(path, props)
		if !ok {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// ResolveCharacteristics walks the object tree under a device path and joins
// GATT services to their characteristics: service UUID -> characteristic
// UUID -> handle. A service with no characteristics yields an empty inner map.
func (s *Session) ResolveCharacteristics(devicePath dbus.ObjectPath) (map[uuid.UUID]map[uuid.UUID]Characteristic, error) {
	objs, err := s.managedObjects()
	if err != nil {
		return nil, err
	}

	paths := partitionGatt(devicePath, objs)
	resolved := make(map[uuid.UUID]map[uuid.UUID]Characteristic, len(paths))
	for serviceID, chars := range paths {
		inner := make(map[uuid.UUID]Characteristic, len(chars))
		for charID, path := range chars {
			inner[charID] = &gattCharacteristic{session: s, path: path}
		}
		resolved[serviceID] = inner
	}
	return resolved, nil
}

// partitionGatt splits the managed objects under devicePath into services
// (keyed by their own path) and characteristics (keyed by their declared
// parent-service path), then joins them into UUID maps of handle paths.
func partitionGatt(devicePath dbus.ObjectPath, objs managedObjects) map[uuid.UUID]map[uuid.UUID]dbus.ObjectPath {
	prefix := string(devicePath) + "/"

	services := make(map[dbus.ObjectPath]uuid.UUID)
	type charEntry struct {
		service dbus.ObjectPath
		id      uuid.UUID
		path    dbus.ObjectPath
	}
	var chars []charEntry

	for path, ifaces := range objs {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if props, ok := ifaces[gattServiceIface]; ok {
			if id, ok := uuidProp(props, "UUID"); ok {
				services[path] = id
			}
		}
		if props, ok := ifaces[gattCharIface]; ok {
			id, okID := uuidProp(props, "UUID")
			parent, okParent := props["Service"].Value().(dbus.ObjectPath)
			if okID && okParent {
				chars = append(chars, charEntry{service: parent, id: id, path: path})
			}
		}
	}

	joined := make(map[uuid.UUID]map[uuid.UUID]dbus.ObjectPath, len(services))
	for _, serviceID := range services {
		joined[serviceID] = make(map[uuid.UUID]dbus.ObjectPath)
	}
	for _, c := range chars {
		serviceID, ok := services[c.service]
		if !ok {
			continue
		}
		joined[serviceID][c.id] = c.path
	}
	return joined
}

// deviceAtPath reports whether path names a device directly under the
// adapter: exactly one segment below it. Service and characteristic paths
// sit two or more segments deep and are rejected.
func deviceAtPath(adapterPath, path dbus.ObjectPath) bool {
	rel, ok := strings.CutPrefix(string(path), string(adapterPath)+"/")
	return ok && rel != "" && !strings.Contains(rel, "/")
}

// deviceFromProps builds a Device from an org.bluez.Device1 property map.
// A missing address makes the entry unusable and it is skipped.
func deviceFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) (Device, bool) {
	address, ok := props["Address"].Value().(string)
	if !ok {
		return Device{}, false
	}

	dev := Device{
		Path:     path,
		Address:  address,
		Services: make(map[uuid.UUID]struct{}),
	}
	if uuids, ok := props["UUIDs"].Value().([]string); ok {
		for _, raw := range uuids {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			dev.Services[id] = struct{}{}
		}
	}
	if connected, ok := props["Connected"].Value().(bool); ok {
		dev.Connected = connected
	}
	if rssi, ok := props["RSSI"].Value().(int16); ok {
		dev.RSSI = &rssi
	}
	return dev, true
}

func uuidProp(props map[string]dbus.Variant, name string) (uuid.UUID, bool) {
	raw, ok := props[name].Value().(string)
	if !ok {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}
