package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const testAdapter = dbus.ObjectPath("/org/bluez/hci0")

func TestDeviceAtPath(t *testing.T) {
	tests := []struct {
		name string
		path dbus.ObjectPath
		want bool
	}{
		{"device", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", true},
		{"adapter itself", "/org/bluez/hci0", false},
		{"service below device", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF/service0001", false},
		{"characteristic", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF/service0001/char0002", false},
		{"other adapter", "/org/bluez/hci1/dev_AA_BB_CC_DD_EE_FF", false},
		{"root", "/", false},
		{"empty segment", "/org/bluez/hci0/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deviceAtPath(testAdapter, tt.path); got != tt.want {
				t.Errorf("deviceAtPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDeviceFromProps(t *testing.T) {
	path := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	rssi := int16(-60)
	props := map[string]dbus.Variant{
		"Address":   dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
		"Connected": dbus.MakeVariant(true),
		"RSSI":      dbus.MakeVariant(rssi),
		"UUIDs": dbus.MakeVariant([]string{
			"0000fee0-0000-1000-8000-00805f9b34fb",
			"not-a-uuid", // skipped, not fatal
		}),
	}

	dev, ok := deviceFromProps(path, props)
	if !ok {
		t.Fatal("deviceFromProps() ok = false")
	}
	if dev.Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Address = %q", dev.Address)
	}
	if !dev.Connected {
		t.Error("Connected = false, want true")
	}
	if dev.RSSI == nil || *dev.RSSI != -60 {
		t.Errorf("RSSI = %v, want -60", dev.RSSI)
	}
	if !dev.HasService(uuid.MustParse("0000fee0-0000-1000-8000-00805f9b34fb")) {
		t.Error("HasService(fee0) = false, want true")
	}
	if len(dev.Services) != 1 {
		t.Errorf("Services = %d entries, want 1", len(dev.Services))
	}
}

func TestDeviceFromPropsMissingAddress(t *testing.T) {
	props := map[string]dbus.Variant{
		"Connected": dbus.MakeVariant(false),
	}
	if _, ok := deviceFromProps("/org/bluez/hci0/dev_X", props); ok {
		t.Error("deviceFromProps() ok = true for a device without an address")
	}
}

func TestPartitionGatt(t *testing.T) {
	devicePath := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	servicePath := devicePath + "/service0001"
	charPath := servicePath + "/char0002"
	orphanCharPath := devicePath + "/service0099/char0003"

	serviceUUID := uuid.MustParse("0000fee0-0000-1000-8000-00805f9b34fb")
	charUUID := uuid.MustParse("00000006-0000-3512-2118-0009af100700")

	objs := managedObjects{
		servicePath: {
			gattServiceIface: {
				"UUID": dbus.MakeVariant(serviceUUID.String()),
			},
		},
		charPath: {
			gattCharIface: {
				"UUID":    dbus.MakeVariant(charUUID.String()),
				"Service": dbus.MakeVariant(servicePath),
			},
		},
		// Characteristic whose parent service was never announced: dropped.
		orphanCharPath: {
			gattCharIface: {
				"UUID":    dbus.MakeVariant(charUUID.String()),
				"Service": dbus.MakeVariant(devicePath + "/service0099"),
			},
		},
		// Another device's service: out of scope.
		"/org/bluez/hci0/dev_11_22_33_44_55_66/service0001": {
			gattServiceIface: {
				"UUID": dbus.MakeVariant(serviceUUID.String()),
			},
		},
	}

	got := partitionGatt(devicePath, objs)
	if len(got) != 1 {
		t.Fatalf("services = %d, want 1", len(got))
	}
	chars, ok := got[serviceUUID]
	if !ok {
		t.Fatal("service fee0 missing from result")
	}
	if path, ok := chars[charUUID]; !ok || path != charPath {
		t.Errorf("char path = %v, want %v", path, charPath)
	}
}

func TestPartitionGattEmptyService(t *testing.T) {
	devicePath := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	serviceUUID := uuid.MustParse("0000180a-0000-1000-8000-00805f9b34fb")

	objs := managedObjects{
		devicePath + "/service0001": {
			gattServiceIface: {
				"UUID": dbus.MakeVariant(serviceUUID.String()),
			},
		},
	}

	got := partitionGatt(devicePath, objs)
	chars, ok := got[serviceUUID]
	if !ok {
		t.Fatal("service missing from result")
	}
	if len(chars) != 0 {
		t.Errorf("chars = %d, want 0", len(chars))
	}
}
