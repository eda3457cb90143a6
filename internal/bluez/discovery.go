package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// DiscoveryFilter narrows what the adapter reports during discovery. The
// daemon treats the filter as advisory; callers should still check the
// advertised services of anything it reports.
type DiscoveryFilter struct {
	UUIDs         []string
	Transport     string
	DuplicateData bool
}

func (s *Session) adapterObject() dbus.BusObject {
	return s.conn.Object(bluezBus, s.adapterPath)
}

// SetDiscoveryFilter installs the filter on the adapter.
func (s *Session) SetDiscoveryFilter(ctx context.Context, filter DiscoveryFilter) error {
	props := map[string]dbus.Variant{
		"UUIDs":         dbus.MakeVariant(filter.UUIDs),
		"Transport":     dbus.MakeVariant(filter.Transport),
		"DuplicateData": dbus.MakeVariant(filter.DuplicateData),
	}
	if err := s.adapterObject().CallWithContext(ctx, adapterIface+".SetDiscoveryFilter", 0, props).Err; err != nil {
		return fmt.Errorf("bluez: set discovery filter: %w", err)
	}
	return nil
}

// StartDiscovery begins scanning on the adapter.
func (s *Session) StartDiscovery(ctx context.Context) error {
	if err := s.adapterObject().CallWithContext(ctx, adapterIface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("bluez: start discovery: %w", err)
	}
	return nil
}

// StopDiscovery ends scanning on the adapter.
func (s *Session) StopDiscovery(ctx context.Context) error {
	if err := s.adapterObject().CallWithContext(ctx, adapterIface+".StopDiscovery", 0).Err; err != nil {
		return fmt.Errorf("bluez: stop discovery: %w", err)
	}
	return nil
}
