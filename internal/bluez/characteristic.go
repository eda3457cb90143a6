package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Characteristic is a raw GATT characteristic handle: the primitives the
// device client builds every record operation on.
type Characteristic interface {
	// Read fetches the characteristic's current value.
	Read(ctx context.Context) ([]byte, error)
	// Write sends data as an unacknowledged command (fire-and-forget).
	Write(ctx context.Context, data []byte) error
	// WriteRequest sends data as an acknowledged write request; with
	// prepareAuthorize set the daemon asks the device to authorize it.
	WriteRequest(ctx context.Context, data []byte, prepareAuthorize bool) error
	// Notify subscribes to the characteristic's value changes. The returned
	// channel closes when ctx is cancelled or stop is called.
	Notify(ctx context.Context) (<-chan []byte, func(), error)
}

// gattCharacteristic talks to one org.bluez.GattCharacteristic1 object.
type gattCharacteristic struct {
	session *Session
	path    dbus.ObjectPath
}

func (c *gattCharacteristic) object() dbus.BusObject {
	return c.session.conn.Object(bluezBus, c.path)
}

func (c *gattCharacteristic) Read(ctx context.Context) ([]byte, error) {
	var value []byte
	err := c.object().
		CallWithContext(ctx, gattCharIface+".ReadValue", 0, map[string]dbus.Variant{}).
		Store(&value)
	if err != nil {
		return nil, fmt.Errorf("bluez: read %s: %w", c.path, err)
	}
	return value, nil
}

func (c *gattCharacteristic) Write(ctx context.Context, data []byte) error {
	opts := map[string]dbus.Variant{
		"type": dbus.MakeVariant("command"),
	}
	if err := c.object().CallWithContext(ctx, gattCharIface+".WriteValue", 0, data, opts).Err; err != nil {
		return fmt.Errorf("bluez: write %s: %w", c.path, err)
	}
	return nil
}

func (c *gattCharacteristic) WriteRequest(ctx context.Context, data []byte, prepareAuthorize bool) error {
	opts := map[string]dbus.Variant{
		"type": dbus.MakeVariant("request"),
	}
	if prepareAuthorize {
		opts["prepare-authorize"] = dbus.MakeVariant(true)
	}
	if err := c.object().CallWithContext(ctx, gattCharIface+".WriteValue", 0, data, opts).Err; err != nil {
		return fmt.Errorf("bluez: write request %s: %w", c.path, err)
	}
	return nil
}

// Notify starts notifications and surfaces each Value property change as one
// frame. Frames arriving faster than the consumer drains them are buffered
// by the channel only; this layer adds no retry or replay.
func (c *gattCharacteristic) Notify(ctx context.Context) (<-chan []byte, func(), error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(c.path),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, gattCharIface),
	}
	if err := c.session.conn.AddMatchSignal(opts...); err != nil {
		return nil, nil, fmt.Errorf("bluez: match value changes for %s: %w", c.path, err)
	}

	signals := make(chan *dbus.Signal, 32)
	c.session.conn.Signal(signals)

	if err := c.object().CallWithContext(ctx, gattCharIface+".StartNotify", 0).Err; err != nil {
		c.session.conn.RemoveSignal(signals)
		_ = c.session.conn.RemoveMatchSignal(opts...)
		return nil, nil, fmt.Errorf("bluez: start notify %s: %w", c.path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, 32)
	go func() {
		defer close(out)
		defer func() {
			_ = c.object().Call(gattCharIface+".StopNotify", 0).Err
			c.session.conn.RemoveSignal(signals)
			_ = c.session.conn.RemoveMatchSignal(opts...)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				value, ok := notifiedValue(c.path, sig)
				if !ok {
					continue
				}
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

func notifiedValue(path dbus.ObjectPath, sig *dbus.Signal) ([]byte, bool) {
	if sig.Name != propertiesChangedSignal || sig.Path != path || len(sig.Body) < 2 {
		return nil, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != gattCharIface {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, false
	}
	value, ok := changed["Value"].Value().([]byte)
	if !ok {
		return nil, false
	}
	return value, true
}
