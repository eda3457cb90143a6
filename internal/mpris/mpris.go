// Package mpris drives the active media player through playerctld, which
// proxies whichever MPRIS player last changed state. Band button presses
// become player commands and player state becomes band media updates.
package mpris

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bandmate/bandmate/internal/band/protocol"
)

const (
	busName    = "org.mpris.MediaPlayer2.playerctld"
	objectPath = dbus.ObjectPath("/org/mpris/MediaPlayer2")

	playerIface     = "org.mpris.MediaPlayer2.Player"
	playerctldIface = "com.github.altdesktop.playerctld"
)

// Controller issues playback commands and reads player state over the
// session bus.
type Controller struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewController connects to the session bus. playerctld itself is activated
// lazily on first use, so this succeeds even with no player running.
func NewController() (*Controller, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("mpris: connect session bus: %w", err)
	}
	return &Controller{conn: conn, obj: conn.Object(busName, objectPath)}, nil
}

// PlayPause toggles playback on the active player.
func (c *Controller) PlayPause(ctx context.Context) error {
	return c.call(ctx, "PlayPause")
}

// Next skips to the next track.
func (c *Controller) Next(ctx context.Context) error {
	return c.call(ctx, "Next")
}

// Previous skips to the previous track.
func (c *Controller) Previous(ctx context.Context) error {
	return c.call(ctx, "Previous")
}

func (c *Controller) call(ctx context.Context, method string) error {
	call := c.obj.CallWithContext(ctx, playerIface+"."+method, 0)
	if call.Err != nil {
		return fmt.Errorf("mpris: %s: %w", method, call.Err)
	}
	return nil
}

// AdjustVolume shifts the active player's volume by delta, clamping to
// [0, 1].
func (c *Controller) AdjustVolume(ctx context.Context, delta float64) error {
	variant, err := c.obj.GetProperty(playerIface + ".Volume")
	if err != nil {
		return fmt.Errorf("mpris: get volume: %w", err)
	}
	volume, ok := variant.Value().(float64)
	if !ok {
		return fmt.Errorf("mpris: volume has type %T", variant.Value())
	}
	volume += delta
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	call := c.obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Set", 0,
		playerIface, "Volume", dbus.MakeVariant(volume))
	if call.Err != nil {
		return fmt.Errorf("mpris: set volume: %w", call.Err)
	}
	return nil
}

// Snapshot reads the active player's current state. It returns (nil, nil)
// when no player is registered with playerctld.
func (c *Controller) Snapshot(ctx context.Context) (*protocol.MediaInfo, error) {
	names, err := c.obj.GetProperty(playerctldIface + ".PlayerNames")
	if err != nil {
		return nil, fmt.Errorf("mpris: list players: %w", err)
	}
	if list, ok := names.Value().([]string); ok && len(list) == 0 {
		return nil, nil
	}

	props := make(map[string]dbus.Variant)
	for _, name := range []string{"Metadata", "PlaybackStatus", "Position", "Volume"} {
		variant, err := c.obj.GetProperty(playerIface + "." + name)
		if err != nil {
			slog.Debug("[mpris] property unavailable", "property", name, "error", err)
			continue
		}
		props[name] = variant
	}
	info := buildInfo(props)
	return &info, nil
}

// buildInfo maps MPRIS player properties onto the band's media layout.
// Missing or oddly-typed properties simply leave their field unset.
func buildInfo(props map[string]dbus.Variant) protocol.MediaInfo {
	var info protocol.MediaInfo

	if v, ok := props["PlaybackStatus"]; ok {
		if status, ok := v.Value().(string); ok {
			switch status {
			case "Playing":
				info.State = protocol.StatePlaying
			case "Paused":
				info.State = protocol.StatePaused
			}
		}
	}
	if v, ok := props["Metadata"]; ok {
		if meta, ok := v.Value().(map[string]dbus.Variant); ok {
			if t, ok := meta["xesam:title"]; ok {
				if title, ok := t.Value().(string); ok {
					info.Track = &title
				}
			}
			if l, ok := meta["mpris:length"]; ok {
				// mpris:length is microseconds; the band wants seconds.
				if usec, ok := l.Value().(int64); ok && usec > 0 {
					duration := uint16(time.Duration(usec) * time.Microsecond / time.Second)
					info.Duration = &duration
				}
			}
		}
	}
	if v, ok := props["Position"]; ok {
		if usec, ok := v.Value().(int64); ok && usec > 0 {
			info.Position = uint16(time.Duration(usec) * time.Microsecond / time.Second)
		}
	}
	if v, ok := props["Volume"]; ok {
		if vol, ok := v.Value().(float64); ok {
			if vol < 0 {
				vol = 0
			} else if vol > 1 {
				vol = 1
			}
			level := uint16(vol * 100)
			info.Volume = &level
		}
	}
	return info
}

// Changes emits a fresh snapshot every time the active player's properties
// change. The channel closes when ctx is cancelled.
func (c *Controller) Changes(ctx context.Context) (<-chan *protocol.MediaInfo, error) {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchSender(busName),
	); err != nil {
		return nil, fmt.Errorf("mpris: add match: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)

	out := make(chan *protocol.MediaInfo, 4)
	go func() {
		defer close(out)
		defer func() {
			c.conn.RemoveSignal(signals)
			_ = c.conn.RemoveMatchSignal(
				dbus.WithMatchObjectPath(objectPath),
				dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
				dbus.WithMatchMember("PropertiesChanged"),
				dbus.WithMatchSender(busName),
			)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				info, err := c.Snapshot(ctx)
				if err != nil {
					slog.Debug("[mpris] snapshot after change failed", "error", err)
					continue
				}
				select {
				case out <- info:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
