// Package notify taps the session bus for desktop notifications so they can
// be forwarded to a band. It attaches a dedicated monitor connection rather
// than claiming org.freedesktop.Notifications, so the regular notification
// daemon keeps working.
package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsPath   = "/org/freedesktop/Notifications"
	notificationsIface  = "org.freedesktop.Notifications"
	notificationsMember = "Notify"
)

// Notification is one desktop notification as presented to applications.
type Notification struct {
	App     string
	Summary string
	Body    string
}

// Stream opens a monitor connection on the session bus and emits every
// Notify call seen there. The channel closes when ctx is cancelled or the
// connection drops.
func Stream(ctx context.Context) (<-chan Notification, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("notify: open session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: auth: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: hello: %w", err)
	}

	rule := fmt.Sprintf("type='method_call',path='%s',interface='%s',member='%s'",
		notificationsPath, notificationsIface, notificationsMember)
	call := conn.BusObject().Call("org.freedesktop.DBus.Monitoring.BecomeMonitor", 0,
		[]string{rule}, uint32(0))
	if call.Err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: become monitor: %w", call.Err)
	}

	msgs := make(chan *dbus.Message, 16)
	conn.Eavesdrop(msgs)

	out := make(chan Notification, 16)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				n, ok := parse(msg)
				if !ok {
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// parse extracts the app name, summary and body from a Notify method call.
// The Notify signature is (susssasa{sv}i); anything shorter is skipped.
func parse(msg *dbus.Message) (Notification, bool) {
	if msg.Type != dbus.TypeMethodCall || len(msg.Body) < 5 {
		return Notification{}, false
	}
	app, ok := msg.Body[0].(string)
	if !ok {
		return Notification{}, false
	}
	summary, ok := msg.Body[3].(string)
	if !ok {
		return Notification{}, false
	}
	body, ok := msg.Body[4].(string)
	if !ok {
		return Notification{}, false
	}
	return Notification{App: app, Summary: summary, Body: body}, true
}
