package notify

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func notifyCall(body []interface{}) *dbus.Message {
	return &dbus.Message{
		Type: dbus.TypeMethodCall,
		Body: body,
	}
}

func TestParse(t *testing.T) {
	// The Notify signature: app_name, replaces_id, app_icon, summary, body,
	// actions, hints, expire_timeout.
	msg := notifyCall([]interface{}{
		"signal-desktop",
		uint32(0),
		"",
		"Alice",
		"see you at 7",
		[]string{},
		map[string]dbus.Variant{},
		int32(-1),
	})

	n, ok := parse(msg)
	if !ok {
		t.Fatal("parse() ok = false")
	}
	if n.App != "signal-desktop" {
		t.Errorf("App = %q, want %q", n.App, "signal-desktop")
	}
	if n.Summary != "Alice" {
		t.Errorf("Summary = %q, want %q", n.Summary, "Alice")
	}
	if n.Body != "see you at 7" {
		t.Errorf("Body = %q, want %q", n.Body, "see you at 7")
	}
}

func TestParseRejectsNonMethodCall(t *testing.T) {
	msg := &dbus.Message{
		Type: dbus.TypeSignal,
		Body: []interface{}{"app", uint32(0), "", "summary", "body"},
	}
	if _, ok := parse(msg); ok {
		t.Error("parse() should ignore non-method-call messages")
	}
}

func TestParseRejectsShortBody(t *testing.T) {
	msg := notifyCall([]interface{}{"app", uint32(0), ""})
	if _, ok := parse(msg); ok {
		t.Error("parse() should ignore a truncated body")
	}
}

func TestParseRejectsWrongTypes(t *testing.T) {
	msg := notifyCall([]interface{}{
		uint32(7), // app name should be a string
		uint32(0),
		"",
		"summary",
		"body",
	})
	if _, ok := parse(msg); ok {
		t.Error("parse() should ignore oddly-typed fields")
	}
}
