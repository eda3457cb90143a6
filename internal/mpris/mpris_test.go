package mpris

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/bandmate/bandmate/internal/band/protocol"
)

func TestBuildInfoFull(t *testing.T) {
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant("Playing"),
		"Metadata": dbus.MakeVariant(map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("Take Five"),
			"mpris:length": dbus.MakeVariant(int64(324 * 1000 * 1000)), // 324s in us
		}),
		"Position": dbus.MakeVariant(int64(90 * 1000 * 1000)),
		"Volume":   dbus.MakeVariant(0.75),
	}

	info := buildInfo(props)

	if info.State != protocol.StatePlaying {
		t.Errorf("State = %v, want StatePlaying", info.State)
	}
	if info.Track == nil || *info.Track != "Take Five" {
		t.Errorf("Track = %v, want Take Five", info.Track)
	}
	if info.Duration == nil || *info.Duration != 324 {
		t.Errorf("Duration = %v, want 324", info.Duration)
	}
	if info.Position != 90 {
		t.Errorf("Position = %d, want 90", info.Position)
	}
	if info.Volume == nil || *info.Volume != 75 {
		t.Errorf("Volume = %v, want 75", info.Volume)
	}
}

func TestBuildInfoPaused(t *testing.T) {
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant("Paused"),
	}

	info := buildInfo(props)
	if info.State != protocol.StatePaused {
		t.Errorf("State = %v, want StatePaused", info.State)
	}
	if info.Track != nil {
		t.Errorf("Track = %v, want nil without metadata", info.Track)
	}
}

func TestBuildInfoEmptyProps(t *testing.T) {
	info := buildInfo(map[string]dbus.Variant{})

	if info.State != protocol.StateStopped {
		t.Errorf("State = %v, want StateStopped", info.State)
	}
	if info.Track != nil || info.Duration != nil || info.Volume != nil {
		t.Error("optional fields should stay nil with no properties")
	}
	if info.Position != 0 {
		t.Errorf("Position = %d, want 0", info.Position)
	}
}

func TestBuildInfoClampsVolume(t *testing.T) {
	props := map[string]dbus.Variant{
		"Volume": dbus.MakeVariant(1.8),
	}
	info := buildInfo(props)
	if info.Volume == nil || *info.Volume != 100 {
		t.Errorf("Volume = %v, want clamped to 100", info.Volume)
	}

	props["Volume"] = dbus.MakeVariant(-0.2)
	info = buildInfo(props)
	if info.Volume == nil || *info.Volume != 0 {
		t.Errorf("Volume = %v, want clamped to 0", info.Volume)
	}
}

func TestBuildInfoIgnoresOddTypes(t *testing.T) {
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(uint32(1)),
		"Position":       dbus.MakeVariant("soon"),
		"Metadata":       dbus.MakeVariant("not a map"),
	}

	info := buildInfo(props)
	if info.State != protocol.StateStopped || info.Position != 0 || info.Track != nil {
		t.Errorf("buildInfo() = %+v, want zero value for odd-typed properties", info)
	}
}
