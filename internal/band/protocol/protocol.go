// Package protocol implements the band's binary record codecs: 7-byte
// timestamps, battery and activity reads, the goal/lock/alert/media write
// payloads, and the authentication frames. All multi-byte integers on the
// wire are little-endian. Nothing in this package performs I/O.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	ErrShortRecord    = errors.New("protocol: record too short")
	ErrInvalidTime    = errors.New("protocol: invalid calendar time")
	ErrInvalidLockPin = errors.New("protocol: lock pin must be exactly 4 digits in '1'..'4'")
)

// DecodeTime parses a 7-byte band timestamp (year lo, year hi, month, day,
// hour, minute, second) in the local timezone.
func DecodeTime(b []byte) (time.Time, error) {
	if len(b) < 7 {
		return time.Time{}, fmt.Errorf("%w: timestamp needs 7 bytes, got %d", ErrShortRecord, len(b))
	}
	year := int(binary.LittleEndian.Uint16(b[0:2]))
	month := int(b[2])
	day := int(b[3])
	hour := int(b[4])
	min := int(b[5])
	sec := int(b[6])

	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local)
	// time.Date normalizes out-of-range fields (month 13 becomes January of
	// the next year), so an impossible date survives construction. Reject
	// anything that did not round-trip instead of silently clamping.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day ||
		t.Hour() != hour || t.Minute() != min || t.Second() != sec {
		return time.Time{}, ErrInvalidTime
	}
	return t, nil
}

// EncodeTime renders t as the band's 7-byte timestamp.
func EncodeTime(t time.Time) []byte {
	b := make([]byte, 7)
	binary.LittleEndian.PutUint16(b[0:2], uint16(t.Year()))
	b[2] = byte(t.Month())
	b[3] = byte(t.Day())
	b[4] = byte(t.Hour())
	b[5] = byte(t.Minute())
	b[6] = byte(t.Second())
	return b
}

// EncodeTimeWrite renders the 11-byte payload for the current-time
// characteristic: timestamp, day of week (days since Sunday), then three
// reserved zero bytes.
func EncodeTimeWrite(t time.Time) []byte {
	b := append(EncodeTime(t), byte(t.Weekday()), 0x00, 0x00, 0x00)
	return b
}

// BatteryStatus is the decoded battery characteristic.
type BatteryStatus struct {
	Level      uint8
	Charging   bool
	LastCharge time.Time
	// LastOff was carried at offset 3 by early firmware and dropped later;
	// it is nil when the bytes there do not decode as a valid timestamp.
	LastOff *time.Time
}

// DecodeBattery parses a battery read: level at byte 1, charging flag at
// byte 2, last-charge timestamp at offset 11.
func DecodeBattery(b []byte) (BatteryStatus, error) {
	if len(b) < 18 {
		return BatteryStatus{}, fmt.Errorf("%w: battery needs 18 bytes, got %d", ErrShortRecord, len(b))
	}
	lastCharge, err := DecodeTime(b[11:])
	if err != nil {
		return BatteryStatus{}, err
	}
	st := BatteryStatus{
		Level:      b[1],
		Charging:   b[2] != 0,
		LastCharge: lastCharge,
	}
	if lastOff, err := DecodeTime(b[3:]); err == nil {
		st.LastOff = &lastOff
	}
	return st, nil
}

// Activity is the decoded steps characteristic.
type Activity struct {
	Steps    uint16
	Meters   uint16
	Calories uint16
}

// DecodeActivity parses an activity read: steps at offset 1, meters at
// offset 5, calories at offset 9.
func DecodeActivity(b []byte) (Activity, error) {
	if len(b) < 11 {
		return Activity{}, fmt.Errorf("%w: activity needs 11 bytes, got %d", ErrShortRecord, len(b))
	}
	return Activity{
		Steps:    binary.LittleEndian.Uint16(b[1:3]),
		Meters:   binary.LittleEndian.Uint16(b[5:7]),
		Calories: binary.LittleEndian.Uint16(b[9:11]),
	}, nil
}

// EncodeGoalNotify renders the config-characteristic toggle for goal
// notifications.
func EncodeGoalNotify(enabled bool) []byte {
	b := []byte{0x06, 0x06, 0x00, 0x00}
	if enabled {
		b[3] = 0x01
	}
	return b
}

// EncodeGoalSteps renders the settings-characteristic payload carrying the
// daily step target.
func EncodeGoalSteps(steps uint16) []byte {
	b := []byte{0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	binary.LittleEndian.PutUint16(b[3:5], steps)
	return b
}

// ValidatePIN checks a band-lock PIN client-side: exactly 4 ASCII digits,
// each in the inclusive range '1'..'4'. The band only has four buttons.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidLockPin
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '1' || pin[i] > '4' {
			return ErrInvalidLockPin
		}
	}
	return nil
}

// EncodeLock renders the config-characteristic band-lock payload. The PIN is
// validated before anything is built so an invalid one never reaches the band.
func EncodeLock(pin string, enabled bool) ([]byte, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	enabledByte := byte(0x00)
	if enabled {
		enabledByte = 0x01
	}
	b := make([]byte, 0, 4+len(pin)+1)
	b = append(b, 0x06, 0x21, 0x00, enabledByte)
	b = append(b, pin...)
	b = append(b, 0x00)
	return b, nil
}

// AlertType selects the icon the band shows for an alert.
type AlertType byte

const (
	AlertMail       AlertType = 1
	AlertCall       AlertType = 3
	AlertMissedCall AlertType = 4
	AlertMessage    AlertType = 5
)

// Alert is a notification pushed to the band's screen.
type Alert struct {
	Type    AlertType
	Title   string
	Message string
}

// EncodeAlert renders an alert write: type, 0x01, then the title and message
// as null-terminated UTF-8.
func EncodeAlert(a Alert) []byte {
	b := make([]byte, 0, 2+len(a.Title)+1+len(a.Message)+1)
	b = append(b, byte(a.Type), 0x01)
	b = append(b, a.Title...)
	b = append(b, 0x00)
	b = append(b, a.Message...)
	b = append(b, 0x00)
	return b
}

// PlaybackState mirrors the media player's status.
type PlaybackState uint8

const (
	StateStopped PlaybackState = iota
	StatePaused
	StatePlaying
)

// MediaInfo is the now-playing snapshot pushed to the band. Optional fields
// are omitted from the wire payload when nil.
type MediaInfo struct {
	Track    *string
	Volume   *uint16
	Duration *uint16 // seconds
	Position uint16  // seconds, always sent
	State    PlaybackState
}

// Media payload flag bits.
const (
	mediaFlagBase     = 0x01
	mediaFlagTrack    = 0x08
	mediaFlagDuration = 0x10
	mediaFlagVolume   = 0x40
)

// EncodeMedia renders the chunked-transfer media payload. A nil info is the
// band's "clear now-playing" signal: five zero bytes.
func EncodeMedia(info *MediaInfo) []byte {
	if info == nil {
		return []byte{0x00, 0x00, 0x00, 0x00, 0x00}
	}

	flags := byte(mediaFlagBase)
	if info.Track != nil {
		flags |= mediaFlagTrack
	}
	if info.Duration != nil {
		flags |= mediaFlagDuration
	}
	if info.Volume != nil {
		flags |= mediaFlagVolume
	}
	playing := byte(0x00)
	if info.State == StatePlaying {
		playing = 0x01
	}

	b := []byte{flags, playing, 0x00}
	b = binary.LittleEndian.AppendUint16(b, info.Position)
	if info.Track != nil {
		b = append(b, *info.Track...)
		b = append(b, 0x00)
	}
	if info.Duration != nil {
		b = binary.LittleEndian.AppendUint16(b, *info.Duration)
	}
	if info.Volume != nil {
		b = binary.LittleEndian.AppendUint16(b, *info.Volume)
	}
	return b
}

// MusicEvent is a button press relayed by the band's music screen.
type MusicEvent uint8

const (
	MusicOpen MusicEvent = iota
	MusicClose
	MusicPlayPause
	MusicNext
	MusicPrevious
	MusicVolumeUp
	MusicVolumeDown
)

// String returns the event name for logging.
func (e MusicEvent) String() string {
	switch e {
	case MusicOpen:
		return "open"
	case MusicClose:
		return "close"
	case MusicPlayPause:
		return "play-pause"
	case MusicNext:
		return "next"
	case MusicPrevious:
		return "previous"
	case MusicVolumeUp:
		return "volume-up"
	case MusicVolumeDown:
		return "volume-down"
	}
	return fmt.Sprintf("music-event(%d)", uint8(e))
}

// DecodeButtonEvent inspects a music-notification frame. Frames shorter than
// 2 bytes or carrying an unrecognized code yield no event; the caller keeps
// consuming the stream.
func DecodeButtonEvent(b []byte) (MusicEvent, bool) {
	if len(b) < 2 {
		return 0, false
	}
	switch b[1] {
	case 0xe0:
		return MusicOpen, true
	case 0xe1:
		return MusicClose, true
	}
	return 0, false
}

// MetersToImperial formats a walked distance the way the band companion
// displays it: short distances in feet, anything from 161 meters up in miles.
func MetersToImperial(meters uint16) string {
	if meters <= 160 {
		return fmt.Sprintf("%.0f ft", float64(meters)*3.28084)
	}
	return fmt.Sprintf("%.2f mi", float64(meters)/1609.344)
}
