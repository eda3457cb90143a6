// Package band implements the device client for the fitness band: connection
// lifecycle, characteristic resolution, the challenge-response handshake,
// and every record operation the band supports.
package band

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	bandcrypto "github.com/bandmate/bandmate/internal/band/crypto"
	"github.com/bandmate/bandmate/internal/band/protocol"
	"github.com/bandmate/bandmate/internal/bluez"
)

// Link is the slice of the bus session's device handle the client needs.
// *bluez.DeviceHandle satisfies it; tests substitute a mock.
type Link interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected(ctx context.Context) (bool, error)
	WaitServicesResolved(ctx context.Context) error
	Characteristics(ctx context.Context) (map[uuid.UUID]map[uuid.UUID]bluez.Characteristic, error)
}

// chars is the fixed set of resolved handles. It is replaced wholesale on
// resolution and never partially filled.
type chars struct {
	battery  bluez.Characteristic
	steps    bluez.Characteristic
	clock    bluez.Characteristic
	config   bluez.Characteristic
	settings bluez.Characteristic
	auth     bluez.Characteristic
	chunked  bluez.Characteristic
	music    bluez.Characteristic
	alert    bluez.Characteristic
	firmware bluez.Characteristic
}

// ActivityGoal is the daily step target pushed to the band.
type ActivityGoal struct {
	Steps         uint16 `json:"steps"`
	Notifications bool   `json:"notifications"`
}

// Lock is the band's screen-lock configuration. The PIN is four digits,
// each '1'..'4'.
type Lock struct {
	PIN     string `json:"pin"`
	Enabled bool   `json:"enabled"`
}

// Client owns one band's live connection, its resolved characteristics, and
// the authenticated flag. It is not safe for concurrent use; one goroutine
// owns each band's session.
type Client struct {
	link          Link
	address       string
	chars         *chars
	authenticated bool
}

// NewClient wraps a device link. Call Initialize before any operation.
func NewClient(link Link, address string) *Client {
	return &Client{link: link, address: address}
}

// Address returns the band's MAC address.
func (c *Client) Address() string {
	return c.address
}

// Authenticated reports whether the last handshake on this connection
// succeeded.
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// Initialize connects to the band if needed and resolves its
// characteristics. Characteristics cached from a previous connection are
// reused unless the connection had to be re-established.
func (c *Client) Initialize(ctx context.Context) error {
	connected, err := c.link.Connected(ctx)
	if err != nil {
		return fmt.Errorf("band: query connection state: %w", err)
	}
	if !connected {
		if err := c.link.Connect(ctx); err != nil {
			return fmt.Errorf("band: connect: %w", err)
		}
	}

	if !connected || c.chars == nil {
		if err := c.link.WaitServicesResolved(ctx); err != nil {
			return fmt.Errorf("band: wait for services: %w", err)
		}
		if err := c.resolveChars(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolveChars requires all ten characteristics across the four expected
// services; on any miss nothing is retained.
func (c *Client) resolveChars(ctx context.Context) error {
	resolved, err := c.link.Characteristics(ctx)
	if err != nil {
		return fmt.Errorf("band: resolve characteristics: %w", err)
	}
	pick := func(service, char uuid.UUID) bluez.Characteristic {
		return resolved[service][char]
	}

	cs := &chars{
		battery:  pick(ServiceBand0, CharBattery),
		steps:    pick(ServiceBand0, CharSteps),
		clock:    pick(ServiceBand0, CharTime),
		config:   pick(ServiceBand0, CharConfig),
		settings: pick(ServiceBand0, CharSettings),
		auth:     pick(ServiceBand1, CharAuth),
		chunked:  pick(ServiceBand1, CharChunked),
		music:    pick(ServiceBand1, CharMusic),
		alert:    pick(ServiceAlertNotification, CharAlert),
		firmware: pick(ServiceDeviceInformation, CharFirmware),
	}
	if cs.battery == nil || cs.steps == nil || cs.clock == nil || cs.config == nil ||
		cs.settings == nil || cs.auth == nil || cs.chunked == nil || cs.music == nil ||
		cs.alert == nil || cs.firmware == nil {
		return ErrMissingServicesOrChars
	}
	c.chars = cs
	return nil
}

// Disconnect tears the connection down. The authenticated flag is cleared
// unconditionally; resolved characteristics stay cached for a reconnect.
func (c *Client) Disconnect(ctx context.Context) error {
	err := c.link.Disconnect(ctx)
	c.authenticated = false
	if err != nil {
		return fmt.Errorf("band: disconnect: %w", err)
	}
	return nil
}

// Authenticate runs the challenge-response handshake with the 16-byte auth
// key. The wait for a terminal frame is unbounded by protocol; callers
// needing a deadline cancel ctx.
func (c *Client) Authenticate(ctx context.Context, key []byte) error {
	if c.chars == nil {
		return ErrNotInitialized
	}
	if len(key) != 16 {
		return fmt.Errorf("band: auth key must be 16 bytes, got %d", len(key))
	}

	// The notify stream must be live before the first write: the band
	// starts responding as soon as it sees the start request.
	frames, stop, err := c.chars.auth.Notify(ctx)
	if err != nil {
		return fmt.Errorf("band: subscribe auth notifications: %w", err)
	}
	defer stop()

	if err := c.chars.auth.Write(ctx, protocol.AuthStart()); err != nil {
		return fmt.Errorf("band: request handshake: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return fmt.Errorf("band: auth notification stream ended")
			}
			ev := protocol.DecodeAuthFrame(frame)
			switch ev.Kind {
			case protocol.AuthNone:
				// Not a handshake frame; keep reading.
			case protocol.AuthRestart:
				if err := c.chars.auth.Write(ctx, protocol.AuthStart()); err != nil {
					return fmt.Errorf("band: restart handshake: %w", err)
				}
			case protocol.AuthChallenge:
				ciphertext, err := bandcrypto.EncryptChallenge(key, ev.Nonce)
				if err != nil {
					return fmt.Errorf("band: encrypt challenge: %w", err)
				}
				if err := c.chars.auth.Write(ctx, protocol.EncodeAuthResponse(ciphertext)); err != nil {
					return fmt.Errorf("band: answer challenge: %w", err)
				}
			case protocol.AuthSuccess:
				c.authenticated = true
				return nil
			case protocol.AuthKeyRejected:
				c.authenticated = false
				return ErrInvalidAuthKey
			default:
				slog.Warn("[band] unrecognized auth response", "code", fmt.Sprintf("%#02x %#02x", ev.Code[0], ev.Code[1]))
			}
		}
	}
}

// Battery reads the battery level, charging flag, and last-charge time.
func (c *Client) Battery(ctx context.Context) (protocol.BatteryStatus, error) {
	if c.chars == nil {
		return protocol.BatteryStatus{}, ErrNotInitialized
	}
	value, err := c.chars.battery.Read(ctx)
	if err != nil {
		return protocol.BatteryStatus{}, fmt.Errorf("band: read battery: %w", err)
	}
	return protocol.DecodeBattery(value)
}

// BandTime reads the band's current clock.
func (c *Client) BandTime(ctx context.Context) (time.Time, error) {
	if c.chars == nil {
		return time.Time{}, ErrNotInitialized
	}
	value, err := c.chars.clock.Read(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("band: read time: %w", err)
	}
	return protocol.DecodeTime(value)
}

// SetBandTime sets the band's clock. The write is acknowledged and
// device-authorized, not fire-and-forget. Requires authentication.
func (c *Client) SetBandTime(ctx context.Context, t time.Time) error {
	if c.chars == nil {
		return ErrNotInitialized
	}
	if !c.authenticated {
		return ErrRequiresAuth
	}
	if err := c.chars.clock.WriteRequest(ctx, protocol.EncodeTimeWrite(t), true); err != nil {
		return fmt.Errorf("band: set time: %w", err)
	}
	return nil
}

// CurrentActivity reads today's step count, distance, and calories.
// Requires authentication.
func (c *Client) CurrentActivity(ctx context.Context) (protocol.Activity, error) {
	if c.chars == nil {
		return protocol.Activity{}, ErrNotInitialized
	}
	if !c.authenticated {
		return protocol.Activity{}, ErrRequiresAuth
	}
	value, err := c.chars.steps.Read(ctx)
	if err != nil {
		return protocol.Activity{}, fmt.Errorf("band: read activity: %w", err)
	}
	return protocol.DecodeActivity(value)
}

// FirmwareRevision reads the firmware version string.
func (c *Client) FirmwareRevision(ctx context.Context) (string, error) {
	if c.chars == nil {
		return "", ErrNotInitialized
	}
	value, err := c.chars.firmware.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("band: read firmware revision: %w", err)
	}
	if !utf8.Valid(value) {
		return "", ErrNotUTF8
	}
	return string(value), nil
}

// SetActivityGoal pushes the daily step target: a fire-and-forget toggle for
// goal notifications, then an acknowledged write carrying the step count.
// Requires authentication.
func (c *Client) SetActivityGoal(ctx context.Context, goal ActivityGoal) error {
	if c.chars == nil {
		return ErrNotInitialized
	}
	if !c.authenticated {
		return ErrRequiresAuth
	}
	if err := c.chars.config.Write(ctx, protocol.EncodeGoalNotify(goal.Notifications)); err != nil {
		return fmt.Errorf("band: toggle goal notifications: %w", err)
	}
	if err := c.chars.settings.WriteRequest(ctx, protocol.EncodeGoalSteps(goal.Steps), false); err != nil {
		return fmt.Errorf("band: set goal steps: %w", err)
	}
	return nil
}

// SetBandLock configures the band's screen lock. The PIN is validated
// client-side; an invalid one never reaches the band.
func (c *Client) SetBandLock(ctx context.Context, lock Lock) error {
	if c.chars == nil {
		return ErrNotInitialized
	}
	payload, err := protocol.EncodeLock(lock.PIN, lock.Enabled)
	if err != nil {
		return err
	}
	if err := c.chars.config.Write(ctx, payload); err != nil {
		return fmt.Errorf("band: set lock: %w", err)
	}
	return nil
}

// SendAlert shows a notification on the band's screen.
func (c *Client) SendAlert(ctx context.Context, alert protocol.Alert) error {
	if c.chars == nil {
		return ErrNotInitialized
	}
	if err := c.chars.alert.WriteRequest(ctx, protocol.EncodeAlert(alert), false); err != nil {
		return fmt.Errorf("band: send alert: %w", err)
	}
	return nil
}

// SetMediaInfo pushes the now-playing snapshot over the chunked-transfer
// channel; nil clears the band's media screen.
func (c *Client) SetMediaInfo(ctx context.Context, info *protocol.MediaInfo) error {
	if c.chars == nil {
		return ErrNotInitialized
	}
	return c.writeChunked(ctx, protocol.ChunkTypeMedia, protocol.EncodeMedia(info))
}

// writeChunked sends one message as sequential fire-and-forget chunk frames.
// There is no acknowledgement between chunks; a dropped one corrupts the
// message on the band with no signal back to us.
func (c *Client) writeChunked(ctx context.Context, messageType byte, payload []byte) error {
	for i, frame := range protocol.SplitChunks(messageType, payload) {
		if err := c.chars.chunked.Write(ctx, frame); err != nil {
			return fmt.Errorf("band: write chunk %d: %w", i, err)
		}
	}
	return nil
}

// StreamButtonEvents subscribes to the band's music screen and yields its
// button presses. Unrecognized frames are skipped; the stream ends when the
// underlying channel closes or ctx is cancelled.
func (c *Client) StreamButtonEvents(ctx context.Context) (<-chan protocol.MusicEvent, func(), error) {
	if c.chars == nil {
		return nil, nil, ErrNotInitialized
	}
	raw, stop, err := c.chars.music.Notify(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("band: subscribe music notifications: %w", err)
	}

	out := make(chan protocol.MusicEvent, 8)
	go func() {
		defer close(out)
		for frame := range raw {
			ev, ok := protocol.DecodeButtonEvent(frame)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, stop, nil
}
