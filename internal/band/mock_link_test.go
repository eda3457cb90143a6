package band

import (
	"context"

	"github.com/google/uuid"

	"github.com/bandmate/bandmate/internal/bluez"
)

// fakeWrite records one write issued against a fake characteristic.
type fakeWrite struct {
	data             []byte
	request          bool
	prepareAuthorize bool
}

// fakeChar is an in-memory bluez.Characteristic. Notifications are fed by
// pushing into notifyCh; onWrite lets a test answer writes, which is how the
// auth handshake is scripted.
type fakeChar struct {
	readValue []byte
	readErr   error
	writeErr  error
	notifyErr error

	writes   []fakeWrite
	notifyCh chan []byte
	onWrite  func(data []byte)
	stopped  bool
}

func newFakeChar() *fakeChar {
	return &fakeChar{notifyCh: make(chan []byte, 16)}
}

func (c *fakeChar) Read(ctx context.Context) ([]byte, error) {
	return c.readValue, c.readErr
}

func (c *fakeChar) Write(ctx context.Context, data []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, fakeWrite{data: append([]byte(nil), data...)})
	if c.onWrite != nil {
		c.onWrite(data)
	}
	return nil
}

func (c *fakeChar) WriteRequest(ctx context.Context, data []byte, prepareAuthorize bool) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, fakeWrite{
		data:             append([]byte(nil), data...),
		request:          true,
		prepareAuthorize: prepareAuthorize,
	})
	if c.onWrite != nil {
		c.onWrite(data)
	}
	return nil
}

func (c *fakeChar) Notify(ctx context.Context) (<-chan []byte, func(), error) {
	if c.notifyErr != nil {
		return nil, nil, c.notifyErr
	}
	return c.notifyCh, func() { c.stopped = true }, nil
}

// fakeLink is an in-memory Link backed by a fixed characteristic tree.
type fakeLink struct {
	connected bool
	chars     map[uuid.UUID]map[uuid.UUID]bluez.Characteristic

	connectErr error
	charsErr   error

	connectCalls    int
	disconnectCalls int
	waitCalls       int
}

func (l *fakeLink) Connect(ctx context.Context) error {
	l.connectCalls++
	if l.connectErr != nil {
		return l.connectErr
	}
	l.connected = true
	return nil
}

func (l *fakeLink) Disconnect(ctx context.Context) error {
	l.disconnectCalls++
	l.connected = false
	return nil
}

func (l *fakeLink) Connected(ctx context.Context) (bool, error) {
	return l.connected, nil
}

func (l *fakeLink) WaitServicesResolved(ctx context.Context) error {
	l.waitCalls++
	return nil
}

func (l *fakeLink) Characteristics(ctx context.Context) (map[uuid.UUID]map[uuid.UUID]bluez.Characteristic, error) {
	if l.charsErr != nil {
		return nil, l.charsErr
	}
	return l.chars, nil
}

// fakeBand bundles a link with named handles on every characteristic the
// client resolves.
type fakeBand struct {
	link     *fakeLink
	battery  *fakeChar
	steps    *fakeChar
	clock    *fakeChar
	config   *fakeChar
	settings *fakeChar
	auth     *fakeChar
	chunked  *fakeChar
	music    *fakeChar
	alert    *fakeChar
	firmware *fakeChar
}

func newFakeBand() *fakeBand {
	b := &fakeBand{
		battery:  newFakeChar(),
		steps:    newFakeChar(),
		clock:    newFakeChar(),
		config:   newFakeChar(),
		settings: newFakeChar(),
		auth:     newFakeChar(),
		chunked:  newFakeChar(),
		music:    newFakeChar(),
		alert:    newFakeChar(),
		firmware: newFakeChar(),
	}
	b.link = &fakeLink{
		chars: map[uuid.UUID]map[uuid.UUID]bluez.Characteristic{
			ServiceBand0: {
				CharBattery:  b.battery,
				CharSteps:    b.steps,
				CharTime:     b.clock,
				CharConfig:   b.config,
				CharSettings: b.settings,
			},
			ServiceBand1: {
				CharAuth:    b.auth,
				CharChunked: b.chunked,
				CharMusic:   b.music,
			},
			ServiceAlertNotification: {
				CharAlert: b.alert,
			},
			ServiceDeviceInformation: {
				CharFirmware: b.firmware,
			},
		},
	}
	return b
}
