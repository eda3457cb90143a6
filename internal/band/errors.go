package band

import "errors"

var (
	// ErrMissingServicesOrChars means the device's GATT tree lacks at least
	// one required service/characteristic pair. Not retryable on the same
	// firmware; no partial characteristic set is retained.
	ErrMissingServicesOrChars = errors.New("band: required services or characteristics missing")
	// ErrNotInitialized means Initialize has not completed on this client.
	ErrNotInitialized = errors.New("band: not initialized")
	// ErrRequiresAuth means the operation needs a successful Authenticate
	// call first.
	ErrRequiresAuth = errors.New("band: operation requires authentication")
	// ErrInvalidAuthKey means the band explicitly rejected the auth key.
	ErrInvalidAuthKey = errors.New("band: device rejected auth key")
	// ErrNotUTF8 means the band returned text that does not decode.
	ErrNotUTF8 = errors.New("band: value is not valid utf-8")
)
