package protocol

// Authentication runs over one characteristic pair: notifications from the
// band, plain writes back. Every band-to-client frame starts with 0x10
// followed by a 2-byte code; anything else on the channel is ignored.

// AuthStart is the client's handshake-begin request.
func AuthStart() []byte {
	return []byte{0x02, 0x00}
}

// EncodeAuthResponse renders the challenge answer: 0x03, 0x00, then the
// first 16 bytes of the encrypted nonce.
func EncodeAuthResponse(ciphertext []byte) []byte {
	b := make([]byte, 0, 18)
	b = append(b, 0x03, 0x00)
	b = append(b, ciphertext[:16]...)
	return b
}

// AuthEventKind tags a decoded handshake frame.
type AuthEventKind int

const (
	// AuthNone marks a frame that is not part of the handshake at all
	// (wrong prefix or too short). Keep reading.
	AuthNone AuthEventKind = iota
	// AuthRestart means the band wants the start request resent.
	AuthRestart
	// AuthChallenge carries the 16-byte nonce to encrypt.
	AuthChallenge
	// AuthSuccess terminates the handshake successfully.
	AuthSuccess
	// AuthKeyRejected means the band refused the key.
	AuthKeyRejected
	// AuthUnknown is a well-formed frame with a code this client does not
	// recognize. Log it and keep waiting.
	AuthUnknown
)

// AuthEvent is one decoded handshake frame.
type AuthEvent struct {
	Kind  AuthEventKind
	Nonce []byte  // set for AuthChallenge
	Code  [2]byte // set for AuthUnknown
}

// DecodeAuthFrame classifies a notification received during the handshake.
func DecodeAuthFrame(b []byte) AuthEvent {
	if len(b) < 3 || b[0] != 0x10 {
		return AuthEvent{Kind: AuthNone}
	}
	switch {
	case b[1] == 0x01 && b[2] == 0x01:
		return AuthEvent{Kind: AuthRestart}
	case b[1] == 0x02 && b[2] == 0x01:
		if len(b) < 19 {
			return AuthEvent{Kind: AuthUnknown, Code: [2]byte{b[1], b[2]}}
		}
		nonce := make([]byte, 16)
		copy(nonce, b[3:19])
		return AuthEvent{Kind: AuthChallenge, Nonce: nonce}
	case b[1] == 0x03 && b[2] == 0x01:
		return AuthEvent{Kind: AuthSuccess}
	case b[1] == 0x03 && b[2] == 0x08:
		return AuthEvent{Kind: AuthKeyRejected}
	}
	return AuthEvent{Kind: AuthUnknown, Code: [2]byte{b[1], b[2]}}
}
