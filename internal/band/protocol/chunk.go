package protocol

// ChunkSize is the usable payload per chunked-transfer write; the remaining
// 3 bytes of the 20-byte ATT payload carry the frame header.
const ChunkSize = 17

// ChunkTypeMedia is the chunked-transfer message type for now-playing state.
const ChunkTypeMedia = 0x03

// Chunk position markers OR'd into the frame's flag byte.
const (
	chunkFirst  = 0x00
	chunkMiddle = 0x40
	chunkLast   = 0x80
	chunkOnly   = 0xC0
)

// SplitChunks frames a payload for the chunked-transfer characteristic. Each
// frame is [0x00, messageType|positionMarker, chunkIndex&0xFF] followed by up
// to 17 payload bytes. An empty payload still produces one (empty) frame so
// the band sees a complete message.
//
// Chunks are written fire-and-forget with no acknowledgement; a dropped chunk
// corrupts the reassembled message on the band with no client-visible signal.
func SplitChunks(messageType byte, payload []byte) [][]byte {
	count := (len(payload) + ChunkSize - 1) / ChunkSize
	if count == 0 {
		count = 1
	}

	frames := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		chunk := payload[i*ChunkSize : min((i+1)*ChunkSize, len(payload))]

		marker := byte(chunkMiddle)
		switch {
		case count == 1:
			marker = chunkOnly
		case i == 0:
			marker = chunkFirst
		case i == count-1:
			marker = chunkLast
		}

		frame := make([]byte, 0, 3+len(chunk))
		frame = append(frame, 0x00, messageType|marker, byte(i))
		frame = append(frame, chunk...)
		frames = append(frames, frame)
	}
	return frames
}
