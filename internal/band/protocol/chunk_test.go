package protocol

import (
	"bytes"
	"testing"
)

func TestSplitChunksCounts(t *testing.T) {
	tests := []struct {
		payloadLen int
		wantFrames int
	}{
		{0, 1},
		{1, 1},
		{17, 1},
		{18, 2},
		{34, 2},
		{35, 3},
	}

	for _, tt := range tests {
		frames := SplitChunks(ChunkTypeMedia, make([]byte, tt.payloadLen))
		if len(frames) != tt.wantFrames {
			t.Errorf("SplitChunks(%d bytes) = %d frames, want %d",
				tt.payloadLen, len(frames), tt.wantFrames)
		}
	}
}

func TestSplitChunksSingleFrame(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	frames := SplitChunks(ChunkTypeMedia, payload)
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}

	// A lone chunk carries both the first and last markers.
	want := append([]byte{0x00, 0x03 | 0xC0, 0x00}, payload...)
	if !bytes.Equal(frames[0], want) {
		t.Errorf("frame = % x, want % x", frames[0], want)
	}
}

func TestSplitChunksEmptyPayload(t *testing.T) {
	frames := SplitChunks(ChunkTypeMedia, nil)
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}
	want := []byte{0x00, 0xC3, 0x00}
	if !bytes.Equal(frames[0], want) {
		t.Errorf("frame = % x, want % x", frames[0], want)
	}
}

func TestSplitChunksMarkersAndReassembly(t *testing.T) {
	payload := make([]byte, 40) // 3 chunks: 17 + 17 + 6
	for i := range payload {
		payload[i] = byte(i)
	}

	frames := SplitChunks(ChunkTypeMedia, payload)
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}

	wantFlags := []byte{0x03 | 0x00, 0x03 | 0x40, 0x03 | 0x80}
	var rebuilt []byte
	for i, frame := range frames {
		if frame[0] != 0x00 {
			t.Errorf("frame %d leading byte = %#02x, want 0x00", i, frame[0])
		}
		if frame[1] != wantFlags[i] {
			t.Errorf("frame %d flags = %#02x, want %#02x", i, frame[1], wantFlags[i])
		}
		if frame[2] != byte(i) {
			t.Errorf("frame %d index = %d, want %d", i, frame[2], i)
		}
		if len(frame) > 3+ChunkSize {
			t.Errorf("frame %d payload = %d bytes, want at most %d", i, len(frame)-3, ChunkSize)
		}
		rebuilt = append(rebuilt, frame[3:]...)
	}
	if !bytes.Equal(rebuilt, payload) {
		t.Errorf("reassembled payload does not match input")
	}
}
