package fec

import (
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/mirseo/updrm/engine/bitstream"
)

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(int64(n)))
	b := make([]byte, n)
	_, err := r.Read(b)
	require.NoError(t, err)
	return b
}

func wireSize(frame []byte, c *Codec) int {
	return (len(frame) - HeaderSize) / c.totalShards()
}

// corruptShard flips a data byte of shard i so its CRC no longer matches.
func corruptShard(frame []byte, c *Codec, i int) {
	frame[HeaderSize+i*wireSize(frame, c)+ChecksumSize] ^= 0xFF
}

func decodeFrame(t *testing.T, c *Codec, frame []byte) ([]byte, error) {
	t.Helper()
	shards, err := c.Unframe(bitstream.Bits(frame))
	require.NoError(t, err)
	return c.Decode(shards)
}

// Ensure payloads of various sizes survive an encode/decode round trip.
func TestCodecRoundTrip(t *testing.T) {
	c := NewDefaultCodec()
	for _, n := range []int{1, 9, 10, 13, 100, 1387, 4096} {
		payload := randomPayload(t, n)
		frame, err := c.Encode(payload)
		require.NoError(t, err)
		require.Equal(t, c.FrameSize(n), len(frame))

		got, err := decodeFrame(t, c, frame)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	}
}

// Ensure the frame header and the systematic layout are as documented.
func TestCodecFrameLayout(t *testing.T) {
	c := NewDefaultCodec()
	frame, err := c.Encode([]byte(`{"id":1}`))
	require.NoError(t, err)

	// 13 byte record header + 8 byte payload = 21 bytes, 3 bytes per shard.
	require.Equal(t, HeaderSize+14*(ChecksumSize+3), len(frame))
	require.Equal(t, uint64(14*(ChecksumSize+3)), encoding.Uint64(frame))

	// First data shard starts with the record version and length.
	first := frame[HeaderSize+ChecksumSize : HeaderSize+ChecksumSize+3]
	require.Equal(t, []byte{Version, 0, 0}, first)

	crc := crc32.Checksum(first, crc32cTable)
	require.Equal(t, crc, encoding.Uint32(frame[HeaderSize:]))
}

// Ensure up to parity-count damaged shards are tolerated and one more is
// reported as unrecoverable rather than returning wrong bytes.
func TestCodecErasureTolerance(t *testing.T) {
	c := NewDefaultCodec()
	payload := randomPayload(t, 500)
	frame, err := c.Encode(payload)
	require.NoError(t, err)

	damaged := append([]byte(nil), frame...)
	for _, i := range []int{0, 3, 9, 13} {
		corruptShard(damaged, c, i)
	}
	shards, err := c.Unframe(bitstream.Bits(damaged))
	require.NoError(t, err)
	require.Equal(t, 10, shards.Intact())
	require.False(t, shards.Available[0])
	require.False(t, shards.Available[13])

	got, err := c.Decode(shards)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	corruptShard(damaged, c, 5)
	_, err = decodeFrame(t, c, damaged)
	require.True(t, errors.Is(err, ErrUnrecoverable))
}

// Ensure shards beyond the end of a truncated carrier are treated as erased.
func TestCodecTruncatedCarrier(t *testing.T) {
	c := NewDefaultCodec()
	payload := randomPayload(t, 700)
	frame, err := c.Encode(payload)
	require.NoError(t, err)
	wire := wireSize(frame, c)

	// Drop the last three shards and half of the fourth.
	cut := frame[:len(frame)-3*wire-wire/2]
	shards, err := c.Unframe(bitstream.Bits(cut))
	require.NoError(t, err)
	require.Equal(t, 10, shards.Intact())
	got, err := c.Decode(shards)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	cut = frame[:len(frame)-5*wire]
	_, err = decodeFrame(t, c, cut)
	require.True(t, errors.Is(err, ErrUnrecoverable))
}

// Ensure implausible headers are reported as no frame.
func TestCodecNoFrame(t *testing.T) {
	c := NewDefaultCodec()

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte{0, 0, 0}},
		{"zero length", make([]byte, 64)},
		{"all ones", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"not a multiple of the shard count", []byte{0, 0, 0, 0, 0, 0, 0, 15}},
		{"shard smaller than its checksum", []byte{0, 0, 0, 0, 0, 0, 0, 56}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Unframe(bitstream.Bits(tc.data))
			require.True(t, errors.Is(err, ErrNoFrame), "got %v", err)
		})
	}
}

// Ensure a shard altered together with its CRC cannot slip through as a
// wrong payload.
func TestCodecDigestMismatch(t *testing.T) {
	c := NewDefaultCodec()
	payload := randomPayload(t, 200)
	frame, err := c.Encode(payload)
	require.NoError(t, err)
	wire := wireSize(frame, c)

	start := HeaderSize + 2*wire
	data := frame[start+ChecksumSize : start+wire]
	data[0] ^= 0x01
	encoding.PutUint32(frame[start:], crc32.Checksum(data, crc32cTable))

	_, err = decodeFrame(t, c, frame)
	require.True(t, errors.Is(err, ErrUnrecoverable))
}

// Ensure MaxPayload is the inverse of FrameSize.
func TestCodecMaxPayload(t *testing.T) {
	c := NewDefaultCodec()
	for _, capacity := range []int{106, 500, 2048, 100000} {
		max := c.MaxPayload(capacity)
		require.LessOrEqual(t, c.FrameSize(max), capacity)
		require.Greater(t, c.FrameSize(max+1), capacity)
	}
	require.Equal(t, 0, c.MaxPayload(HeaderSize))
	require.Equal(t, 1397, c.MaxPayload(2048))
}

func TestNewCodecInvalid(t *testing.T) {
	_, err := NewCodec(0, 4)
	require.Error(t, err)
	_, err = NewCodec(200, 100)
	require.Error(t, err)

	c, err := NewCodec(4, 2)
	require.NoError(t, err)
	require.Equal(t, 4, c.DataShards())
	require.Equal(t, 2, c.ParityShards())
}

// Ensure a plausible header followed by shards that all fail their checksum
// reads as no frame rather than as a damaged one.
func TestCodecPlausibleHeaderOverNoise(t *testing.T) {
	c := NewDefaultCodec()
	data := make([]byte, HeaderSize+84)
	encoding.PutUint64(data, 84)

	_, err := c.Unframe(bitstream.Bits(data))
	require.True(t, errors.Is(err, ErrNoFrame), "got %v", err)

	// A single surviving shard is enough to report the frame as present.
	frame, err := c.Encode([]byte("x"))
	require.NoError(t, err)
	for i := 1; i < 14; i++ {
		corruptShard(frame, c, i)
	}
	shards, err := c.Unframe(bitstream.Bits(frame))
	require.NoError(t, err)
	require.Equal(t, 1, shards.Intact())
	_, err = c.Decode(shards)
	require.True(t, errors.Is(err, ErrUnrecoverable))
}
