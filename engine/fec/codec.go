// Package fec implements the forward-error-correction framing that turns a
// payload into a redundant, shard-based wire representation and back.
//
// A frame is laid out as follows (all integers big-endian):
//
//	stream_length   int64   byte length of the shard stream that follows
//	shard[0..N)             N = data shards + parity shards
//	  crc32c        uint32  CRC-32C of the shard data
//	  data          [S]byte
//
// The data shards carry a record that is zero-padded to a multiple of the
// data shard count:
//
//	version         int8
//	payload_length  uint32
//	digest          [8]byte truncated BLAKE3-256 of the payload
//	payload         [payload_length]byte
//
// Parity shards are computed with a systematic Reed-Solomon code over
// GF(2^8), so any data-shard-count intact shards recover the record. The
// per-shard CRC never enters the erasure math; it only decides which shards
// are treated as erased.
package fec

import (
	"bytes"
	"math"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"storj.io/infectious"

	"github.com/mirseo/updrm/engine/bitstream"
)

const (
	// DefaultDataShards is the number of shards carrying payload bytes.
	DefaultDataShards = 10

	// DefaultParityShards is the number of redundancy shards.
	DefaultParityShards = 4

	// HeaderSize is the size of the stream length header.
	HeaderSize = 8

	// ChecksumSize is the size of the per-shard CRC-32C.
	ChecksumSize = 4

	// Version is the record version written by Encode.
	Version = 1

	digestSize       = 8
	recordHeaderSize = 1 + 4 + digestSize
	maxPayloadSize   = math.MaxUint32
)

var (
	// ErrNoFrame is returned by Unframe when the carrier holds no plausible
	// frame header.
	ErrNoFrame = errors.New("no frame header found")

	// ErrUnrecoverable is returned by Decode when too few shards survived to
	// reconstruct the record, or the reconstructed record is inconsistent.
	ErrUnrecoverable = errors.New("frame is unrecoverable")

	// ErrPayloadTooLarge is returned by Encode when the payload cannot be
	// described by the record length field.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Codec splits payloads into data and parity shards and reassembles them.
// A Codec holds no per-call state and is safe for concurrent use.
type Codec struct {
	dataShards   int
	parityShards int
	fec          *infectious.FEC
}

// NewCodec creates a Codec with the given shard counts.
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards < 1 || parityShards < 0 || dataShards+parityShards > 256 {
		return nil, errors.Errorf("invalid shard counts %d+%d", dataShards, parityShards)
	}
	f, err := infectious.NewFEC(dataShards, dataShards+parityShards)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Reed-Solomon code")
	}
	return &Codec{
		dataShards:   dataShards,
		parityShards: parityShards,
		fec:          f,
	}, nil
}

// NewDefaultCodec creates a Codec with the default 10+4 shard layout.
func NewDefaultCodec() *Codec {
	c, err := NewCodec(DefaultDataShards, DefaultParityShards)
	if err != nil {
		panic(err)
	}
	return c
}

// DataShards returns the number of data shards.
func (c *Codec) DataShards() int {
	return c.dataShards
}

// ParityShards returns the number of parity shards.
func (c *Codec) ParityShards() int {
	return c.parityShards
}

func (c *Codec) totalShards() int {
	return c.dataShards + c.parityShards
}

// shardSize returns the shard data size for a record of the given length.
func (c *Codec) shardSize(recordLen int) int {
	return (recordLen + c.dataShards - 1) / c.dataShards
}

// FrameSize returns the number of bytes Encode produces for a payload of
// payloadLen bytes.
func (c *Codec) FrameSize(payloadLen int) int {
	wire := ChecksumSize + c.shardSize(recordHeaderSize+payloadLen)
	return HeaderSize + c.totalShards()*wire
}

// MaxPayload returns the largest payload whose frame fits in frameBytes, or
// 0 if none does.
func (c *Codec) MaxPayload(frameBytes int) int {
	wire := (frameBytes - HeaderSize) / c.totalShards()
	size := wire - ChecksumSize
	if size <= 0 {
		return 0
	}
	max := size*c.dataShards - recordHeaderSize
	if max < 0 {
		return 0
	}
	if max > maxPayloadSize {
		return maxPayloadSize
	}
	return max
}

// Encode frames payload into its wire representation.
func (c *Codec) Encode(payload []byte) ([]byte, error) {
	if uint64(len(payload)) > maxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	rec, err := encode(&record{payload: payload})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode record")
	}

	size := c.shardSize(len(rec))
	padded := make([]byte, size*c.dataShards)
	copy(padded, rec)

	f := &frame{shards: make([][]byte, c.totalShards())}
	err = c.fec.Encode(padded, func(s infectious.Share) {
		f.shards[s.Number] = append([]byte(nil), s.Data...)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute parity shards")
	}
	return encode(f)
}

// Shards is the result of reading a frame back from a carrier. Data[i] is
// only meaningful when Available[i] is true.
type Shards struct {
	Data      [][]byte
	Available []bool
	Size      int
}

// Intact returns the number of available shards.
func (s *Shards) Intact() int {
	n := 0
	for _, ok := range s.Available {
		if ok {
			n++
		}
	}
	return n
}

// Unframe reads the frame header and every shard from src. A shard is marked
// unavailable when any of its bits cannot be read or its CRC does not match;
// its bytes are never fed to reconstruction. A header followed by no intact
// shard at all is indistinguishable from noise and reported as ErrNoFrame.
func (c *Codec) Unframe(src bitstream.Source) (*Shards, error) {
	hdr, ok := bitstream.ReadBytes(src, 0, HeaderSize)
	if !ok {
		return nil, errors.Wrap(ErrNoFrame, "header unreadable")
	}
	streamLen, err := newByteDecoder(hdr).Int64()
	if err != nil {
		return nil, errors.Wrap(ErrNoFrame, err.Error())
	}
	wire, err := c.wireShardSize(uint64(streamLen))
	if err != nil {
		return nil, err
	}

	shards := &Shards{
		Data:      make([][]byte, c.totalShards()),
		Available: make([]bool, c.totalShards()),
		Size:      wire - ChecksumSize,
	}
	for i := range shards.Data {
		buf, ok := bitstream.ReadBytes(src, HeaderSize+i*wire, wire)
		if !ok {
			continue
		}
		var s shard
		if err := s.Decode(newByteDecoder(buf), shards.Size); err != nil {
			continue
		}
		shards.Data[i] = s.data
		shards.Available[i] = true
	}
	if shards.Intact() == 0 {
		return nil, errors.Wrap(ErrNoFrame, "no shard matches its checksum")
	}
	return shards, nil
}

// wireShardSize validates a stream length read from a header and returns the
// size of one wire shard.
func (c *Codec) wireShardSize(streamLen uint64) (int, error) {
	n := uint64(c.totalShards())
	if streamLen == 0 || streamLen%n != 0 {
		return 0, errors.Wrapf(ErrNoFrame, "implausible stream length %d", streamLen)
	}
	var (
		wire = streamLen / n
		min  = uint64(ChecksumSize + c.shardSize(recordHeaderSize+1))
		max  = uint64(ChecksumSize) + (uint64(recordHeaderSize)+maxPayloadSize+uint64(c.dataShards)-1)/uint64(c.dataShards)
	)
	if wire < min || wire > max {
		return 0, errors.Wrapf(ErrNoFrame, "implausible shard size %d", wire)
	}
	return int(wire), nil
}

// Decode reconstructs the payload from the available shards.
func (c *Codec) Decode(s *Shards) ([]byte, error) {
	if len(s.Available) != c.totalShards() || len(s.Data) != c.totalShards() {
		return nil, errors.Errorf("expected %d shards, got %d", c.totalShards(), len(s.Available))
	}
	intact := s.Intact()
	if intact < c.dataShards {
		return nil, errors.Wrapf(ErrUnrecoverable, "%d of %d shards intact, %d required",
			intact, c.totalShards(), c.dataShards)
	}

	shares := make([]infectious.Share, 0, intact)
	for i, ok := range s.Available {
		if ok {
			shares = append(shares, infectious.Share{Number: i, Data: s.Data[i]})
		}
	}
	padded := make([]byte, s.Size*c.dataShards)
	err := c.fec.Rebuild(shares, func(sh infectious.Share) {
		copy(padded[sh.Number*s.Size:], sh.Data)
	})
	if err != nil {
		return nil, errors.Wrap(ErrUnrecoverable, err.Error())
	}

	var rec record
	if err := rec.Decode(newByteDecoder(padded)); err != nil {
		return nil, err
	}
	return rec.payload, nil
}

// frame is the stream length header followed by checksummed shards.
type frame struct {
	shards [][]byte
}

func (f *frame) Encode(e packetEncoder) error {
	size := 0
	if len(f.shards) > 0 {
		size = len(f.shards[0])
	}
	e.PutInt64(int64(len(f.shards) * (ChecksumSize + size)))
	for _, data := range f.shards {
		s := shard{data: data}
		if err := s.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// shard is one wire shard: CRC-32C followed by the shard data.
type shard struct {
	data []byte
}

func (s *shard) Encode(e packetEncoder) error {
	e.Push(&crcField{})
	if err := e.PutRawBytes(s.data); err != nil {
		return err
	}
	e.Pop()
	return nil
}

func (s *shard) Decode(d *byteDecoder, size int) error {
	if err := d.Push(&crcField{}); err != nil {
		return err
	}
	data, err := d.RawBytes(size)
	if err != nil {
		return err
	}
	if err := d.Pop(); err != nil {
		return err
	}
	s.data = data
	return nil
}

// record is the versioned, digest-protected payload carried by the data
// shards.
type record struct {
	payload []byte
}

func digest(payload []byte) []byte {
	sum := blake3.Sum256(payload)
	return sum[:digestSize]
}

func (r *record) Encode(e packetEncoder) error {
	e.PutInt8(Version)
	e.PutInt32(int32(uint32(len(r.payload))))
	if err := e.PutRawBytes(digest(r.payload)); err != nil {
		return err
	}
	return e.PutRawBytes(r.payload)
}

func (r *record) Decode(d *byteDecoder) error {
	version, err := d.Int8()
	if err != nil {
		return errors.Wrap(ErrUnrecoverable, "record header truncated")
	}
	if version != Version {
		return errors.Wrapf(ErrUnrecoverable, "unknown record version %d", version)
	}
	length, err := d.Int32()
	if err != nil {
		return errors.Wrap(ErrUnrecoverable, "record header truncated")
	}
	sum, err := d.RawBytes(digestSize)
	if err != nil {
		return errors.Wrap(ErrUnrecoverable, "record header truncated")
	}
	payload, err := d.RawBytes(int(uint32(length)))
	if err != nil {
		return errors.Wrapf(ErrUnrecoverable, "record declares %d payload bytes", uint32(length))
	}
	if !bytes.Equal(sum, digest(payload)) {
		return errors.Wrap(ErrUnrecoverable, "payload digest mismatch")
	}
	r.payload = append([]byte(nil), payload...)
	return nil
}
