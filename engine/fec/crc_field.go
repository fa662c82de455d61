package fec

import (
	"errors"
	"hash/crc32"
)

var (
	crc32cTable = crc32.MakeTable(crc32.Castagnoli)

	errCRCMismatch = errors.New("crc didn't match")
)

// crcField is used to perform a CRC-32C check on a shard.
type crcField struct {
	StartOffset int
}

// SaveOffset sets the position to fill the CRC digest.
func (f *crcField) SaveOffset(in int) {
	f.StartOffset = in
}

// ReserveSize sets the number of bytes to reserve for the CRC digest.
func (f *crcField) ReserveSize() int {
	return ChecksumSize
}

// Fill sets the CRC digest.
func (f *crcField) Fill(curOffset int, buf []byte) error {
	crc := crc32.Checksum(buf[f.StartOffset+ChecksumSize:curOffset], crc32cTable)
	encoding.PutUint32(buf[f.StartOffset:], crc)
	return nil
}

// Check the CRC digest.
func (f *crcField) Check(curOffset int, buf []byte) error {
	crc := crc32.Checksum(buf[f.StartOffset+ChecksumSize:curOffset], crc32cTable)
	if crc != encoding.Uint32(buf[f.StartOffset:]) {
		return errCRCMismatch
	}
	return nil
}
