// Package binwire writes a container graph to a self-contained binary frame
// and reads it back into a registry.
//
// Frame layout, little-endian:
//
//	[0:4)   magic "SLB1"
//	[4:6)   version
//	[6:8)   flags
//	[8:12)  record count
//	[12:16) body length as stored
//	body    records, zstd-compressed when FlagZstd is set
//	[-4:)   CRC32 (IEEE) of everything before it, when FlagChecksum is set
//
// A record is the container's schema followed by its raw buffer (tag header
// and field data). Reference slots hold frame-local record numbers starting
// at 1 instead of registry IDs; Empty and Wild are kept as is.
package binwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	Magic      = 0x31424c53 // "SLB1"
	VersionV1  = 1
	HeaderSize = 16
	TrailerCRC = 4

	FlagZstd     = 0x0001
	FlagChecksum = 0x0002
	knownFlags   = FlagZstd | FlagChecksum
)

var (
	ErrShortFrame  = errors.New("binwire: buffer too short for frame")
	ErrBadMagic    = errors.New("binwire: invalid magic")
	ErrBadVersion  = errors.New("binwire: unsupported version")
	ErrBadChecksum = errors.New("binwire: crc mismatch")
	ErrCorrupt     = errors.New("binwire: corrupt record")
)

type Header struct {
	Magic   uint32
	Version uint16
	Flags   uint16
	Records uint32
	BodyLen uint32
}

func encodeHeader(buf []byte, h Header) []byte {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], h.Magic)
	binary.LittleEndian.PutUint16(hdr[4:], h.Version)
	binary.LittleEndian.PutUint16(hdr[6:], h.Flags)
	binary.LittleEndian.PutUint32(hdr[8:], h.Records)
	binary.LittleEndian.PutUint32(hdr[12:], h.BodyLen)
	return append(buf, hdr[:]...)
}

// ParseHeader reads and checks the frame header. It does not verify the
// checksum; Decode does.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortFrame
	}
	h := Header{
		Magic:   binary.LittleEndian.Uint32(buf[0:]),
		Version: binary.LittleEndian.Uint16(buf[4:]),
		Flags:   binary.LittleEndian.Uint16(buf[6:]),
		Records: binary.LittleEndian.Uint32(buf[8:]),
		BodyLen: binary.LittleEndian.Uint32(buf[12:]),
	}
	if h.Magic != Magic {
		return h, ErrBadMagic
	}
	if h.Version != VersionV1 || h.Flags&^knownFlags != 0 {
		return h, fmt.Errorf("%w: version %d flags %#04x", ErrBadVersion, h.Version, h.Flags)
	}
	return h, nil
}

// frameLen is the exact byte length a frame with h must have.
func (h Header) frameLen() int {
	n := HeaderSize + int(h.BodyLen)
	if h.Flags&FlagChecksum != 0 {
		n += TrailerCRC
	}
	return n
}

func appendCRC(out []byte) []byte {
	crc := crc32.ChecksumIEEE(out)
	return binary.LittleEndian.AppendUint32(out, crc)
}

func checkCRC(frame []byte) error {
	end := len(frame) - TrailerCRC
	want := binary.LittleEndian.Uint32(frame[end:])
	if crc32.ChecksumIEEE(frame[:end]) != want {
		return ErrBadChecksum
	}
	return nil
}
