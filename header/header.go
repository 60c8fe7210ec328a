// Package header implements the binary codec for the two per-eraseblock UBI
// metadata structures: the erase-counter (EC) header and the volume
// identifier (VID) header. Everything in here is a pure function over byte
// slices; no I/O happens at this level.
//
// Both headers are 64 bytes. All multi-byte fields are big-endian, and the
// last four bytes of each header hold a CRC-32 (see Checksum) over the 60
// bytes preceding it.
package header

import (
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

const (
	// ECHeaderSize is the serialized size of an EC header, in bytes.
	ECHeaderSize = 64
	// VIDHeaderSize is the serialized size of a VID header, in bytes.
	VIDHeaderSize = 64

	// ECMagic is the ASCII string "UBI#".
	ECMagic uint32 = 0x55424923
	// VIDMagic is the ASCII string "UBI!".
	VIDMagic uint32 = 0x55424921

	crcOffset = 60
)

// Volume type values as stored in the VID header.
const (
	VolTypeDynamic uint8 = 1
	VolTypeStatic  uint8 = 2
)

// EC is the erase-counter header, the first structure in every physical
// eraseblock. It records the block's wear state and where the rest of the
// metadata and the data live.
type EC struct {
	Version      uint8
	EraseCounter uint64
	VIDHdrOffset uint32
	DataOffset   uint32
}

// VID is the volume identifier header, the second structure in every
// physical eraseblock. It records which volume the block belongs to and
// where it sits inside that volume.
type VID struct {
	Version  uint8
	VolType  uint8
	CopyFlag uint8
	Compat   uint8
	VolumeID uint32
	Lnum     uint32
	// DataSize is the payload byte count of this eraseblock. Only the final
	// eraseblock of a static volume carries it; everywhere else it is zero.
	DataSize uint32
	// UsedEBs is the total eraseblock count of a static volume, carried by
	// its final eraseblock only.
	UsedEBs uint32
	DataPad uint32
	DataCRC uint32
	Sqnum   uint64
}

// EncodeEC serializes an EC header into a fresh 64-byte slice, including the
// trailing checksum. It never fails for in-range field values; range checks
// are the caller's contract.
func EncodeEC(hdr EC) []byte {
	buf := make([]byte, ECHeaderSize)
	writer := bytewriter.New(buf)

	binary.Write(writer, binary.BigEndian, ECMagic)
	binary.Write(writer, binary.BigEndian, hdr.Version)
	writer.Write(make([]byte, 3))
	binary.Write(writer, binary.BigEndian, hdr.EraseCounter)
	binary.Write(writer, binary.BigEndian, hdr.VIDHdrOffset)
	binary.Write(writer, binary.BigEndian, hdr.DataOffset)

	binary.BigEndian.PutUint32(buf[crcOffset:], Checksum(buf[:crcOffset]))
	return buf
}

// EncodeVID serializes a VID header into a fresh 64-byte slice, including
// the trailing checksum.
func EncodeVID(hdr VID) []byte {
	buf := make([]byte, VIDHeaderSize)
	writer := bytewriter.New(buf)

	binary.Write(writer, binary.BigEndian, VIDMagic)
	binary.Write(writer, binary.BigEndian, hdr.Version)
	binary.Write(writer, binary.BigEndian, hdr.VolType)
	binary.Write(writer, binary.BigEndian, hdr.CopyFlag)
	binary.Write(writer, binary.BigEndian, hdr.Compat)
	binary.Write(writer, binary.BigEndian, hdr.VolumeID)
	binary.Write(writer, binary.BigEndian, hdr.Lnum)
	writer.Write(make([]byte, 4))
	binary.Write(writer, binary.BigEndian, hdr.DataSize)
	binary.Write(writer, binary.BigEndian, hdr.UsedEBs)
	binary.Write(writer, binary.BigEndian, hdr.DataPad)
	binary.Write(writer, binary.BigEndian, hdr.DataCRC)
	writer.Write(make([]byte, 4))
	binary.Write(writer, binary.BigEndian, hdr.Sqnum)

	binary.BigEndian.PutUint32(buf[crcOffset:], Checksum(buf[:crcOffset]))
	return buf
}

// DecodeEC deserializes an EC header, verifying its magic and checksum.
func DecodeEC(data []byte) (EC, error) {
	if err := verify(data, ECHeaderSize, ECMagic, "EC"); err != nil {
		return EC{}, err
	}
	return EC{
		Version:      data[4],
		EraseCounter: binary.BigEndian.Uint64(data[8:]),
		VIDHdrOffset: binary.BigEndian.Uint32(data[16:]),
		DataOffset:   binary.BigEndian.Uint32(data[20:]),
	}, nil
}

// DecodeVID deserializes a VID header, verifying its magic and checksum.
func DecodeVID(data []byte) (VID, error) {
	if err := verify(data, VIDHeaderSize, VIDMagic, "VID"); err != nil {
		return VID{}, err
	}
	return VID{
		Version:  data[4],
		VolType:  data[5],
		CopyFlag: data[6],
		Compat:   data[7],
		VolumeID: binary.BigEndian.Uint32(data[8:]),
		Lnum:     binary.BigEndian.Uint32(data[12:]),
		DataSize: binary.BigEndian.Uint32(data[20:]),
		UsedEBs:  binary.BigEndian.Uint32(data[24:]),
		DataPad:  binary.BigEndian.Uint32(data[28:]),
		DataCRC:  binary.BigEndian.Uint32(data[32:]),
		Sqnum:    binary.BigEndian.Uint64(data[40:]),
	}, nil
}

func verify(data []byte, size int, magic uint32, name string) error {
	if len(data) < size {
		return fmt.Errorf(
			"%s header needs %d bytes, got %d", name, size, len(data))
	}
	if got := binary.BigEndian.Uint32(data); got != magic {
		return fmt.Errorf(
			"bad %s header magic: expected %#08x, got %#08x", name, magic, got)
	}
	stored := binary.BigEndian.Uint32(data[crcOffset:])
	if computed := Checksum(data[:crcOffset]); computed != stored {
		return fmt.Errorf(
			"bad %s header checksum: expected %#08x, got %#08x",
			name, computed, stored)
	}
	return nil
}
