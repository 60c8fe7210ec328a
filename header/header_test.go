package header_test

import (
	"encoding/binary"
	"testing"

	"github.com/mtdtools/ubigen/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeECLayout(t *testing.T) {
	encoded := header.EncodeEC(header.EC{
		Version:      1,
		EraseCounter: 0x0102030405060708,
		VIDHdrOffset: 4096,
		DataOffset:   4160,
	})
	require.Len(t, encoded, header.ECHeaderSize)

	assert.Equal(t, []byte("UBI#"), encoded[0:4], "wrong magic")
	assert.EqualValues(t, 1, encoded[4], "wrong version")
	assert.Equal(
		t,
		uint64(0x0102030405060708),
		binary.BigEndian.Uint64(encoded[8:]),
		"wrong erase counter")
	assert.EqualValues(t, 4096, binary.BigEndian.Uint32(encoded[16:]), "wrong VID header offset")
	assert.EqualValues(t, 4160, binary.BigEndian.Uint32(encoded[20:]), "wrong data offset")
	assert.Equal(
		t,
		header.Checksum(encoded[:60]),
		binary.BigEndian.Uint32(encoded[60:]),
		"stored checksum does not cover the first 60 bytes")
}

func TestEncodeVIDLayout(t *testing.T) {
	encoded := header.EncodeVID(header.VID{
		Version:  1,
		VolType:  header.VolTypeStatic,
		VolumeID: 5,
		Lnum:     17,
		DataSize: 27248,
		UsedEBs:  18,
		DataPad:  96,
		DataCRC:  0xDEADBEEF,
		Sqnum:    0x1112131415161718,
	})
	require.Len(t, encoded, header.VIDHeaderSize)

	assert.Equal(t, []byte("UBI!"), encoded[0:4], "wrong magic")
	assert.EqualValues(t, 1, encoded[4], "wrong version")
	assert.Equal(t, header.VolTypeStatic, encoded[5], "wrong volume type")
	assert.EqualValues(t, 0, encoded[6], "copy flag must be unset")
	assert.EqualValues(t, 0, encoded[7], "wrong compat flag")
	assert.EqualValues(t, 5, binary.BigEndian.Uint32(encoded[8:]), "wrong volume ID")
	assert.EqualValues(t, 17, binary.BigEndian.Uint32(encoded[12:]), "wrong lnum")
	assert.EqualValues(t, 27248, binary.BigEndian.Uint32(encoded[20:]), "wrong data size")
	assert.EqualValues(t, 18, binary.BigEndian.Uint32(encoded[24:]), "wrong used EB count")
	assert.EqualValues(t, 96, binary.BigEndian.Uint32(encoded[28:]), "wrong data pad")
	assert.EqualValues(t, 0xDEADBEEF, binary.BigEndian.Uint32(encoded[32:]), "wrong data CRC")
	assert.Equal(
		t,
		uint64(0x1112131415161718),
		binary.BigEndian.Uint64(encoded[40:]),
		"wrong sequence number")
	assert.Equal(
		t,
		header.Checksum(encoded[:60]),
		binary.BigEndian.Uint32(encoded[60:]),
		"stored checksum does not cover the first 60 bytes")
}

func TestECRoundTrip(t *testing.T) {
	original := header.EC{
		Version:      1,
		EraseCounter: 42,
		VIDHdrOffset: 2048,
		DataOffset:   2112,
	}
	decoded, err := header.DecodeEC(header.EncodeEC(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestVIDRoundTrip(t *testing.T) {
	original := header.VID{
		Version:  1,
		VolType:  header.VolTypeDynamic,
		VolumeID: 9,
		Lnum:     3,
		DataPad:  128,
		Sqnum:    3,
	}
	decoded, err := header.DecodeVID(header.EncodeVID(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, err := header.DecodeEC(make([]byte, header.ECHeaderSize-1))
	assert.ErrorContains(t, err, "needs 64 bytes")

	_, err = header.DecodeVID(nil)
	assert.ErrorContains(t, err, "needs 64 bytes")
}

func TestDecodeRejectsWrongMagic(t *testing.T) {
	// A valid VID header is not a valid EC header, and vice versa.
	vid := header.EncodeVID(header.VID{Version: 1, VolType: header.VolTypeDynamic})
	_, err := header.DecodeEC(vid)
	assert.ErrorContains(t, err, "bad EC header magic")

	ec := header.EncodeEC(header.EC{Version: 1})
	_, err = header.DecodeVID(ec)
	assert.ErrorContains(t, err, "bad VID header magic")
}

func TestDecodeRejectsCorruptedHeader(t *testing.T) {
	encoded := header.EncodeEC(header.EC{Version: 1, VIDHdrOffset: 4096, DataOffset: 4160})
	encoded[8] ^= 0xFF

	_, err := header.DecodeEC(encoded)
	assert.ErrorContains(t, err, "bad EC header checksum")
}
