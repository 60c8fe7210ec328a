package header

import "hash/crc32"

// Checksum computes the CRC-32 variant UBI structures use: the IEEE
// polynomial seeded with 0xFFFFFFFF and without the final bit inversion.
// This differs from crc32.ChecksumIEEE only in skipping that inversion.
func Checksum(data []byte) uint32 {
	return ^crc32.ChecksumIEEE(data)
}
