package persistence

import "hash/crc32"

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data. The standard library
// uses SSE4.2 / ARM CRC instructions when available.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}
