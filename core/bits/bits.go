// Package bits provides the bit and word accessors used on save regions.
//
// Bit b of the region starting at byte offset off lives in byte off+b/8
// under mask 1<<(b%8). Writes preserve every other bit of that byte.
package bits

import "encoding/binary"

// Get reports whether bit b of the region at off is set.
func Get(buf []byte, off, b int) bool {
	return buf[off+b/8]>>(b%8)&1 == 1
}

// Set sets or clears bit b of the region at off.
func Set(buf []byte, off, b int, v bool) {
	mask := byte(1) << (b % 8)
	if v {
		buf[off+b/8] |= mask
	} else {
		buf[off+b/8] &^= mask
	}
}

// Uint16 reads a little-endian word at off.
func Uint16(buf []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(buf[off:])
}

// PutUint16 writes a little-endian word at off.
func PutUint16(buf []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(buf[off:], v)
}
