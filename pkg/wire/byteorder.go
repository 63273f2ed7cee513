package wire

import "encoding/binary"

// wireOrder is the fixed on-wire byte order for every scalar and scalar
// array in this protocol (big-endian), independent of host endianness.
// Go's encoding/binary already abstracts host order away, so unlike the
// teacher's C++ ByteOrder utility there is no endianness detection to
// cache here -- encoding/binary.BigEndian is this package's ByteOrder.
var wireOrder = binary.BigEndian

// putUint writes an unsigned integer of the given byte width in wire
// order. width must be 1, 2, 4 or 8.
func putUint(dst []byte, value uint64, width int) {
	switch width {
	case 1:
		dst[0] = byte(value)
	case 2:
		wireOrder.PutUint16(dst, uint16(value))
	case 4:
		wireOrder.PutUint32(dst, uint32(value))
	case 8:
		wireOrder.PutUint64(dst, value)
	}
}

func getUint(src []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(wireOrder.Uint16(src))
	case 4:
		return uint64(wireOrder.Uint32(src))
	case 8:
		return wireOrder.Uint64(src)
	}
	return 0
}
