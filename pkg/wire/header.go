package wire

// HeaderSize is the fixed wire size of a FrameHeader in bytes.
const HeaderSize = 16

// Magic is the constant that opens every frame on the wire. Four ASCII
// 'f' bytes, by design.
const Magic uint32 = 0x66666666

// Version is the only frame version this codec understands.
const Version uint8 = 1

// HeaderFlag is a bitset carried in FrameHeader.Flags.
type HeaderFlag uint8

const (
	FlagNone       HeaderFlag = 0
	FlagHasCheckSum HeaderFlag = 1 << 0
)

// FrameHeader is the fixed 16-byte prefix of every frame.
type FrameHeader struct {
	Magic       uint32
	Version     uint8
	BodyLength  uint32
	Flags       HeaderFlag
	Checksum    uint32
	FieldCount  uint16
}

func (h HeaderFlag) Has(flag HeaderFlag) bool { return h&flag != 0 }

// Encode writes the header's 16 wire bytes into dst[:16].
func (h FrameHeader) Encode(dst []byte) {
	_ = dst[:HeaderSize]
	wireOrder.PutUint32(dst[0:4], h.Magic)
	dst[4] = h.Version
	wireOrder.PutUint32(dst[5:9], h.BodyLength)
	dst[9] = byte(h.Flags)
	wireOrder.PutUint32(dst[10:14], h.Checksum)
	wireOrder.PutUint16(dst[14:16], h.FieldCount)
}

// DecodeHeader parses a FrameHeader from the first 16 bytes of data.
func DecodeHeader(data []byte) (FrameHeader, error) {
	if len(data) < HeaderSize {
		return FrameHeader{}, ErrShortHeader
	}
	h := FrameHeader{
		Magic:      wireOrder.Uint32(data[0:4]),
		Version:    data[4],
		BodyLength: wireOrder.Uint32(data[5:9]),
		Flags:      HeaderFlag(data[9]),
		Checksum:   wireOrder.Uint32(data[10:14]),
		FieldCount: wireOrder.Uint16(data[14:16]),
	}
	if h.Magic != Magic {
		return FrameHeader{}, ErrBadMagic
	}
	if h.Version != Version {
		return FrameHeader{}, ErrUnsupportedVersion
	}
	return h, nil
}
