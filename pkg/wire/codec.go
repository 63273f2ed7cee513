package wire

import "github.com/danejoe001/transclient/internal/crc16"

// Default configuration limits.
const (
	DefaultMaxFieldNameLength  = 128
	DefaultMaxFieldValueLength = 1 << 20 // 1 MiB
	DefaultPreAllocatedSize    = 4096
	DefaultMaxNestingDepth     = 8
)

// Limits bounds what a Decoder accepts from a single field. A field
// that exceeds either cap is skipped rather than failing the whole
// frame.
type Limits struct {
	MaxFieldNameLength  int
	MaxFieldValueLength int
	MaxNestingDepth     int
}

// DefaultLimits returns the reference default codec limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFieldNameLength:  DefaultMaxFieldNameLength,
		MaxFieldValueLength: DefaultMaxFieldValueLength,
		MaxNestingDepth:     DefaultMaxNestingDepth,
	}
}

// Encoder builds one frame: a fixed header followed by an ordered list
// of fields. Call Append for each field in turn, then Finalize to get
// the complete wire bytes.
type Encoder struct {
	fields       []Field
	withChecksum bool
	preAllocate  int
}

// NewEncoder creates an Encoder. preAllocatedSize seeds the backing
// buffer capacity Finalize allocates (0 selects DefaultPreAllocatedSize).
func NewEncoder(preAllocatedSize int) *Encoder {
	if preAllocatedSize <= 0 {
		preAllocatedSize = DefaultPreAllocatedSize
	}
	return &Encoder{preAllocate: preAllocatedSize}
}

// WithChecksum enables computing and stamping a CRC-16/CCITT of the
// body into the header's checksum field and setting HasCheckSum, per
// the reserved checksum field being extendable
// without breaking wire compatibility.
func (e *Encoder) WithChecksum(enabled bool) *Encoder {
	e.withChecksum = enabled
	return e
}

// Append adds one field to the frame being built, in order.
func (e *Encoder) Append(f Field) *Encoder {
	e.fields = append(e.fields, f)
	return e
}

// Finalize writes the header and body and returns the complete frame.
func (e *Encoder) Finalize() []byte {
	bodySize := 0
	for _, f := range e.fields {
		bodySize += f.encodedSize()
	}

	total := HeaderSize + bodySize
	capHint := total
	if capHint < e.preAllocate {
		capHint = e.preAllocate
	}
	buf := make([]byte, total, capHint)

	off := HeaderSize
	for _, f := range e.fields {
		off += f.encodeTo(buf[off:])
	}

	header := FrameHeader{
		Magic:      Magic,
		Version:    Version,
		BodyLength: uint32(bodySize),
		FieldCount: uint16(len(e.fields)),
	}
	if e.withChecksum {
		header.Flags |= FlagHasCheckSum
		header.Checksum = uint32(crc16.Compute(buf[HeaderSize:]))
	}
	header.Encode(buf[:HeaderSize])
	return buf
}

// Frame is a decoded frame: its header plus a name-keyed multimap of
// fields (a name may legally repeat; Fields returns all of them in
// wire order, First returns the first match).
type Frame struct {
	Header FrameHeader
	fields []Field
}

// Fields returns every field with the given name, in wire order.
func (fr Frame) Fields(name string) []Field {
	var out []Field
	for _, f := range fr.fields {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// First returns the first field with the given name.
func (fr Frame) First(name string) (Field, bool) {
	for _, f := range fr.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Decode parses a complete frame (header + body) according to limits.
// Fields exceeding limits are silently dropped; the rest of the frame
// is still returned. A checksum mismatch (when HasCheckSum is set)
// does not stop parsing: ErrChecksumMismatch is returned alongside the
// parsed Frame so callers can decide whether to discard it.
func Decode(data []byte, limits Limits) (Frame, error) {
	header, err := DecodeHeader(data)
	if err != nil {
		return Frame{}, err
	}
	if limits.MaxFieldNameLength <= 0 {
		limits.MaxFieldNameLength = DefaultMaxFieldNameLength
	}
	if limits.MaxFieldValueLength <= 0 {
		limits.MaxFieldValueLength = DefaultMaxFieldValueLength
	}

	bodyEnd := HeaderSize + int(header.BodyLength)
	if len(data) < bodyEnd {
		return Frame{}, ErrTruncated
	}
	body := data[HeaderSize:bodyEnd]

	var checksumErr error
	if header.Flags.Has(FlagHasCheckSum) {
		if crc16.Compute(body) != uint16(header.Checksum) {
			checksumErr = ErrChecksumMismatch
		}
	}

	fields := make([]Field, 0, header.FieldCount)
	off := 0
	for i := 0; i < int(header.FieldCount); i++ {
		if off >= len(body) {
			return Frame{}, ErrFieldOverrun
		}
		field, consumed, ok, err := decodeField(body[off:], limits.MaxFieldNameLength, limits.MaxFieldValueLength)
		if err != nil {
			return Frame{}, err
		}
		off += consumed
		if ok {
			fields = append(fields, field)
		}
	}

	return Frame{Header: header, fields: fields}, checksumErr
}
