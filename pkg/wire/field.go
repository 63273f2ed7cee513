package wire

// FieldFlag is a bitset carried per-field.
type FieldFlag uint8

const (
	FieldFlagNone          FieldFlag = 0
	FieldFlagHasValueLength FieldFlag = 1 << 0
)

// Field is one named, typed entry in a frame's body. Container-typed
// values (String, ByteArray, Array, Map, Dictionary) are opaque bytes
// the caller must decode further (ArrayValue for Array, MapValue for
// Map); scalar values are stored in wire (big-endian) order and
// converted on demand by the typed accessors below, matching the protocol's rule
// that Field should be a sum type tagged by DataType rather than a
// type-erased byte vector with runtime down-casts.
type Field struct {
	Name  string
	Type  DataType
	Flags FieldFlag
	raw   []byte
}

func fieldValueLength(t DataType, raw []byte) (uint32, bool) {
	if w, fixed := fixedWidth(t); fixed {
		return uint32(w), false
	}
	return uint32(len(raw)), true
}

// NewUintField builds a Field holding an unsigned integer of the wire
// width implied by t (UInt8/UInt16/UInt32/UInt64/Bool).
func NewUintField(name string, t DataType, value uint64) Field {
	w, _ := fixedWidth(t)
	raw := make([]byte, w)
	putUint(raw, value, w)
	return Field{Name: name, Type: t, raw: raw}
}

// NewIntField builds a Field holding a signed integer of the wire width
// implied by t (Int8/Int16/Int32/Int64).
func NewIntField(name string, t DataType, value int64) Field {
	return NewUintField(name, t, uint64(value))
}

func NewBoolField(name string, value bool) Field {
	var v uint64
	if value {
		v = 1
	}
	return NewUintField(name, TypeBool, v)
}

func NewStringField(name string, value string) Field {
	return Field{Name: name, Type: TypeString, Flags: FieldFlagHasValueLength, raw: []byte(value)}
}

func NewByteArrayField(name string, value []byte) Field {
	return Field{Name: name, Type: TypeByteArray, Flags: FieldFlagHasValueLength, raw: append([]byte(nil), value...)}
}

// NewContainerField wraps pre-encoded ArrayValue/MapValue/Dictionary
// bytes as a field of the given container type.
func NewContainerField(name string, t DataType, encoded []byte) Field {
	return Field{Name: name, Type: t, Flags: FieldFlagHasValueLength, raw: encoded}
}

func (f Field) Raw() []byte { return f.raw }

func (f Field) Uint64() (uint64, bool) {
	switch f.Type {
	case TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64, TypeBool:
		w, _ := fixedWidth(f.Type)
		return getUint(f.raw, w), true
	default:
		return 0, false
	}
}

func (f Field) Int64() (int64, bool) {
	switch f.Type {
	case TypeInt8:
		return int64(int8(f.raw[0])), true
	case TypeInt16:
		w, _ := fixedWidth(f.Type)
		return int64(int16(getUint(f.raw, w))), true
	case TypeInt32:
		w, _ := fixedWidth(f.Type)
		return int64(int32(getUint(f.raw, w))), true
	case TypeInt64:
		w, _ := fixedWidth(f.Type)
		return int64(getUint(f.raw, w)), true
	default:
		return 0, false
	}
}

func (f Field) Bool() (bool, bool) {
	if f.Type != TypeBool {
		return false, false
	}
	return f.raw[0] != 0, true
}

func (f Field) String() (string, bool) {
	if f.Type != TypeString {
		return "", false
	}
	return string(f.raw), true
}

func (f Field) ByteArray() ([]byte, bool) {
	if f.Type != TypeByteArray {
		return nil, false
	}
	return f.raw, true
}

// encodedSize returns the total wire size of this field including its
// name and optional value-length prefix.
func (f Field) encodedSize() int {
	size := 2 + len(f.Name) + 1 + 1
	if _, variable := fieldValueLength(f.Type, f.raw); variable {
		size += 4
	}
	size += len(f.raw)
	return size
}

func (f Field) encodeTo(dst []byte) int {
	off := 0
	wireOrder.PutUint16(dst[off:], uint16(len(f.Name)))
	off += 2
	off += copy(dst[off:], f.Name)
	dst[off] = byte(f.Type)
	off++
	length, variable := fieldValueLength(f.Type, f.raw)
	flags := f.Flags
	if variable {
		flags |= FieldFlagHasValueLength
	} else {
		flags &^= FieldFlagHasValueLength
	}
	dst[off] = byte(flags)
	off++
	if variable {
		wireOrder.PutUint32(dst[off:], length)
		off += 4
	}
	off += copy(dst[off:], f.raw)
	return off
}

// decodeField parses one Field starting at data[0], honouring the
// configured name/value length caps. It returns the number of bytes
// consumed. When the field exceeds a configured cap, ok is false and
// consumed is still the correct number of bytes to skip -- the caller
// drops the field and keeps parsing the rest of the frame, per
// an oversized field being skipped rather than aborting the parse.
func decodeField(data []byte, maxName, maxValue int) (field Field, consumed int, ok bool, err error) {
	if len(data) < 2 {
		return Field{}, 0, false, ErrFieldOverrun
	}
	nameLen := int(wireOrder.Uint16(data[0:2]))
	off := 2
	if len(data) < off+nameLen+2 {
		return Field{}, 0, false, ErrFieldOverrun
	}
	name := string(data[off : off+nameLen])
	off += nameLen
	t := DataType(data[off])
	off++
	flags := FieldFlag(data[off])
	off++

	var valueLen int
	if w, fixed := fixedWidth(t); fixed {
		valueLen = w
	} else {
		if flags&FieldFlagHasValueLength == 0 {
			return Field{}, 0, false, ErrFieldOverrun
		}
		if len(data) < off+4 {
			return Field{}, 0, false, ErrFieldOverrun
		}
		valueLen = int(wireOrder.Uint32(data[off:]))
		off += 4
	}
	if len(data) < off+valueLen {
		return Field{}, 0, false, ErrFieldOverrun
	}
	value := data[off : off+valueLen]
	off += valueLen

	if maxName > 0 && nameLen > maxName {
		return Field{}, off, false, nil
	}
	if maxValue > 0 && valueLen > maxValue {
		return Field{}, off, false, nil
	}

	return Field{Name: name, Type: t, Flags: flags, raw: append([]byte(nil), value...)}, off, true, nil
}
