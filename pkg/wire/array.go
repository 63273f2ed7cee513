package wire

// ArrayFlag is a bitset carried in ArrayValue.
type ArrayFlag uint8

const (
	ArrayFlagNone                  ArrayFlag = 0
	ArrayFlagElementLengthVariable ArrayFlag = 1 << 0
)

func (a ArrayFlag) Has(flag ArrayFlag) bool { return a&flag != 0 }

// ArrayValue is the nested encoding stored in a Field's raw bytes when
// the field's Type is TypeArray:
//
//	element_type : u8
//	element_count : u32
//	flags : u8 (IsElementLengthVariable)
//	lengths: either one u32 (fixed width) or element_count u32s (variable)
//	payload: concatenated element bytes
type ArrayValue struct {
	ElementType DataType
	Flags       ArrayFlag
	Elements    [][]byte
}

// arrayHeaderMinSize is sizeof(DataType)+4+1+4, the minimum bytes an
// ArrayValue needs before any element payload: type, count, flags, and
// at least one length word.
const arrayHeaderMinSize = 1 + 4 + 1 + 4

// Encode serializes the ArrayValue into the nested byte form stored as
// a Field's value.
func (a ArrayValue) Encode() []byte {
	variable := IsVariableWidth(a.ElementType)
	flags := a.Flags
	if variable {
		flags |= ArrayFlagElementLengthVariable
	} else {
		flags &^= ArrayFlagElementLengthVariable
	}

	size := 1 + 4 + 1
	if variable {
		size += 4 * len(a.Elements)
	} else {
		size += 4
	}
	for _, e := range a.Elements {
		size += len(e)
	}

	out := make([]byte, size)
	off := 0
	out[off] = byte(a.ElementType)
	off++
	wireOrder.PutUint32(out[off:], uint32(len(a.Elements)))
	off += 4
	out[off] = byte(flags)
	off++

	if variable {
		for _, e := range a.Elements {
			wireOrder.PutUint32(out[off:], uint32(len(e)))
			off += 4
		}
	} else {
		width := 0
		if len(a.Elements) > 0 {
			width = len(a.Elements[0])
		} else if w, fixed := fixedWidth(a.ElementType); fixed {
			width = w
		}
		wireOrder.PutUint32(out[off:], uint32(width))
		off += 4
	}
	for _, e := range a.Elements {
		off += copy(out[off:], e)
	}
	return out
}

// DecodeArrayValue parses an ArrayValue from a Field's raw bytes.
// depth is the current container-nesting depth and is checked against
// maxDepth (see DecodeMapValue and the decoder's default of 8, per
// the recursion-depth guard).
func DecodeArrayValue(data []byte, depth, maxDepth int) (ArrayValue, error) {
	if depth > maxDepth {
		return ArrayValue{}, ErrNestingTooDeep
	}
	if len(data) < arrayHeaderMinSize {
		return ArrayValue{}, ErrTruncated
	}
	off := 0
	elemType := DataType(data[off])
	off++
	count := int(wireOrder.Uint32(data[off:]))
	off += 4
	flags := ArrayFlag(data[off])
	off++

	variable := flags&ArrayFlagElementLengthVariable != 0

	lengths := make([]int, count)
	if variable {
		if len(data) < off+4*count {
			return ArrayValue{}, ErrTruncated
		}
		for i := 0; i < count; i++ {
			lengths[i] = int(wireOrder.Uint32(data[off:]))
			off += 4
		}
	} else {
		if len(data) < off+4 {
			return ArrayValue{}, ErrTruncated
		}
		width := int(wireOrder.Uint32(data[off:]))
		off += 4
		for i := range lengths {
			lengths[i] = width
		}
	}

	elements := make([][]byte, count)
	for i, l := range lengths {
		if len(data) < off+l {
			return ArrayValue{}, ErrTruncated
		}
		elements[i] = append([]byte(nil), data[off:off+l]...)
		off += l
	}

	return ArrayValue{ElementType: elemType, Flags: flags, Elements: elements}, nil
}
