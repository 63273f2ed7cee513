package wire

// MapFlag is a bitset carried in MapValue.
type MapFlag uint8

const (
	MapFlagNone               MapFlag = 0
	MapFlagKeyLengthVariable  MapFlag = 1 << 0
	MapFlagValueLengthVariable MapFlag = 1 << 1
)

// MapValue is the nested encoding stored in a Field's raw bytes when
// the field's Type is TypeMap:
//
//	key_type, value_type : u8
//	element_count : u32
//	flags : u8 (variable-key? variable-value?)
//	key lengths, value lengths (one or element_count words each)
//	concatenated key bytes, concatenated value bytes
//
// Present in the type system; only limited use in practice.
type MapValue struct {
	KeyType   DataType
	ValueType DataType
	Flags     MapFlag
	Keys      [][]byte
	Values    [][]byte
}

const mapHeaderMinSize = 1 + 1 + 4 + 1

func lengthWords(variable bool, count int, items [][]byte, fallback DataType) []uint32 {
	if variable {
		out := make([]uint32, count)
		for i, it := range items {
			out[i] = uint32(len(it))
		}
		return out
	}
	width := 0
	if count > 0 {
		width = len(items[0])
	} else if w, fixed := fixedWidth(fallback); fixed {
		width = w
	}
	return []uint32{uint32(width)}
}

// Encode serializes the MapValue into the nested byte form stored as a
// Field's value.
func (m MapValue) Encode() []byte {
	count := len(m.Keys)
	keyVariable := IsVariableWidth(m.KeyType)
	valVariable := IsVariableWidth(m.ValueType)
	flags := m.Flags
	if keyVariable {
		flags |= MapFlagKeyLengthVariable
	} else {
		flags &^= MapFlagKeyLengthVariable
	}
	if valVariable {
		flags |= MapFlagValueLengthVariable
	} else {
		flags &^= MapFlagValueLengthVariable
	}

	keyLens := lengthWords(keyVariable, count, m.Keys, m.KeyType)
	valLens := lengthWords(valVariable, count, m.Values, m.ValueType)

	size := mapHeaderMinSize + 4*len(keyLens) + 4*len(valLens)
	for _, k := range m.Keys {
		size += len(k)
	}
	for _, v := range m.Values {
		size += len(v)
	}

	out := make([]byte, size)
	off := 0
	out[off] = byte(m.KeyType)
	off++
	out[off] = byte(m.ValueType)
	off++
	wireOrder.PutUint32(out[off:], uint32(count))
	off += 4
	out[off] = byte(flags)
	off++
	for _, l := range keyLens {
		wireOrder.PutUint32(out[off:], l)
		off += 4
	}
	for _, l := range valLens {
		wireOrder.PutUint32(out[off:], l)
		off += 4
	}
	for _, k := range m.Keys {
		off += copy(out[off:], k)
	}
	for _, v := range m.Values {
		off += copy(out[off:], v)
	}
	return out
}

// DecodeMapValue parses a MapValue from a Field's raw bytes.
func DecodeMapValue(data []byte, depth, maxDepth int) (MapValue, error) {
	if depth > maxDepth {
		return MapValue{}, ErrNestingTooDeep
	}
	if len(data) < mapHeaderMinSize {
		return MapValue{}, ErrTruncated
	}
	off := 0
	keyType := DataType(data[off])
	off++
	valType := DataType(data[off])
	off++
	count := int(wireOrder.Uint32(data[off:]))
	off += 4
	flags := MapFlag(data[off])
	off++

	keyVariable := flags&MapFlagKeyLengthVariable != 0
	valVariable := flags&MapFlagValueLengthVariable != 0

	readLengths := func(variable bool) ([]int, error) {
		n := count
		if !variable {
			n = 1
		}
		if len(data) < off+4*n {
			return nil, ErrTruncated
		}
		out := make([]int, n)
		for i := 0; i < n; i++ {
			out[i] = int(wireOrder.Uint32(data[off:]))
			off += 4
		}
		return out, nil
	}

	keyLens, err := readLengths(keyVariable)
	if err != nil {
		return MapValue{}, err
	}
	valLens, err := readLengths(valVariable)
	if err != nil {
		return MapValue{}, err
	}

	lengthAt := func(lens []int, variable bool, i int) int {
		if variable {
			return lens[i]
		}
		return lens[0]
	}

	keys := make([][]byte, count)
	for i := range keys {
		l := lengthAt(keyLens, keyVariable, i)
		if len(data) < off+l {
			return MapValue{}, ErrTruncated
		}
		keys[i] = append([]byte(nil), data[off:off+l]...)
		off += l
	}
	values := make([][]byte, count)
	for i := range values {
		l := lengthAt(valLens, valVariable, i)
		if len(data) < off+l {
			return MapValue{}, ErrTruncated
		}
		values[i] = append([]byte(nil), data[off:off+l]...)
		off += l
	}

	return MapValue{KeyType: keyType, ValueType: valType, Flags: flags, Keys: keys, Values: values}, nil
}
