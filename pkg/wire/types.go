// Package wire implements the self-describing, length-prefixed binary
// frame format shared by every message in the system: a fixed header,
// an ordered set of named typed fields, and nested Array/Map
// sub-encodings inside a field's value. See FrameHeader, Field,
// ArrayValue and MapValue.
package wire

// DataType tags the wire representation of a field or array/map element.
type DataType uint8

const (
	TypeUnknown DataType = iota
	TypeUInt8
	TypeUInt16
	TypeUInt32
	TypeUInt64
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat
	TypeDouble
	TypeBool
	TypeString
	TypeByteArray
	TypeArray
	TypeMap
	TypeDictionary
	TypeObject
	TypeNull
)

// fixedWidth reports the wire width of statically-sized types. The bool
// return is false for variable-width types (String, ByteArray, Array,
// Map, Dictionary, Object) and for Unknown/Null.
func fixedWidth(t DataType) (int, bool) {
	switch t {
	case TypeUInt8, TypeInt8, TypeBool:
		return 1, true
	case TypeUInt16, TypeInt16:
		return 2, true
	case TypeUInt32, TypeInt32, TypeFloat:
		return 4, true
	case TypeUInt64, TypeInt64, TypeDouble:
		return 8, true
	default:
		return 0, false
	}
}

// IsVariableWidth reports whether values of type t carry an explicit
// wire length rather than a statically known size.
func IsVariableWidth(t DataType) bool {
	_, fixed := fixedWidth(t)
	return !fixed && t != TypeUnknown && t != TypeNull
}

func (t DataType) String() string {
	switch t {
	case TypeUInt8:
		return "UInt8"
	case TypeUInt16:
		return "UInt16"
	case TypeUInt32:
		return "UInt32"
	case TypeUInt64:
		return "UInt64"
	case TypeInt8:
		return "Int8"
	case TypeInt16:
		return "Int16"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeBool:
		return "Bool"
	case TypeString:
		return "String"
	case TypeByteArray:
		return "ByteArray"
	case TypeArray:
		return "Array"
	case TypeMap:
		return "Map"
	case TypeDictionary:
		return "Dictionary"
	case TypeObject:
		return "Object"
	case TypeNull:
		return "Null"
	default:
		return "Unknown"
	}
}
