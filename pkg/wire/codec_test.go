package wire

import (
	"bytes"
	"testing"
)

func TestEmptyFrame(t *testing.T) {
	frame := NewEncoder(0).Finalize()
	want := []byte{
		0x66, 0x66, 0x66, 0x66,
		0x01,
		0x00, 0x00, 0x00, 0x00,
		0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	if !bytes.Equal(frame, want) {
		t.Errorf("got % x, want % x", frame, want)
	}
	if len(frame) != HeaderSize {
		t.Errorf("len = %d, want %d", len(frame), HeaderSize)
	}
}

func TestOneIntField(t *testing.T) {
	frame := NewEncoder(0).Append(NewIntField("x", TypeInt32, 1)).Finalize()
	decoded, err := Decode(frame, DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Header.FieldCount != 1 {
		t.Fatalf("field_count = %d, want 1", decoded.Header.FieldCount)
	}
	field, ok := decoded.First("x")
	if !ok {
		t.Fatal("field x not found")
	}
	v, ok := field.Int64()
	if !ok || v != 1 {
		t.Errorf("got %v,%v want 1,true", v, ok)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := FrameHeader{Magic: Magic, Version: Version, BodyLength: 42, Flags: FlagHasCheckSum, Checksum: 7, FieldCount: 3}
	buf := make([]byte, HeaderSize)
	h.Encode(buf)
	if len(buf) != HeaderSize {
		t.Fatalf("encoded header length = %d", len(buf))
	}
	decoded, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if decoded != h {
		t.Errorf("got %+v, want %+v", decoded, h)
	}
}

func TestMagicRejection(t *testing.T) {
	buf := make([]byte, HeaderSize)
	copy(buf, []byte{0, 0, 0, 0})
	_, err := DecodeHeader(buf)
	if err != ErrBadMagic {
		t.Errorf("got %v, want ErrBadMagic", err)
	}
}

func TestScalarRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		t    DataType
		enc  func() Field
		chk  func(Field) bool
	}{
		{"u8", TypeUInt8, func() Field { return NewUintField("f", TypeUInt8, 0xAB) }, func(f Field) bool { v, ok := f.Uint64(); return ok && v == 0xAB }},
		{"u16", TypeUInt16, func() Field { return NewUintField("f", TypeUInt16, 0xABCD) }, func(f Field) bool { v, ok := f.Uint64(); return ok && v == 0xABCD }},
		{"u32", TypeUInt32, func() Field { return NewUintField("f", TypeUInt32, 0xDEADBEEF) }, func(f Field) bool { v, ok := f.Uint64(); return ok && v == 0xDEADBEEF }},
		{"u64", TypeUInt64, func() Field { return NewUintField("f", TypeUInt64, 0x1122334455667788) }, func(f Field) bool { v, ok := f.Uint64(); return ok && v == 0x1122334455667788 }},
		{"i8", TypeInt8, func() Field { return NewIntField("f", TypeInt8, -5) }, func(f Field) bool { v, ok := f.Int64(); return ok && v == -5 }},
		{"i64", TypeInt64, func() Field { return NewIntField("f", TypeInt64, -12345) }, func(f Field) bool { v, ok := f.Int64(); return ok && v == -12345 }},
		{"bool", TypeBool, func() Field { return NewBoolField("f", true) }, func(f Field) bool { v, ok := f.Bool(); return ok && v }},
		{"string", TypeString, func() Field { return NewStringField("f", "hello") }, func(f Field) bool { v, ok := f.String(); return ok && v == "hello" }},
		{"bytearray", TypeByteArray, func() Field { return NewByteArrayField("f", []byte{1, 2, 3}) }, func(f Field) bool {
			v, ok := f.ByteArray()
			return ok && bytes.Equal(v, []byte{1, 2, 3})
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			frame := NewEncoder(0).Append(c.enc()).Finalize()
			decoded, err := Decode(frame, DefaultLimits())
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			field, ok := decoded.First("f")
			if !ok {
				t.Fatal("field f missing")
			}
			if !c.chk(field) {
				t.Errorf("round trip mismatch for %s", c.name)
			}
		})
	}
}

func TestArrayRoundTrip(t *testing.T) {
	arr := ArrayValue{ElementType: TypeUInt32, Elements: [][]byte{
		{0, 0, 0, 1}, {0, 0, 0, 2}, {0, 0, 0, 3},
	}}
	encoded := arr.Encode()
	field := NewContainerField("arr", TypeArray, encoded)
	frame := NewEncoder(0).Append(field).Finalize()
	decoded, err := Decode(frame, DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	f, ok := decoded.First("arr")
	if !ok {
		t.Fatal("field arr missing")
	}
	got, err := DecodeArrayValue(f.Raw(), 0, DefaultMaxNestingDepth)
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	if len(got.Elements) != 3 || !bytes.Equal(got.Elements[1], []byte{0, 0, 0, 2}) {
		t.Errorf("got %+v", got)
	}
}

func TestVariableArrayRoundTrip(t *testing.T) {
	arr := ArrayValue{ElementType: TypeByteArray, Elements: [][]byte{
		{1}, {2, 2}, {3, 3, 3},
	}}
	encoded := arr.Encode()
	got, err := DecodeArrayValue(encoded, 0, DefaultMaxNestingDepth)
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	if !got.Flags.Has(ArrayFlagElementLengthVariable) {
		t.Errorf("expected variable length flag set")
	}
	if len(got.Elements) != 3 || !bytes.Equal(got.Elements[2], []byte{3, 3, 3}) {
		t.Errorf("got %+v", got)
	}
}

func TestChecksumMismatchDetected(t *testing.T) {
	frame := NewEncoder(0).WithChecksum(true).Append(NewStringField("x", "abc")).Finalize()
	frame[len(frame)-1] ^= 0xFF // corrupt the last body byte
	_, err := Decode(frame, DefaultLimits())
	if err != ErrChecksumMismatch {
		t.Errorf("got %v, want ErrChecksumMismatch", err)
	}
}

func TestFieldValueTooLongIsSkipped(t *testing.T) {
	limits := Limits{MaxFieldNameLength: DefaultMaxFieldNameLength, MaxFieldValueLength: 4}
	frame := NewEncoder(0).
		Append(NewStringField("big", "this is too long")).
		Append(NewIntField("ok", TypeInt32, 7)).
		Finalize()
	decoded, err := Decode(frame, limits)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := decoded.First("big"); ok {
		t.Error("oversized field should have been dropped")
	}
	if f, ok := decoded.First("ok"); !ok {
		t.Error("ok field should have survived")
	} else if v, _ := f.Int64(); v != 7 {
		t.Errorf("ok field value = %d", v)
	}
}
