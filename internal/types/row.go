package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Row is an ordered list of column values, one per column in the owning
// table's Schema.
type Row struct {
	Values []Value
}

func NewRow(values []Value) Row { return Row{Values: values} }

func (r Row) Len() int { return len(r.Values) }

func (r Row) Get(idx int) (Value, bool) {
	if idx < 0 || idx >= len(r.Values) {
		return Value{}, false
	}
	return r.Values[idx], true
}

// value tags match the original wire format: 0=Null 1=Int 2=Float 3=String
// 4=Bool 5=Extension(persisted as Null, since the extension registry that
// would know how to serialize extension payloads lives outside this core).
const (
	tagNull      = 0
	tagInt       = 1
	tagFloat     = 2
	tagString    = 3
	tagBool      = 4
	tagExtension = 5
)

// EncodeRow serializes a row to its on-disk tuple representation: a u32
// value count followed by each value's tag byte and payload.
func EncodeRow(r Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(r.Values))); err != nil {
		return nil, fmt.Errorf("encode row length: %w", err)
	}
	for _, v := range r.Values {
		if err := encodeValue(&buf, v); err != nil {
			return nil, fmt.Errorf("encode value: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch v.Kind {
	case KindNull:
		buf.WriteByte(tagNull)
	case KindInt:
		buf.WriteByte(tagInt)
		return binary.Write(buf, binary.LittleEndian, v.Int)
	case KindFloat:
		buf.WriteByte(tagFloat)
		return binary.Write(buf, binary.LittleEndian, math.Float64bits(v.Float))
	case KindString:
		buf.WriteByte(tagString)
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(v.Str))); err != nil {
			return err
		}
		buf.WriteString(v.Str)
	case KindBool:
		buf.WriteByte(tagBool)
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindExtension:
		// Extension values cannot be persisted by the core; they are
		// written as a tagged Null carrying the type OID, matching the
		// original implementation's "Phase 1" fallback.
		buf.WriteByte(tagExtension)
		return binary.Write(buf, binary.LittleEndian, v.ExtOID)
	default:
		return fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return nil
}

// DecodeRow parses a tuple previously produced by EncodeRow.
func DecodeRow(data []byte) (Row, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return Row{}, fmt.Errorf("decode row length: %w", err)
	}

	values := make([]Value, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := decodeValue(r)
		if err != nil {
			return Row{}, fmt.Errorf("decode value %d: %w", i, err)
		}
		values = append(values, v)
	}
	return Row{Values: values}, nil
}

func decodeValue(r *bytes.Reader) (Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch tag {
	case tagNull:
		return NullValue(), nil
	case tagInt:
		var n int64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Value{}, err
		}
		return IntValue(n), nil
	case tagFloat:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return Value{}, err
		}
		return FloatValue(math.Float64frombits(bits)), nil
	case tagString:
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return Value{}, err
		}
		strBytes := make([]byte, length)
		if _, err := r.Read(strBytes); err != nil {
			return Value{}, err
		}
		return StringValue(string(strBytes)), nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b != 0), nil
	case tagExtension:
		// Extension values are persisted as Null; the type OID is read
		// and discarded, matching the encode side's Phase 1 fallback.
		var oid uint32
		if err := binary.Read(r, binary.LittleEndian, &oid); err != nil {
			return Value{}, err
		}
		return NullValue(), nil
	default:
		return Value{}, fmt.Errorf("invalid value tag %d", tag)
	}
}
