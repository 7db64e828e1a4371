// Package wire defines the request/response value model carried over the
// frame codec, and the codec itself. Messages are CBOR-encoded as small
// tagged structs with explicit Marshal/Unmarshal methods.
package wire

import "strconv"

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindBytes
	KindInt
	KindFloat
	KindBool
)

// Value is a tagged union over string, binary blob, int64, float64 and
// bool. The zero Value is the absent/empty variant (KindNone).
type Value struct {
	Kind  Kind    `cbor:"1,keyasint"`
	Str   string  `cbor:"2,keyasint,omitempty"`
	Bytes []byte  `cbor:"3,keyasint,omitempty"`
	Int   int64   `cbor:"4,keyasint,omitempty"`
	Float float64 `cbor:"5,keyasint,omitempty"`
	Bool  bool    `cbor:"6,keyasint,omitempty"`
}

// StringValue builds a string-kinded Value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// BytesValue builds a bytes-kinded Value.
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// IntValue builds an int-kinded Value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue builds a float-kinded Value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// BoolValue builds a bool-kinded Value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IsNone reports whether v is the absent/empty variant.
func (v Value) IsNone() bool { return v.Kind == KindNone }

// ToRaw converts v to its raw-byte representation, used for backends that
// store values as plain []byte (e.g. bbolt).
func (v Value) ToRaw() []byte {
	switch v.Kind {
	case KindNone:
		return nil
	case KindString:
		return append([]byte{byte(KindString)}, []byte(v.Str)...)
	case KindBytes:
		return append([]byte{byte(KindBytes)}, v.Bytes...)
	case KindInt:
		return append([]byte{byte(KindInt)}, []byte(strconv.FormatInt(v.Int, 10))...)
	case KindFloat:
		return append([]byte{byte(KindFloat)}, []byte(strconv.FormatFloat(v.Float, 'g', -1, 64))...)
	case KindBool:
		b := byte('0')
		if v.Bool {
			b = '1'
		}
		return []byte{byte(KindBool), b}
	default:
		return nil
	}
}

// ValueFromRaw parses the ToRaw encoding back into a Value.
func ValueFromRaw(raw []byte) (Value, error) {
	if len(raw) == 0 {
		return Value{}, nil
	}
	kind := Kind(raw[0])
	body := raw[1:]
	switch kind {
	case KindString:
		return StringValue(string(body)), nil
	case KindBytes:
		cp := make([]byte, len(body))
		copy(cp, body)
		return BytesValue(cp), nil
	case KindInt:
		i, err := strconv.ParseInt(string(body), 10, 64)
		if err != nil {
			return Value{}, err
		}
		return IntValue(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(string(body), 64)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	case KindBool:
		return BoolValue(len(body) > 0 && body[0] == '1'), nil
	default:
		return Value{}, nil
	}
}

// Kvpair is a (key, value) record used both as a storage record and as a
// list element in responses.
type Kvpair struct {
	Key   string `cbor:"1,keyasint"`
	Value Value  `cbor:"2,keyasint"`
}
