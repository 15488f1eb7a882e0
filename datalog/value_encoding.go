package datalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value represents a constant that can appear in a row.
// Like janus values, it is a plain interface{} over a closed set of Go types:
// - string
// - int64
// - float64
// - bool
// - Keyword
type Value interface{}

// ValueType represents the type of a value. The numeric order of the tags
// is also the cross-type sort order of encoded rows.
type ValueType byte

const (
	TypeString ValueType = iota + 1
	TypeInt
	TypeFloat
	TypeBool
	TypeKeyword
)

// ErrUnsupportedValue is returned for Go values outside the closed value set
var ErrUnsupportedValue = errors.New("unsupported value type")

// Type returns the type of a value
func Type(v Value) ValueType {
	switch val := v.(type) {
	case string:
		return TypeString
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case bool:
		return TypeBool
	case Keyword:
		return TypeKeyword
	case *Keyword:
		return TypeKeyword
	default:
		panic(fmt.Sprintf("unknown value type: %T", val))
	}
}

// NormalizeValue converts v to its canonical representation. Integer
// types widen to int64, float32 widens to float64 and keyword pointers are
// dereferenced. Negative zero becomes zero and NaN is rejected, so value
// equality and encoded-key equality agree. Anything else yields
// ErrUnsupportedValue.
func NormalizeValue(v interface{}) (Value, error) {
	switch val := v.(type) {
	case string, int64, bool, Keyword:
		return val, nil
	case float64:
		return normalizeFloat(val)
	case *Keyword:
		if val == nil {
			return nil, fmt.Errorf("%w: nil keyword", ErrUnsupportedValue)
		}
		return *val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case float32:
		return normalizeFloat(float64(val))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func normalizeFloat(f float64) (Value, error) {
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%w: NaN", ErrUnsupportedValue)
	}
	if f == 0 {
		return float64(0), nil
	}
	return f, nil
}

// AppendValue appends the order-preserving, self-delimiting encoding of v
// to buf. Strings and keywords escape 0x00 as 0x00 0xFF and end with 0x00,
// so the encoding of a row prefix is a byte prefix of the full row.
func AppendValue(buf []byte, v Value) []byte {
	switch val := v.(type) {
	case string:
		buf = append(buf, byte(TypeString))
		return appendEscaped(buf, val)
	case Keyword:
		buf = append(buf, byte(TypeKeyword))
		return appendEscaped(buf, val.value)
	case *Keyword:
		buf = append(buf, byte(TypeKeyword))
		return appendEscaped(buf, val.value)
	case int64:
		buf = append(buf, byte(TypeInt))
		return binary.BigEndian.AppendUint64(buf, uint64(val)^(1<<63))
	case float64:
		bits := math.Float64bits(val)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		buf = append(buf, byte(TypeFloat))
		return binary.BigEndian.AppendUint64(buf, bits)
	case bool:
		buf = append(buf, byte(TypeBool))
		if val {
			return append(buf, 1)
		}
		return append(buf, 0)
	default:
		panic(fmt.Sprintf("cannot encode value type: %T", v))
	}
}

func appendEscaped(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			buf = append(buf, 0x00, 0xFF)
			continue
		}
		buf = append(buf, s[i])
	}
	return append(buf, 0x00)
}

// DecodeValue decodes one value produced by AppendValue and returns the
// remaining bytes
func DecodeValue(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("value data too short")
	}

	vType := ValueType(data[0])
	data = data[1:]

	switch vType {
	case TypeString, TypeKeyword:
		var sb strings.Builder
		for i := 0; i < len(data); i++ {
			if data[i] != 0x00 {
				sb.WriteByte(data[i])
				continue
			}
			if i+1 < len(data) && data[i+1] == 0xFF {
				sb.WriteByte(0x00)
				i++
				continue
			}
			if vType == TypeKeyword {
				return NewKeyword(sb.String()), data[i+1:], nil
			}
			return sb.String(), data[i+1:], nil
		}
		return nil, nil, fmt.Errorf("unterminated string value")
	case TypeInt:
		if len(data) < 8 {
			return nil, nil, fmt.Errorf("int value must be 8 bytes, got %d", len(data))
		}
		return int64(binary.BigEndian.Uint64(data) ^ (1 << 63)), data[8:], nil
	case TypeFloat:
		if len(data) < 8 {
			return nil, nil, fmt.Errorf("float value must be 8 bytes, got %d", len(data))
		}
		bits := binary.BigEndian.Uint64(data)
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), data[8:], nil
	case TypeBool:
		if len(data) < 1 {
			return nil, nil, fmt.Errorf("bool value must be 1 byte, got %d", len(data))
		}
		return data[0] != 0, data[1:], nil
	default:
		return nil, nil, fmt.Errorf("unknown value type: %v", vType)
	}
}

// FormatValue renders a value in program syntax. Strings that read back
// as bare symbols are printed unquoted.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case string:
		if isBareSymbol(val) {
			return val
		}
		return strconv.Quote(val)
	case Keyword:
		return val.String()
	case *Keyword:
		return val.String()
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		s := strconv.FormatFloat(val, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return "_"
	default:
		return fmt.Sprintf("%v", v)
	}
}

const symbolChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.*+!-_?$%&=<>/#:"

func isBareSymbol(s string) bool {
	if s == "" || s == "_" || s == "nil" || s == "true" || s == "false" {
		return false
	}
	switch s[0] {
	case '?', ':', '#':
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	if (s[0] == '-' || s[0] == '+') && len(s) > 1 && s[1] >= '0' && s[1] <= '9' {
		return false
	}
	for _, ch := range strings.ToUpper(s) {
		if !strings.ContainsRune(symbolChars, ch) {
			return false
		}
	}
	return true
}
