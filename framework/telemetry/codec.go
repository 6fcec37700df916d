package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// RecordSize is the size of every encoded record. The layout is
//
//	offset 0    uint32  kind
//	offset 4    [64]    program name
//	offset 68   [32]    function name
//	offset 100  [64]    message (Log only)
//	offset 164  uint32  result (Status) or level (Log), zero for Register
//
// Integers are little-endian. Strings are NUL-terminated and zero padded.
const RecordSize = 4 + ProgramNameSize + FunctionNameSize + MessageSize + 4

const (
	offsetProgram  = 4
	offsetFunction = offsetProgram + ProgramNameSize
	offsetMessage  = offsetFunction + FunctionNameSize
	offsetVariant  = offsetMessage + MessageSize
)

var (
	// ErrUnknownKind is returned when decoding a record whose discriminator is not a known Kind.
	ErrUnknownKind = errors.New("unknown record kind")

	// ErrInvalidRecord is returned for records whose enum fields are out of range, or for
	// values that are not one of the record types of this package.
	ErrInvalidRecord = errors.New("invalid record")
)

// Encode returns the fixed-size wire form of a record.
func Encode(r Record) ([]byte, error) {
	return AppendRecord(make([]byte, 0, RecordSize), r)
}

// AppendRecord appends the wire form of a record to dst.
func AppendRecord(dst []byte, r Record) ([]byte, error) {
	start := len(dst)
	dst = append(dst, make([]byte, RecordSize)...)
	buf := dst[start:]

	var variant uint32
	switch v := r.(type) {
	case Register:
		putOrigin(buf, v.Origin)
	case Status:
		if v.Result > ResultFail {
			return dst[:start], fmt.Errorf("%w: status result %d", ErrInvalidRecord, uint32(v.Result))
		}
		putOrigin(buf, v.Origin)
		variant = uint32(v.Result)
	case Log:
		if v.Level > LevelWarning {
			return dst[:start], fmt.Errorf("%w: log level %d", ErrInvalidRecord, uint32(v.Level))
		}
		putOrigin(buf, v.Origin)
		putString(buf[offsetMessage:offsetVariant], v.Message)
		variant = uint32(v.Level)
	default:
		return dst[:start], fmt.Errorf("%w: unsupported type %T", ErrInvalidRecord, r)
	}
	binary.LittleEndian.PutUint32(buf[0:offsetProgram], uint32(r.Kind()))
	binary.LittleEndian.PutUint32(buf[offsetVariant:RecordSize], variant)
	return dst, nil
}

// Decode parses exactly one record from its wire form.
func Decode(buf []byte) (Record, error) {
	if len(buf) != RecordSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidRecord, len(buf), RecordSize)
	}
	origin := Origin{
		Program:  getString(buf[offsetProgram:offsetFunction]),
		Function: getString(buf[offsetFunction:offsetMessage]),
	}
	variant := binary.LittleEndian.Uint32(buf[offsetVariant:RecordSize])

	switch kind := Kind(binary.LittleEndian.Uint32(buf[0:offsetProgram])); kind {
	case KindRegister:
		return Register{Origin: origin}, nil
	case KindStatus:
		if Result(variant) > ResultFail {
			return nil, fmt.Errorf("%w: status result %d", ErrInvalidRecord, variant)
		}
		return Status{Origin: origin, Result: Result(variant)}, nil
	case KindLog:
		if Level(variant) > LevelWarning {
			return nil, fmt.Errorf("%w: log level %d", ErrInvalidRecord, variant)
		}
		return Log{Origin: origin, Level: Level(variant), Message: getString(buf[offsetMessage:offsetVariant])}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint32(kind))
	}
}

func putOrigin(buf []byte, o Origin) {
	putString(buf[offsetProgram:offsetFunction], o.Program)
	putString(buf[offsetFunction:offsetMessage], o.Function)
}

// putString copies s into the zeroed field dst, truncating so that the final byte is
// always NUL and no UTF-8 sequence is cut in half.
func putString(dst []byte, s string) {
	n := len(s)
	if n > len(dst)-1 {
		n = len(dst) - 1
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
	}
	copy(dst, s[:n])
}

func getString(field []byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// Truncate returns the prefix of s that survives encoding into a field of the given
// capacity.
func Truncate(s string, capacity int) string {
	if capacity <= 0 {
		return ""
	}
	buf := make([]byte, capacity)
	putString(buf, s)
	return getString(buf)
}
