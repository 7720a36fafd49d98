package fuzz

import (
	"io"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FieldKind is the closed set of telemetry value types. The emitter panics
// on any other value; the constructors below are the only way the fuzzer
// builds fields.
type FieldKind uint8

const (
	KindChar FieldKind = iota
	KindInt
	KindFloat
	KindOctal
	KindPtr
	KindU64
	KindStr
	KindUint
	KindHex
	KindSize
	KindBytes
)

// Field is one named, typed telemetry value. Records are ordered []Field
// slices; the order fields are listed in is the order they serialize in.
type Field struct {
	Name string
	Kind FieldKind

	i int64
	u uint64
	f float64
	s string
	b []byte
}

func Char(name string, c byte) Field {
	return Field{Name: name, Kind: KindChar, u: uint64(c)}
}

func Int(name string, v int64) Field {
	return Field{Name: name, Kind: KindInt, i: v}
}

func Float(name string, v float64) Field {
	return Field{Name: name, Kind: KindFloat, f: v}
}

func Octal(name string, v uint64) Field {
	return Field{Name: name, Kind: KindOctal, u: v}
}

func Ptr(name string, v uintptr) Field {
	return Field{Name: name, Kind: KindPtr, u: uint64(v)}
}

func U64(name string, v uint64) Field {
	return Field{Name: name, Kind: KindU64, u: v}
}

func Str(name, v string) Field {
	return Field{Name: name, Kind: KindStr, s: v}
}

func Uint(name string, v uint64) Field {
	return Field{Name: name, Kind: KindUint, u: v}
}

func Hex(name string, v uint64) Field {
	return Field{Name: name, Kind: KindHex, u: v}
}

func Size(name string, v uint64) Field {
	return Field{Name: name, Kind: KindSize, u: v}
}

func Bytes(name string, v []byte) Field {
	return Field{Name: name, Kind: KindBytes, b: v}
}

func (f Field) appendValue(dst []byte) []byte {
	switch f.Kind {
	case KindChar:
		return strconv.AppendQuote(dst, string(rune(f.u)))
	case KindInt:
		return strconv.AppendInt(dst, f.i, 10)
	case KindFloat:
		return strconv.AppendFloat(dst, f.f, 'f', 6, 64)
	case KindOctal:
		dst = append(dst, '"', '0', 'o')
		dst = strconv.AppendUint(dst, f.u, 8)
		return append(dst, '"')
	case KindPtr, KindHex:
		dst = append(dst, '"', '0', 'x')
		dst = strconv.AppendUint(dst, f.u, 16)
		return append(dst, '"')
	case KindU64, KindUint, KindSize:
		return strconv.AppendUint(dst, f.u, 10)
	case KindStr:
		return strconv.AppendQuote(dst, f.s)
	case KindBytes:
		dst = append(dst, '"')
		dst = append(dst, hexutil.Encode(f.b)...)
		return append(dst, '"')
	default:
		panic("io fuzzer: unknown telemetry field kind")
	}
}

// LogHandler serializes one telemetry record to w. Handlers must write the
// whole record before returning; the fuzzer calls them at most once per
// iteration, before the I/O call the record describes.
type LogHandler func(w io.Writer, fields []Field)

type syncer interface {
	Sync() error
}

// JSONLogHandler writes one JSON object per record, one record per line:
// {"time":<unix seconds>,"<field>":<value>,...} with fields in emission
// order. The write is followed by a Sync when the sink supports it, so the
// record describing an operation is durable before the operation can crash
// the target.
func JSONLogHandler(w io.Writer, fields []Field) {
	buf := make([]byte, 0, 128)
	buf = append(buf, `{"time":`...)
	buf = strconv.AppendInt(buf, time.Now().Unix(), 10)
	for _, f := range fields {
		buf = append(buf, ',')
		buf = strconv.AppendQuote(buf, f.Name)
		buf = append(buf, ':')
		buf = f.appendValue(buf)
	}
	buf = append(buf, '}', '\n')
	if _, err := w.Write(buf); err != nil {
		return
	}
	if s, ok := w.(syncer); ok {
		_ = s.Sync()
	}
}
