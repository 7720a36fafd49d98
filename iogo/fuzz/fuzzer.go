package fuzz

import (
	"errors"
	"io"
	"math"
)

const (
	// MaxPorts is the size of the 16-bit I/O address space.
	MaxPorts = 1 << 16

	// MaxString is the worst-case buffered transfer in bytes: the largest
	// decodable element count at the widest element width. The scratch
	// buffer is always allocated at exactly this size, never at a size
	// derived from a decoded count.
	MaxString = 4 * math.MaxUint16

	// MaxInput is the worst-case stream length of one iteration: the port
	// draw, the operation draw, the element count, and a full-width
	// element payload. A stream this long fully decodes for every
	// operation.
	MaxInput = 4 + 4 + 2 + MaxString
)

var ErrNilBus = errors.New("io fuzzer: nil bus")

// ErrorHandler receives fatal construction and runtime errors: a status
// code, the underlying error, and a short context message. A nil handler
// swallows the report.
type ErrorHandler func(status int, err error, msg string)

// Config fixes a Fuzzer's immutable state. Ports is borrowed, not copied:
// the caller must keep it alive and unmodified for the fuzzer's lifetime.
type Config struct {
	// Ports is the allow-list of target addresses. Empty means the full
	// 16-bit address space.
	Ports []uint16

	// Bus performs the actual port I/O. Required.
	Bus Bus

	// OnError receives fatal error reports. Optional.
	OnError ErrorHandler
}

// Fuzzer decodes one iteration at a time from an opaque byte stream into
// exactly one port I/O call, emitting a replayable telemetry record per
// call. It holds no state across iterations beyond configuration and the
// reusable scratch buffer.
type Fuzzer struct {
	ports   []uint16
	bus     Bus
	onError ErrorHandler

	logHandler LogHandler
	logSink    io.Writer

	scratch []byte
}

func New(cfg Config) (*Fuzzer, error) {
	if cfg.Bus == nil {
		if cfg.OnError != nil {
			cfg.OnError(0, ErrNilBus, "create")
		}
		return nil, ErrNilBus
	}
	return &Fuzzer{
		ports:   cfg.Ports,
		bus:     cfg.Bus,
		onError: cfg.OnError,
		scratch: make([]byte, MaxString),
	}, nil
}

// Close releases the fuzzer's own memory. Safe on a nil receiver. The
// borrowed port list and the registered sink are the caller's to release.
func (f *Fuzzer) Close() error {
	if f == nil {
		return nil
	}
	f.scratch = nil
	return nil
}

// SetErrorHandler replaces the fuzzer's error handler and returns the
// previous one.
func (f *Fuzzer) SetErrorHandler(h ErrorHandler) ErrorHandler {
	prev := f.onError
	f.onError = h
	return prev
}

// SetLogHandler replaces the telemetry handler and returns the previous
// one. With no handler installed, iterations run silently.
func (f *Fuzzer) SetLogHandler(h LogHandler) LogHandler {
	prev := f.logHandler
	f.logHandler = h
	return prev
}

// SetLogSink replaces the telemetry sink and returns the previous one.
func (f *Fuzzer) SetLogSink(w io.Writer) io.Writer {
	prev := f.logSink
	f.logSink = w
	return prev
}

func (f *Fuzzer) log(fields ...Field) {
	if f.logHandler == nil || f.logSink == nil {
		return
	}
	f.logHandler(f.logSink, fields)
}

type opShape uint8

const (
	shapeRead opShape = iota
	shapeWrite
	shapeReadString
	shapeWriteString
)

type op struct {
	name  string
	shape opShape
	width int // element width in bytes
}

// ops is the closed operation repertoire. The selector is drawn over the
// table's index range, so every entry is reachable with equal probability
// from a byte-uniform stream and no draw can fall outside the table.
var ops = [12]op{
	{"io_read16", shapeRead, 2},
	{"io_read32", shapeRead, 4},
	{"io_read8", shapeRead, 1},
	{"io_read_string16", shapeReadString, 2},
	{"io_read_string32", shapeReadString, 4},
	{"io_read_string8", shapeReadString, 1},
	{"io_write16", shapeWrite, 2},
	{"io_write32", shapeWrite, 4},
	{"io_write8", shapeWrite, 1},
	{"io_write_string16", shapeWriteString, 2},
	{"io_write_string32", shapeWriteString, 4},
	{"io_write_string8", shapeWriteString, 1},
}

// RunIteration performs one selection+dispatch+telemetry cycle: pick a
// target port, pick one of the 12 operations, decode its arguments, emit
// the telemetry record, then issue exactly one bus call. The record is
// emitted before the call so it is durable even if the call crashes the
// target. A stream too short to decode the selected operation returns an
// error with no bus call issued.
func (f *Fuzzer) RunIteration(in *Input) error {
	var port uint16
	if len(f.ports) == 0 {
		p, err := in.Range(0, MaxPorts-1)
		if err != nil {
			return err
		}
		port = uint16(p)
	} else {
		i, err := in.Range(0, uint64(len(f.ports)-1))
		if err != nil {
			return err
		}
		port = f.ports[i]
	}

	sel, err := in.Range(0, uint64(len(ops)-1))
	if err != nil {
		return err
	}
	o := ops[sel]

	switch o.shape {
	case shapeRead:
		f.log(Str("function", o.name), Uint("port", uint64(port)))
		f.busRead(o.width, port)

	case shapeWrite:
		v, err := f.readValue(in, o.width)
		if err != nil {
			return err
		}
		f.log(Str("function", o.name), Uint("port", uint64(port)), Uint("value", v))
		f.busWrite(o.width, port, v)

	case shapeReadString:
		count, err := in.U16()
		if err != nil {
			return err
		}
		buf := f.scratchFor(int(count), o.width)
		f.log(Str("function", o.name), Uint("port", uint64(port)), Bytes("string", buf), Uint("count", uint64(count)))
		f.busReadString(o.width, port, buf, int(count))

	case shapeWriteString:
		count, err := in.U16()
		if err != nil {
			return err
		}
		buf := f.scratchFor(int(count), o.width)
		if err := in.Elems(buf); err != nil {
			return err
		}
		f.log(Str("function", o.name), Uint("port", uint64(port)), Bytes("string", buf), Uint("count", uint64(count)))
		f.busWriteString(o.width, port, buf, int(count))

	default:
		panic("io fuzzer: operation outside the closed repertoire")
	}
	return nil
}

// scratchFor returns the zeroed count*width byte window of the fixed
// scratch buffer. The untrusted count bounds the transfer length only; it
// never sizes an allocation. count*width cannot exceed len(f.scratch) since
// count is 16-bit and width is at most 4.
func (f *Fuzzer) scratchFor(count, width int) []byte {
	buf := f.scratch[:count*width]
	clear(buf)
	return buf
}

func (f *Fuzzer) readValue(in *Input, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := in.U8()
		return uint64(v), err
	case 2:
		v, err := in.U16()
		return uint64(v), err
	case 4:
		v, err := in.U32()
		return uint64(v), err
	default:
		panic("io fuzzer: invalid element width")
	}
}

func (f *Fuzzer) busRead(width int, port uint16) {
	switch width {
	case 1:
		f.bus.Read8(port)
	case 2:
		f.bus.Read16(port)
	case 4:
		f.bus.Read32(port)
	default:
		panic("io fuzzer: invalid element width")
	}
}

func (f *Fuzzer) busWrite(width int, port uint16, v uint64) {
	switch width {
	case 1:
		f.bus.Write8(port, uint8(v))
	case 2:
		f.bus.Write16(port, uint16(v))
	case 4:
		f.bus.Write32(port, uint32(v))
	default:
		panic("io fuzzer: invalid element width")
	}
}

func (f *Fuzzer) busReadString(width int, port uint16, buf []byte, count int) {
	switch width {
	case 1:
		f.bus.ReadString8(port, buf, count)
	case 2:
		f.bus.ReadString16(port, buf, count)
	case 4:
		f.bus.ReadString32(port, buf, count)
	default:
		panic("io fuzzer: invalid element width")
	}
}

func (f *Fuzzer) busWriteString(width int, port uint16, buf []byte, count int) {
	switch width {
	case 1:
		f.bus.WriteString8(port, buf, count)
	case 2:
		f.bus.WriteString16(port, buf, count)
	case 4:
		f.bus.WriteString32(port, buf, count)
	default:
		panic("io fuzzer: invalid element width")
	}
}
