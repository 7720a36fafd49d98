package fuzz

// Bus is the port-access capability the fuzzer drives. Scalar calls transfer
// one value of the named width; string calls transfer count elements of the
// element width through buf, always against the same port (x86 ins/outs
// semantics). Implementations own all side effects; the fuzzer never
// inspects a read result.
type Bus interface {
	Read8(port uint16) uint8
	Read16(port uint16) uint16
	Read32(port uint16) uint32

	Write8(port uint16, v uint8)
	Write16(port uint16, v uint16)
	Write32(port uint16, v uint32)

	ReadString8(port uint16, buf []byte, count int)
	ReadString16(port uint16, buf []byte, count int)
	ReadString32(port uint16, buf []byte, count int)

	WriteString8(port uint16, buf []byte, count int)
	WriteString16(port uint16, buf []byte, count int)
	WriteString32(port uint16, buf []byte, count int)
}

// NopBus discards writes and reads as zero. It is the dry-run and test
// target.
type NopBus struct{}

func (NopBus) Read8(uint16) uint8   { return 0 }
func (NopBus) Read16(uint16) uint16 { return 0 }
func (NopBus) Read32(uint16) uint32 { return 0 }

func (NopBus) Write8(uint16, uint8)   {}
func (NopBus) Write16(uint16, uint16) {}
func (NopBus) Write32(uint16, uint32) {}

func (NopBus) ReadString8(uint16, []byte, int)  {}
func (NopBus) ReadString16(uint16, []byte, int) {}
func (NopBus) ReadString32(uint16, []byte, int) {}

func (NopBus) WriteString8(uint16, []byte, int)  {}
func (NopBus) WriteString16(uint16, []byte, int) {}
func (NopBus) WriteString32(uint16, []byte, int) {}
