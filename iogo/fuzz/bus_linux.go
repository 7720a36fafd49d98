//go:build linux

package fuzz

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DevPortPath is the kernel's raw port I/O device. Byte offset n maps to
// I/O port n; pread/pwrite at that offset issue the in/out instructions on
// the caller's behalf, so no iopl raise is needed beyond the device
// permissions.
const DevPortPath = "/dev/port"

// DevPortBus drives real x86 port I/O through /dev/port. Requires root or
// CAP_SYS_RAWIO.
type DevPortBus struct {
	fd int
}

func OpenDevPort(path string) (*DevPortBus, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &DevPortBus{fd: fd}, nil
}

func (b *DevPortBus) Close() error {
	return unix.Close(b.fd)
}

func (b *DevPortBus) read(port uint16, buf []byte) {
	// Errors are deliberately not surfaced: a faulted transfer is a fuzz
	// outcome, not a fuzzer failure.
	_, _ = unix.Pread(b.fd, buf, int64(port))
}

func (b *DevPortBus) write(port uint16, buf []byte) {
	_, _ = unix.Pwrite(b.fd, buf, int64(port))
}

func (b *DevPortBus) Read8(port uint16) uint8 {
	var buf [1]byte
	b.read(port, buf[:])
	return buf[0]
}

func (b *DevPortBus) Read16(port uint16) uint16 {
	var buf [2]byte
	b.read(port, buf[:])
	return uint16(buf[0]) | uint16(buf[1])<<8
}

func (b *DevPortBus) Read32(port uint16) uint32 {
	var buf [4]byte
	b.read(port, buf[:])
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

func (b *DevPortBus) Write8(port uint16, v uint8) {
	buf := [1]byte{v}
	b.write(port, buf[:])
}

func (b *DevPortBus) Write16(port uint16, v uint16) {
	buf := [2]byte{byte(v), byte(v >> 8)}
	b.write(port, buf[:])
}

func (b *DevPortBus) Write32(port uint16, v uint32) {
	buf := [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	b.write(port, buf[:])
}

func (b *DevPortBus) readString(port uint16, buf []byte, count, width int) {
	for i := 0; i < count; i++ {
		b.read(port, buf[i*width:(i+1)*width])
	}
}

func (b *DevPortBus) writeString(port uint16, buf []byte, count, width int) {
	for i := 0; i < count; i++ {
		b.write(port, buf[i*width:(i+1)*width])
	}
}

func (b *DevPortBus) ReadString8(port uint16, buf []byte, count int) {
	b.readString(port, buf, count, 1)
}

func (b *DevPortBus) ReadString16(port uint16, buf []byte, count int) {
	b.readString(port, buf, count, 2)
}

func (b *DevPortBus) ReadString32(port uint16, buf []byte, count int) {
	b.readString(port, buf, count, 4)
}

func (b *DevPortBus) WriteString8(port uint16, buf []byte, count int) {
	b.writeString(port, buf, count, 1)
}

func (b *DevPortBus) WriteString16(port uint16, buf []byte, count int) {
	b.writeString(port, buf, count, 2)
}

func (b *DevPortBus) WriteString32(port uint16, buf []byte, count int) {
	b.writeString(port, buf, count, 4)
}
