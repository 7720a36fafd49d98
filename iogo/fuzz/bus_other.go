//go:build !linux

package fuzz

import "errors"

const DevPortPath = "/dev/port"

// DevPortBus is linux-only; this stub keeps the constructor signature so
// callers fail at setup time instead of build time.
type DevPortBus struct {
	NopBus
}

func OpenDevPort(string) (*DevPortBus, error) {
	return nil, errors.New("raw port I/O is only supported on linux")
}

func (b *DevPortBus) Close() error { return nil }
