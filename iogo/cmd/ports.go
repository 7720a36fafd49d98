package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePortList parses a comma-separated port allow-list. Each element is a
// single address or an inclusive low-high range, in any base strconv
// accepts with base 0 (0x.., 0o.., decimal). Every address must fit the
// 16-bit I/O space.
func ParsePortList(s string) ([]uint16, error) {
	var ports []uint16
	for _, elem := range strings.Split(s, ",") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			return nil, fmt.Errorf("empty element in port list %q", s)
		}
		lo, hi, ok := strings.Cut(elem, "-")
		first, err := parsePort(lo)
		if err != nil {
			return nil, err
		}
		if !ok {
			ports = append(ports, first)
			continue
		}
		last, err := parsePort(hi)
		if err != nil {
			return nil, err
		}
		if last < first {
			return nil, fmt.Errorf("inverted port range %q", elem)
		}
		for p := uint32(first); p <= uint32(last); p++ {
			ports = append(ports, uint16(p))
		}
	}
	return ports, nil
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	return uint16(p), nil
}
