package cmd

import (
	"fmt"
	"io"

	"golang.org/x/exp/slog"

	"github.com/ethereum/go-ethereum/log"
)

func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// HexU16 to lazy-format port addresses for logging
type HexU16 uint16

func (v HexU16) String() string {
	return fmt.Sprintf("%04x", uint16(v))
}

func (v HexU16) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
