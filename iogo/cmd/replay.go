package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ReplayExecuteFlag = &cli.BoolFlag{
	Name:  "execute",
	Usage: "Drive the real port bus instead of discarding I/O. Requires privileges.",
}

// Replay decodes one saved stream and re-emits its telemetry record to
// stdout. By default the port I/O itself is discarded, so a crashing input
// can be inspected without touching the hardware; --execute repeats the
// original call.
func Replay(ctx *cli.Context) error {
	l := Logger(os.Stderr, diagLevel(ctx))
	input := ctx.Args().First()
	if input == "" {
		return fmt.Errorf("no input stream given")
	}

	// The allow-list is part of the decode: a stream recorded against one
	// must replay against the same one to select the same port.
	var ports []uint16
	if list := ctx.String(RunPortsFlag.Name); list != "" {
		var err error
		if ports, err = ParsePortList(list); err != nil {
			return fmt.Errorf("failed to parse port list: %w", err)
		}
	}

	return runFuzz(ctx.Context, &runConfig{
		fs:     afero.NewOsFs(),
		log:    l,
		ports:  ports,
		input:  input,
		dryRun: !ctx.Bool(ReplayExecuteFlag.Name),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	})
}

var ReplayCommand = &cli.Command{
	Name:        "replay",
	Usage:       "Replay one recorded input stream and print its telemetry record.",
	Description: "Replay one recorded input stream. Decoding is deterministic, so the printed record matches the one emitted when the stream was first executed.",
	Action:      Replay,
	Flags: []cli.Flag{
		ReplayExecuteFlag,
		RunPortsFlag,
		VerboseFlag,
		QuietFlag,
	},
}
