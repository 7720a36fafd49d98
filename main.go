package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ioport-labs/iogo/iogo/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "iogo"
	app.Usage = "I/O-port fuzzer for emulated hardware targets"
	app.Description = "Drives a target's I/O-port interface with structured random or replayed input streams and records every operation as a replayable telemetry record."
	app.Commands = []*cli.Command{
		cmd.RunCommand,
		cmd.ReplayCommand,
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted")
			os.Exit(130)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v", err)
			os.Exit(1)
		}
	}
}
