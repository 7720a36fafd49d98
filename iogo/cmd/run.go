package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"golang.org/x/exp/slog"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/ioport-labs/iogo/iogo/fuzz"
)

var (
	RunPortsFlag = &cli.StringFlag{
		Name:    "ports",
		Aliases: []string{"p"},
		Usage:   "Comma-separated list of I/O port addresses and low-high ranges. The default is all ports.",
	}
	RunOutputFlag = &cli.PathFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Append telemetry records to `FILE` instead of stdout.",
	}
	RunGenerateFlag = &cli.BoolFlag{
		Name:    "generate",
		Aliases: []string{"g"},
		Usage:   "Generate input streams with the internal pseudorandom generator instead of reading them.",
	}
	RunSeedFlag = &cli.Uint64Flag{
		Name:    "seed",
		Aliases: []string{"s"},
		Usage:   "Seed for the pseudorandom generator.",
		Value:   1,
	}
	RunIterationsFlag = &cli.Uint64Flag{
		Name:    "iterations",
		Aliases: []string{"n"},
		Usage:   "Stop generate mode after `NUM` iterations. 0 runs until interrupted.",
	}
	RunTimeoutFlag = &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "Per-iteration watchdog timeout. 0 disables the watchdog.",
		Value:   5 * time.Second,
	}
	RunDryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Discard port I/O instead of driving the hardware. No privileges required.",
	}
	RunPProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "Write a CPU profile to the current directory.",
	}
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug diagnostics.",
	}
	QuietFlag = &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   "Only log diagnostic errors.",
	}
)

// progress log cadence in generate mode
const infoEvery = 1 << 16

type runConfig struct {
	fs  afero.Fs
	log log.Logger

	ports      []uint16
	output     string
	input      string
	generate   bool
	seed       uint64
	iterations uint64
	timeout    time.Duration
	dryRun     bool

	stdin  io.Reader
	stdout io.Writer
}

func diagLevel(ctx *cli.Context) slog.Level {
	switch {
	case ctx.Bool(VerboseFlag.Name):
		return log.LevelDebug
	case ctx.Bool(QuietFlag.Name):
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

func Run(ctx *cli.Context) error {
	if ctx.Bool(RunPProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	l := Logger(os.Stderr, diagLevel(ctx))

	var ports []uint16
	if list := ctx.String(RunPortsFlag.Name); list != "" {
		var err error
		if ports, err = ParsePortList(list); err != nil {
			return fmt.Errorf("failed to parse port list: %w", err)
		}
	}

	return runFuzz(ctx.Context, &runConfig{
		fs:         afero.NewOsFs(),
		log:        l,
		ports:      ports,
		output:     ctx.Path(RunOutputFlag.Name),
		input:      ctx.Args().First(),
		generate:   ctx.Bool(RunGenerateFlag.Name),
		seed:       ctx.Uint64(RunSeedFlag.Name),
		iterations: ctx.Uint64(RunIterationsFlag.Name),
		timeout:    ctx.Duration(RunTimeoutFlag.Name),
		dryRun:     ctx.Bool(RunDryRunFlag.Name),
		stdin:      os.Stdin,
		stdout:     os.Stdout,
	})
}

func runFuzz(ctx context.Context, cfg *runConfig) error {
	sink, closeSink, err := openSink(cfg.fs, cfg.output, cfg.stdout)
	if err != nil {
		return fmt.Errorf("failed to open telemetry sink: %w", err)
	}
	defer func() {
		if err := closeSink(); err != nil {
			cfg.log.Error("failed to close telemetry sink", "err", err)
		}
	}()

	var bus fuzz.Bus = fuzz.NopBus{}
	if !cfg.dryRun {
		pb, err := fuzz.OpenDevPort(fuzz.DevPortPath)
		if err != nil {
			return fmt.Errorf("failed to open port bus: %w", err)
		}
		defer func() {
			if err := pb.Close(); err != nil {
				cfg.log.Error("failed to close port bus", "err", err)
			}
		}()
		bus = pb
	}

	fz, err := fuzz.New(fuzz.Config{
		Ports: cfg.ports,
		Bus:   bus,
		OnError: func(status int, err error, msg string) {
			cfg.log.Crit("fuzzer failure", "status", status, "err", err, "msg", msg)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create fuzzer: %w", err)
	}
	defer fz.Close()
	fz.SetLogHandler(fuzz.JSONLogHandler)
	fz.SetLogSink(sink)

	var watchdog *time.Timer
	if cfg.timeout > 0 {
		watchdog = time.AfterFunc(cfg.timeout, func() {
			cfg.log.Error("iteration exceeded timeout", "timeout", cfg.timeout)
			os.Exit(2)
		})
		defer watchdog.Stop()
	}

	if !cfg.generate {
		stream, err := readStream(cfg.fs, cfg.input, cfg.stdin)
		if err != nil {
			return err
		}
		if watchdog != nil {
			watchdog.Reset(cfg.timeout)
		}
		if err := fz.RunIteration(fuzz.NewInput(stream)); err != nil {
			return fmt.Errorf("iteration failed: %w", err)
		}
		return nil
	}

	cfg.log.Info("fuzzing", "ports", len(cfg.ports), "seed", cfg.seed, "dry-run", cfg.dryRun)
	rng := rand.New(rand.NewSource(int64(cfg.seed)))
	stream := make([]byte, fuzz.MaxInput)

	start := time.Now()
	for i := uint64(0); cfg.iterations == 0 || i < cfg.iterations; i++ {
		if i%100 == 0 { // don't do the ctx err check (includes lock) too often
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if i > 0 && i%infoEvery == 0 {
			delta := time.Since(start)
			cfg.log.Info("fuzzing",
				"iteration", i,
				"ips", float64(i)/(float64(delta)/float64(time.Second)),
			)
		}

		randomBuf(rng, stream)
		if watchdog != nil {
			watchdog.Reset(cfg.timeout)
		}
		if err := fz.RunIteration(fuzz.NewInput(stream)); err != nil {
			return fmt.Errorf("iteration %d failed: %w", i, err)
		}
	}
	return nil
}

// randomBuf expands the generator one 16-bit word at a time. The
// word-granular layout keeps generated streams aligned with the 16-bit
// fields the decoder consumes, which replay tooling relies on when flipping
// stream bytes.
func randomBuf(rng *rand.Rand, buf []byte) {
	var word uint32
	for i := range buf {
		if i%2 == 0 {
			word = rng.Uint32()
		}
		buf[i] = byte(word >> (8 * (i % 2)))
	}
}

func openSink(fs afero.Fs, path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	fp, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return fp, fp.Close, nil
}

func readStream(fs afero.Fs, path string, stdin io.Reader) ([]byte, error) {
	r := stdin
	if path != "" {
		fp, err := fs.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input stream: %w", err)
		}
		defer fp.Close()
		r = fp
	}
	data, err := io.ReadAll(io.LimitReader(r, fuzz.MaxInput))
	if err != nil {
		return nil, fmt.Errorf("failed to read input stream: %w", err)
	}
	return data, nil
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Fuzz the target's I/O ports with generated or recorded input streams.",
	Description: "Fuzz the target's I/O ports. In generate mode a seeded pseudorandom stream drives iterations until interrupted; otherwise one recorded stream is read from a file or stdin and executed once.",
	Action:      Run,
	Flags: []cli.Flag{
		RunPortsFlag,
		RunOutputFlag,
		RunGenerateFlag,
		RunSeedFlag,
		RunIterationsFlag,
		RunTimeoutFlag,
		RunDryRunFlag,
		RunPProfCPUFlag,
		VerboseFlag,
		QuietFlag,
	},
}
