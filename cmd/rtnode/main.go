package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"rtnode/internal/logx"
	"rtnode/internal/node"
	"rtnode/internal/serial"
)

var (
	app = cli.NewApp()

	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "YAML or TOML configuration file",
		Value: "config.yml",
	}
	durationFlag = cli.IntFlag{
		Name:  "duration, d",
		Usage: "run length in milliseconds of virtual time, 0 = until interrupted (overrides run_ms)",
		Value: -1,
	}
	csvFlag = cli.StringFlag{
		Name:  "csv",
		Usage: "write every kernel event to this CSV file",
	}
	realtimeFlag = cli.BoolFlag{
		Name:  "realtime",
		Usage: "pace ticks against the wall clock",
	}
	statsFlag = cli.BoolFlag{
		Name:  "stats",
		Usage: "append the run-time stats table to every receiver pass",
	}
	traceFlag = cli.BoolFlag{
		Name:  "trace",
		Usage: "mirror context switches onto the simulated trace pins",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "trace, debug, info, warn or error (overrides log_level)",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "log JSON lines instead of console output",
	}
)

func init() {
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "periodic EDF task set with queues and execution-time monitoring"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		configFlag,
		durationFlag,
		csvFlag,
		realtimeFlag,
		statsFlag,
		traceFlag,
		logLevelFlag,
		jsonFlag,
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the task set (default)",
			Action: run,
		},
		{
			Name:   "config",
			Usage:  "print the effective configuration as YAML",
			Action: dumpConfig,
		},
		{
			Name:   "tasks",
			Usage:  "print the task table and its EDF utilization",
			Action: listTasks,
		},
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fail(err)
	}
}

// loadConfig reads the file named by --config and applies flag overrides.
func loadConfig(ctx *cli.Context) (node.Config, error) {
	cfg, err := node.Load(ctx.GlobalString("config"))
	if err != nil {
		return cfg, err
	}
	if d := ctx.GlobalInt("duration"); d >= 0 {
		cfg.RunMS = d
	}
	if p := ctx.GlobalString("csv"); p != "" {
		cfg.Kernel.CSVPath = p
	}
	if ctx.GlobalBool("realtime") {
		cfg.Kernel.Realtime = true
	}
	if ctx.GlobalBool("stats") {
		cfg.RuntimeStats = true
	}
	if ctx.GlobalBool("trace") {
		cfg.Trace = true
	}
	if l := ctx.GlobalString("log-level"); l != "" {
		cfg.LogLevel = l
	}
	return cfg, nil
}

func newLogger(ctx *cli.Context, level string) zerolog.Logger {
	if ctx.GlobalBool("json") {
		return logx.NewJSON(level, os.Stderr)
	}
	return logx.NewConsole(level, os.Stderr)
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log := newLogger(ctx, cfg.LogLevel)

	out := serial.NewWriter(os.Stdout)
	n, err := node.New(cfg, out, node.WithLogger(log))
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := n.Run(runCtx)
	if err := out.Flush(); err != nil {
		log.Warn().Err(err).Msg("flush serial output")
	}
	if runErr != nil {
		return runErr
	}
	printSummary(os.Stdout, n.Summary())
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	b, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}

func listTasks(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	printAnalysis(os.Stdout, cfg)
	return nil
}
