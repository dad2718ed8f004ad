// Command lumen is the Lumen language's CLI: run a script, start a
// REPL, disassemble compiled bytecode, or report GC statistics
// (spec.md §6's subcommand list), replacing the teacher (kristofer-smog)
// command's hand-rolled os.Args switch with github.com/urfave/cli.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kristofer/lumen/pkg/compiler"
	"github.com/kristofer/lumen/pkg/config"
	"github.com/kristofer/lumen/pkg/gc"
	"github.com/kristofer/lumen/pkg/object"
	"github.com/kristofer/lumen/pkg/vm"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "lumen"
	app.Usage = "the Lumen language interpreter"
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to lumen.yaml (default: ./lumen.yaml)"},
		cli.BoolFlag{Name: "stress-gc", Usage: "collect on every allocation point"},
		cli.BoolFlag{Name: "log-gc", Usage: "log every GC cycle at debug level"},
	}

	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "run a Lumen source file",
			ArgsUsage: "[file]",
			Action:    runAction,
		},
		{
			Name:   "repl",
			Usage:  "start an interactive Lumen session",
			Action: replAction,
		},
		{
			Name:      "disassemble",
			Usage:     "print the compiled bytecode for a source file",
			ArgsUsage: "<file>",
			Action:    disassembleAction,
		},
		{
			Name:   "gc-stats",
			Usage:  "compile and run a file, then report per-generation heap stats",
			Action: gcStatsAction,
		},
		{
			Name:   "version",
			Usage:  "print the lumen version",
			Action: func(c *cli.Context) error { fmt.Println("lumen version " + version); return nil },
		},
	}

	// Bare `lumen [file]` and bare `lumen` (REPL) without a subcommand,
	// matching the teacher's default-to-run-or-repl behavior.
	app.Action = func(c *cli.Context) error {
		if c.NArg() == 0 {
			return replAction(c)
		}
		return runAction(c)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the *zap.Logger the VM and GC log through: a
// human-readable console encoder by default, switching to JSON when
// LUMEN_LOG_JSON is set (spec.md §2's ambient logging stack).
func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	var encoder zapcore.Encoder
	if os.Getenv("LUMEN_LOG_JSON") != "" {
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.WarnLevel)
	return zap.New(core)
}

// loadConfig merges CLI flags over an optional lumen.yaml and the
// built-in defaults.
func loadConfig(c *cli.Context) (config.VMConfig, error) {
	path := c.GlobalString("config")
	if path == "" {
		path = "lumen.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if c.GlobalBool("stress-gc") {
		cfg.StressGC = true
	}
	if c.GlobalBool("log-gc") {
		cfg.LogGC = true
	}
	return cfg, nil
}

// newVM wires a configured Heap, Collector, and VM together the way
// spec.md §6's `init_vm(config) -> VM` describes.
func newVM(cfg config.VMConfig, log *zap.Logger) *vm.VM {
	heap := object.NewHeap(cfg.GCEdenHeapSize, cfg.GCYoungHeapSize, cfg.GCOldHeapSize, cfg.GCHeapSize, cfg.GCGrowthFactor)

	var gcLog *zap.Logger
	if cfg.LogGC {
		gcLog = log
	}
	collector := gc.New(heap, gcLog)
	collector.SetStressMode(cfg.StressGC)

	return vm.New(heap, collector, log)
}

func compileSource(heap *object.Heap, source string) (*compiler.Result, error) {
	comp := compiler.New(heap)
	result, errs := comp.Compile(source)
	if len(errs) > 0 {
		return nil, errors.Errorf("compile errors:\n  %s", joinLines(errs))
	}
	return result, nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n  "
		}
		out += l
	}
	return out
}

func runAction(c *cli.Context) error {
	filename := c.Args().First()
	if filename == "" {
		return cli.NewExitError("run: no file specified", 1)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync()

	runID := uuid.New()
	log.Debug("interpret", zap.String("run_id", runID.String()), zap.String("file", filename))

	machine := newVM(cfg, log)
	result, err := compileSource(machine.Heap(), string(data))
	if err != nil {
		return cli.NewExitError(err.Error(), 65)
	}
	if _, err := machine.Interpret(result.Function, result.FunctionID); err != nil {
		return cli.NewExitError(err.Error(), 70)
	}
	return nil
}

func disassembleAction(c *cli.Context) error {
	filename := c.Args().First()
	if filename == "" {
		return cli.NewExitError("disassemble: no file specified", 1)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	heap := object.NewHeap(cfg.GCEdenHeapSize, cfg.GCYoungHeapSize, cfg.GCOldHeapSize, cfg.GCHeapSize, cfg.GCGrowthFactor)
	result, err := compileSource(heap, string(data))
	if err != nil {
		return cli.NewExitError(err.Error(), 65)
	}
	fmt.Print(vm.Disassemble(heap, result.Function.Chunk, filename))
	return nil
}

func gcStatsAction(c *cli.Context) error {
	filename := c.Args().First()
	if filename == "" {
		return cli.NewExitError("gc-stats: no file specified", 1)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync()

	machine := newVM(cfg, log)
	result, err := compileSource(machine.Heap(), string(data))
	if err != nil {
		return cli.NewExitError(err.Error(), 65)
	}
	if _, err := machine.Interpret(result.Function, result.FunctionID); err != nil {
		return cli.NewExitError(err.Error(), 70)
	}

	heap := machine.Heap()
	for _, g := range []object.Generation{object.Eden, object.Young, object.Old, object.Permanent} {
		gen := heap.Gen(g)
		fmt.Printf("%-10s allocated=%-10s threshold=%s\n",
			g.String(), humanize.Bytes(uint64(gen.BytesAllocated)), humanize.Bytes(uint64(gen.Threshold)))
	}
	return nil
}

// replAction runs an interactive session over github.com/peterh/liner,
// replacing the teacher's bufio.Scanner REPL loop with history and line
// editing. A line left with unbalanced braces is treated as the start of
// a multi-line block and accumulated until the braces close.
func replAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync()

	machine := newVM(cfg, log)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := ".lumen_history"
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("lumen %s — Ctrl-D to exit\n", version)

	var buf string
	depth := 0
	prompt := "lumen> "
	for {
		input, err := line.Prompt(prompt)
		if err != nil { // io.EOF on Ctrl-D, liner.ErrPromptAborted on Ctrl-C
			break
		}
		line.AppendHistory(input)

		buf += input + "\n"
		depth += braceDelta(input)
		if depth > 0 {
			prompt = "   ... "
			continue
		}
		prompt = "lumen> "

		result, compErr := compileSource(machine.Heap(), buf)
		buf = ""
		if compErr != nil {
			fmt.Fprintln(os.Stderr, compErr)
			continue
		}
		if v, err := machine.Interpret(result.Function, result.FunctionID); err != nil {
			fmt.Fprintln(os.Stderr, err)
		} else if !v.IsNil() {
			if s, err := machine.Stringify(v); err == nil {
				fmt.Println(s)
			}
		}
	}

	if f, err := os.Create(historyPath); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
	return nil
}

func braceDelta(s string) int {
	delta := 0
	for _, r := range s {
		switch r {
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}
