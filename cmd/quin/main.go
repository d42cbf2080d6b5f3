package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/quinlang/quin"
	"github.com/quinlang/quin/internal/cache"
	"github.com/quinlang/quin/internal/config"
	"github.com/quinlang/quin/internal/vm"
)

const (
	exitUsage     = 2
	exitCompile   = 1
	exitFault     = 70
	exitCancelled = 130
)

var (
	flagBackend = flag.String("backend", "", "code generation target: vm or 8086 (overrides quin.yaml)")
	flagDisasm  = flag.Bool("disasm", false, "print the bytecode listing instead of running")
	flagEmitAsm = flag.String("emit-asm", "", "write 8086 assembly to the given file")
	flagCache   = flag.String("cache", "", "path to a compile cache database")
	flagConfig  = flag.String("config", config.FileName, "path to the tool configuration file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.ql>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(exitUsage)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
		os.Exit(exitUsage)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitUsage)
	}

	target := cfg.Backend
	if *flagBackend != "" {
		target = *flagBackend
	}
	if *flagEmitAsm != "" {
		target = "8086"
	}

	switch target {
	case "8086":
		os.Exit(runAsm(path, string(source)))
	case "vm":
		os.Exit(runVM(path, string(source), cfg))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown backend %q (want vm or 8086)\n", target)
		os.Exit(exitUsage)
	}
}

func runAsm(path, source string) int {
	asm, diags := quin.GenerateAsm(source)
	if len(diags) > 0 {
		printDiagnostics(path, diags)
		return exitCompile
	}
	if *flagEmitAsm == "" {
		fmt.Print(asm)
		return 0
	}
	if err := os.WriteFile(*flagEmitAsm, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", *flagEmitAsm, err)
		return exitUsage
	}
	return 0
}

func runVM(path, source string, cfg *config.Config) int {
	prog, diags := compile(source)
	if prog == nil {
		printDiagnostics(path, diags)
		return exitCompile
	}

	if *flagDisasm {
		fmt.Print(vm.Disassemble(prog))
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := quin.Execute(ctx, prog, func(text string) {
		fmt.Print(text)
	}, vmOptions(cfg)...)

	switch res.State {
	case vm.StateExited:
		return res.ExitCode
	case vm.StateCancelled:
		fmt.Fprintln(os.Stderr, "interrupted")
		return exitCancelled
	default:
		fmt.Fprintf(os.Stderr, "runtime fault: %s\n", res.Fault)
		for _, frame := range res.Fault.Trace {
			fmt.Fprintf(os.Stderr, "  in %s at pc=%d\n", frame.Function, frame.PC)
		}
		return exitFault
	}
}

// compile goes through the cache when one was requested. Cache failures
// are reported but never block compilation.
func compile(source string) (*vm.Program, []quin.Diagnostic) {
	if *flagCache == "" {
		return quin.Compile(source)
	}

	c, err := cache.Open(*flagCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
		return quin.Compile(source)
	}
	defer c.Close()

	if prog, ok, err := c.Get(source); err == nil && ok {
		return prog, nil
	}
	prog, diags := quin.Compile(source)
	if prog != nil {
		if err := c.Put(source, prog); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
		}
	}
	return prog, diags
}

func vmOptions(cfg *config.Config) []vm.Option {
	var opts []vm.Option
	if cfg.MemorySize > 0 {
		opts = append(opts, vm.WithMemorySize(cfg.MemorySize))
	}
	if cfg.MaxCallDepth > 0 {
		opts = append(opts, vm.WithMaxCallDepth(cfg.MaxCallDepth))
	}
	if cfg.CheckInterval > 0 {
		opts = append(opts, vm.WithCheckInterval(cfg.CheckInterval))
	}
	return opts
}

func printDiagnostics(path string, diags []quin.Diagnostic) {
	colored := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	for _, d := range diags {
		severity := d.Severity
		if colored {
			if d.Severity == "warning" {
				severity = "\x1b[33m" + d.Severity + "\x1b[0m"
			} else {
				severity = "\x1b[31m" + d.Severity + "\x1b[0m"
			}
		}
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s [%s] %s\n",
			path, d.Line, d.Column, severity, d.Code, d.Message)
	}
}
