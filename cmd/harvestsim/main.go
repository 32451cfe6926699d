// Package main provides the entry point for harvestsim, a
// cycle-accurate ARMv6-M interpreter coupled to a capacitor-backed
// checkpoint/restore energy scheme.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tinypower/harvestsim/driver"
	"github.com/tinypower/harvestsim/harvest"
	"github.com/tinypower/harvestsim/loader"
	"github.com/tinypower/harvestsim/mem"
	"github.com/tinypower/harvestsim/scheme"
	"github.com/tinypower/harvestsim/simerr"
	"github.com/tinypower/harvestsim/stats"
)

var (
	schemeName  = flag.String("scheme", "odab", "Energy-harvesting scheme: odab or periodic")
	harvestPath = flag.String("harvest", "", "Path to a harvest trace CSV (time_seconds,watts); constant 1W if omitted")
	configPath  = flag.String("config", "", "Path to a scheme configuration JSON file")
	cycles      = flag.Uint64("cycles", 0, "Cycle limit; 0 means unlimited")
	statsOut    = flag.String("stats-out", "", "Path to write the stats JSON document")
	stallAfter  = flag.Float64("stall-after", 0, "Seconds an off-period may run before the simulation reports stalled; 0 means unlimited")
	flat        = flag.Bool("flat", false, "Treat the binary as a raw flat image instead of ELF")
	loadBase    = flag.Uint64("load-addr", loader.DefaultLoadAddress, "Load address for a flat image")
	verbose     = flag.Bool("v", false, "Verbose output")
	logLevel    = flag.String("log-level", "warn", "Minimum log level: debug, info, warn, or error")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: harvestsim [options] <program.bin|program.elf>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(programPath string) int {
	prog, err := loadProgram(programPath)
	if err != nil {
		slog.Error("failed to load program", "path", programPath, "error", err)
		return 1
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%08X\n", prog.EntryPoint)
		fmt.Printf("Initial SP:  0x%08X\n", prog.InitialSP)
		fmt.Printf("Segments:    %d\n", len(prog.Segments))
	}

	m := mem.NewMemory()
	prog.MapInto(m)

	cfg, err := loadSchemeConfig()
	if err != nil {
		slog.Error("failed to load scheme config", "error", err)
		return 1
	}

	ledger := stats.New()
	sch, err := scheme.New(scheme.Name(*schemeName), *cfg, ledger)
	if err != nil {
		slog.Error("failed to instantiate scheme", "scheme", *schemeName, "error", err)
		return 1
	}

	trace, err := loadHarvestTrace()
	if err != nil {
		slog.Error("failed to load harvest trace", "path", *harvestPath, "error", err)
		return 1
	}

	slog.Info("starting run", "scheme", *schemeName, "cycle_limit", *cycles)

	d := driver.New(m, prog.EntryPoint, prog.InitialSP, sch, trace, ledger, *cycles, *stallAfter)
	result := d.Run()

	if *statsOut != "" {
		if err := ledger.WriteFile(*statsOut); err != nil {
			slog.Error("failed to write stats", "path", *statsOut, "error", err)
		}
	}

	return report(result)
}

func loadProgram(path string) (*loader.Program, error) {
	if *flat {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read flat image: %w", err)
		}
		return loader.LoadFlat(data, uint32(*loadBase)), nil
	}
	return loader.LoadELF(path)
}

func loadSchemeConfig() (*scheme.Config, error) {
	if *configPath == "" {
		cfg := scheme.DefaultConfig()
		return &cfg, nil
	}

	cfg, err := scheme.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheme config: %w", err)
	}
	return cfg, nil
}

func loadHarvestTrace() (*harvest.Trace, error) {
	if *harvestPath == "" {
		return harvest.Constant(1.0), nil
	}
	return harvest.LoadFile(*harvestPath)
}

// report prints the human-readable summary, the way cmd/m2sim/main.go
// prints its timing report, and returns the process exit code.
func report(res driver.RunResult) int {
	fmt.Printf("Status:    %s\n", res.Status)

	switch res.Status {
	case simerr.StatusSentinelExit:
		fmt.Printf("Exit code: %d\n", res.ExitCode)
		return int(res.ExitCode)
	case simerr.StatusCycleLimit:
		return 0
	case simerr.StatusStalled:
		fmt.Println("The harvest trace never recovered enough energy to restart.")
		return 2
	case simerr.StatusFault:
		fmt.Printf("Fault: %v\n", res.Err)
		return 1
	default:
		return 1
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
