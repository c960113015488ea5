// Command gridlock solves Sudoku puzzles from the command line.
//
// A puzzle is 81 characters, the digits 1-9 for clues and 0 or . for empty
// cells; whitespace and separators are ignored. Pass it as an argument or in
// a file with one puzzle per line:
//
//	gridlock 530070000600195000098000060800060003400803001700020006060000280000419005000080079
//	gridlock -file puzzles.txt -workers 8 -repeat 5
//
// Solutions are written to stdout; unsolvable puzzles produce no output.
// Timing goes to stderr.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/gridlock-solve/gridlock/pkg/cache"
	"github.com/gridlock-solve/gridlock/pkg/common/config"
	"github.com/gridlock-solve/gridlock/pkg/common/logging"
	"github.com/gridlock-solve/gridlock/pkg/gridlock"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		workers    = flag.Int("workers", 0, "Concurrent search workers (overrides config)")
		sequential = flag.Bool("seq", false, "Use the deterministic sequential solver")
		file       = flag.String("file", "", "File of puzzles, one per line")
		repeat     = flag.Int("repeat", 1, "Solve each puzzle this many times (timing runs)")
		pretty     = flag.Bool("pretty", false, "Force grid output even when stdout is not a terminal")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Solver.Workers = *workers
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	puzzles, err := collectPuzzles(*file, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(puzzles) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *repeat < 1 {
		*repeat = 1
	}

	opts := []gridlock.Option{
		gridlock.WithWorkers(cfg.Solver.Workers),
	}
	if *sequential {
		opts = append(opts, gridlock.WithSequential())
	}
	if cfg.Cache.Enabled && *repeat == 1 {
		// Caching defeats the purpose of -repeat timing runs.
		opts = append(opts, gridlock.WithCache(cache.NewSolutionCache(cfg.Cache.Capacity)))
	}
	engine := gridlock.NewEngine(opts...)

	useGrid := *pretty || term.IsTerminal(int(os.Stdout.Fd()))

	anySolved := false
	for i, puzzle := range puzzles {
		var total time.Duration
		var last gridlock.Result
		failed := false
		for run := 0; run < *repeat; run++ {
			res, err := engine.SolveString(puzzle)
			if err != nil {
				fmt.Fprintf(os.Stderr, "puzzle %d: %v\n", i+1, err)
				failed = true
				break
			}
			total += res.Duration
			last = res
		}
		if failed {
			continue
		}

		if last.Solved {
			anySolved = true
			if useGrid {
				fmt.Print(last.Solution.Grid())
			} else {
				fmt.Println(last.Solution.String())
			}
		}
		report(os.Stderr, i+1, len(puzzles), last, total, *repeat)
	}

	if !anySolved {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if defaultPath, err := config.GetDefaultConfigPath(); err == nil {
			path = defaultPath
		}
	}
	return config.LoadConfig(path)
}

func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	out := os.Stderr
	if cfg.Logging.File != "" {
		w, err := logging.FileOutput(cfg.Logging.File)
		if err != nil {
			return nil, err
		}
		return logging.New(w, level, format), nil
	}
	return logging.New(out, level, format), nil
}

// collectPuzzles gathers puzzles from the arguments and, when set, from a
// file with one puzzle per line. Blank lines and lines starting with # are
// skipped.
func collectPuzzles(file string, args []string) ([]string, error) {
	puzzles := append([]string(nil), args...)
	if file == "" {
		return puzzles, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open puzzle file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		puzzles = append(puzzles, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read puzzle file: %w", err)
	}
	return puzzles, nil
}

func report(out *os.File, n, total int, res gridlock.Result, elapsed time.Duration, runs int) {
	status := "unsolvable"
	if res.Solved {
		status = "solved"
	}
	if runs > 1 {
		fmt.Fprintf(out, "puzzle %d/%d: %s, workers=%d, %d runs, total %v, avg %v\n",
			n, total, status, res.Workers, runs, elapsed, elapsed/time.Duration(runs))
		return
	}
	fmt.Fprintf(out, "puzzle %d/%d: %s, workers=%d, %v\n", n, total, status, res.Workers, elapsed)
}
