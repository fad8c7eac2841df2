package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/okian/scholardash/internal/smoke"
	"github.com/okian/scholardash/pkg/logger"
)

// Default configuration constants.
const (
	defaultRounds   = 3
	defaultStudents = 5
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 30 * time.Second
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the dashboard")
		rounds   = flag.Int("rounds", defaultRounds, "How many times every route is requested")
		students = flag.Int("students", defaultStudents, "Number of student dashboards to open")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Log every request")
		noColor  = flag.Bool("no-color", false, "Disable colored output")
	)
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := smoke.Run(ctx, &smoke.Config{
		BaseURL:  *baseURL,
		Password: os.Getenv("SCHOLARDASH_AUTH__PASSWORD"),
		Workers:  *workers,
		Rounds:   *rounds,
		Students: *students,
		Timeout:  *timeout,
		Verbose:  *verbose,
	})
	if stats != nil {
		smoke.Report(os.Stdout, stats)
	}
	if err != nil {
		color.Red("smoke test failed: %v", err)
		stop()
		os.Exit(1)
	}
}
