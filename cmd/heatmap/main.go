package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	service "github.com/okian/scholardash/internal/app"
	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/internal/heatmap"
	"github.com/okian/scholardash/pkg/logger"
)

func main() {
	var (
		out     = flag.String("out", "tier_heatmap.png", "Output image (.png, .svg or .pdf)")
		noColor = flag.Bool("no-color", false, "Disable colored console output")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()
	os.Exit(run(*out, *noColor, *verbose))
}

func run(out string, noColor, verbose bool) int {
	if noColor {
		color.NoColor = true
	}
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get().Named("heatmap")

	svc := service.New(service.WithConfig(cfg), service.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return 1
	}
	defer svc.Stop()

	hm := svc.Heatmap(ctx)
	heatmap.Report(os.Stdout, hm)
	if !hm.Available {
		return 1
	}

	if err := heatmap.Save(hm, out); err != nil {
		log.Error(ctx, "failed to write heat map", logger.String("path", out), logger.Error(err))
		return 1
	}
	color.Green("\nHeat map written to %s", out)
	return 0
}
