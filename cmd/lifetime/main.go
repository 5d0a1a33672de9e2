// Package main implements the lifetime demonstration CLI.
//
// The tool exercises the lifetime runtime the way an application would:
// it creates a value, passes clones and borrows into functions, checks
// ownership before mutating, and shows how violations are detected.
//
// Usage:
//
//	lifetime demo                    # the clone/add walkthrough
//	lifetime demo --pass move        # pass ownership instead of a clone
//	lifetime scenarios               # run the reference scenarios
//	lifetime contend -w 8 -r 1000    # goroutines racing for BorrowMutable
//	lifetime version
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kolkov/lifetime/internal/observability"
	"github.com/kolkov/lifetime/lifetime"
)

var rootCmd = &cobra.Command{
	Use:   "lifetime",
	Short: "Runtime ownership and borrowing demonstrations",
	Long: `lifetime runs small programs against the lifetime runtime: one owner,
one mutable borrow at a time, any number of readers, and no owner released
while its aliases live.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

var metricsServer *http.Server

func main() {
	rootCmd.Version = lifetime.Version

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(contendCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "configuration file (.toml, .yaml)")
	flags.String("policy", "", "fatal violation policy (panic|report)")
	flags.String("log-level", "", "log level (trace|debug|info|warn|error)")
	flags.Bool("json-logs", false, "write logs as JSON")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("capture-stacks", false, "record handle creation sites in reports")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.String("dump", "", "write recorded violations to this file (msgpack)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := lifetime.LoadConfig(path)
	if err != nil {
		return err
	}

	if flags.Changed("policy") {
		cfg.Policy, _ = flags.GetString("policy")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("json-logs") {
		cfg.Log.JSON, _ = flags.GetBool("json-logs")
	}
	if flags.Changed("no-color") {
		cfg.Log.NoColor, _ = flags.GetBool("no-color")
	}
	if flags.Changed("capture-stacks") {
		cfg.CaptureStacks, _ = flags.GetBool("capture-stacks")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if cfg.Log.NoColor {
		color.NoColor = true
	}

	if err := lifetime.Configure(cfg); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		return serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func serveMetrics(addr string) error {
	if err := observability.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	fmt.Fprintf(os.Stderr, "serving metrics on http://%s/metrics\n", ln.Addr())
	return nil
}

func teardown(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString("dump"); path != "" {
		if err := dumpReports(path); err != nil {
			return err
		}
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

func dumpReports(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}
	if err := lifetime.DumpReports(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	passColor    = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
)
